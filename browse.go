package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/ruutu-tools/ruutu-client/services/catalog"
	"github.com/ruutu-tools/ruutu-client/services/common"
)

func makePagesCMD() cli.Command {
	cmd := cli.Command{
		Name:   "pages",
		Usage:  "list the top-level menu",
		Action: pages,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	return cmd
}

func makeGridsCMD() cli.Command {
	cmd := cli.Command{
		Name:      "grids",
		Usage:     "list the content shelves of a page",
		ArgsUsage: "<page-id>",
		Action:    grids,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	return cmd
}

func makeGridCMD() cli.Command {
	cmd := cli.Command{
		Name:      "grid",
		Usage:     "list one page of a grid query",
		ArgsUsage: "<query-url>",
		Action:    grid,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	cmd.Flags = append(cmd.Flags,
		cli.StringFlag{
			Name:  "params",
			Usage: "grid query params as JSON",
			Value: "{}",
		},
		cli.IntFlag{
			Name:  "page",
			Usage: "page number, starting at 1",
			Value: 1,
		},
	)
	return cmd
}

func makeSeasonsCMD() cli.Command {
	cmd := cli.Command{
		Name:      "seasons",
		Usage:     "list the seasons of a series",
		ArgsUsage: "<series-id>",
		Action:    seasons,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	return cmd
}

func makeSearchCMD() cli.Command {
	cmd := cli.Command{
		Name:      "search",
		Usage:     "search the catalog",
		ArgsUsage: "<term>",
		Action:    search,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	return cmd
}

func makeFavoriteCMD() cli.Command {
	cmd := cli.Command{
		Name:      "favorite",
		Usage:     "add or remove a favorite series",
		ArgsUsage: "<add|remove> <series-id>",
		Action:    favorite,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	return cmd
}

func pages(c *cli.Context) error {
	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	// The home page is suppressed from the menu; its shelves render
	// inline at the top of the listing instead.
	home, err := cl.listing.Grids(ctx, cl.listing.HomePageID())
	if err != nil {
		return err
	}
	homeNodes := make([]catalog.ContentNode, 0, len(home))
	for _, g := range home {
		homeNodes = append(homeNodes, g)
	}
	printNodes(homeNodes, "")

	nodes, err := cl.listing.Pages(ctx)
	if err != nil {
		return err
	}
	printNodes(nodes, "")
	return nil
}

func grids(c *cli.Context) error {
	pageID, err := int64Arg(c, 0, "page-id")
	if err != nil {
		return err
	}
	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	refs, err := cl.listing.Grids(context.Background(), pageID)
	if err != nil {
		return err
	}
	for _, g := range refs {
		params, _ := json.Marshal(g.QueryParams)
		fmt.Printf("[grid] %s\n  url: %s\n  params: %s\n", g.Label, g.QueryURL, params)
	}
	return nil
}

func grid(c *cli.Context) error {
	queryURL := c.Args().Get(0)
	if queryURL == "" {
		return errors.New("query-url is required")
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(c.String("params")), &params); err != nil {
		return errors.Wrap(err, "parse params")
	}

	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	page, err := cl.listing.GridContent(context.Background(), queryURL, params, c.Int("page"))
	if err != nil {
		return err
	}
	printNodes(page.Items, "")
	if page.HasMore {
		fmt.Printf("more items on page %d\n", c.Int("page")+1)
	}
	return nil
}

func seasons(c *cli.Context) error {
	seriesID, err := int64Arg(c, 0, "series-id")
	if err != nil {
		return err
	}
	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	nodes, err := cl.listing.Seasons(context.Background(), seriesID)
	if err != nil {
		return err
	}
	printNodes(nodes, "")
	return nil
}

func search(c *cli.Context) error {
	term := c.Args().Get(0)
	if term == "" {
		return errors.New("search term is required")
	}
	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	nodes, err := cl.listing.Search(context.Background(), term)
	if err != nil {
		return err
	}
	printNodes(nodes, "")
	return nil
}

func favorite(c *cli.Context) error {
	op := c.Args().Get(0)
	seriesID, err := int64Arg(c, 1, "series-id")
	if err != nil {
		return err
	}
	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	switch op {
	case "add":
		return cl.store.AddFavorite(context.Background(), seriesID)
	case "remove":
		return cl.store.RemoveFavorite(context.Background(), seriesID)
	default:
		return errors.Errorf("unknown favorite operation %q", op)
	}
}

func printNodes(nodes []catalog.ContentNode, indent string) {
	for _, node := range nodes {
		switch n := node.(type) {
		case catalog.PageGroup:
			fmt.Printf("%s[group] %s\n", indent, n.Title)
			printNodes(n.Children, indent+"  ")
		case catalog.PageLeaf:
			fmt.Printf("%s[page %d] %s\n", indent, n.PageID, n.Title)
		case catalog.GridRef:
			if n.Hits > 0 {
				fmt.Printf("%s[grid] %s (%d hits)\n", indent, n.Label, n.Hits)
			} else {
				fmt.Printf("%s[grid] %s\n", indent, n.Label)
			}
		case catalog.MediaItem:
			printMediaItem(n, indent)
		case catalog.UpcomingItem:
			fmt.Printf("%s[upcoming] %s\n", indent, n.Title)
		}
	}
}

func printMediaItem(m catalog.MediaItem, indent string) {
	fmt.Printf("%s[%s %d] %s", indent, m.Kind, m.ID, m.ListTitle)
	if m.Season > 0 {
		fmt.Printf(" (S%02dE%02d)", m.Season, m.Episode)
	}
	switch m.Watch.Status {
	case catalog.Watched:
		fmt.Printf(" [watched]")
	case catalog.PartiallyWatched:
		fmt.Printf(" [resume %ds/%ds]", m.Watch.ResumeSeconds, m.Watch.TotalSeconds)
	}
	if m.Favorite {
		fmt.Printf(" [favorite]")
	}
	fmt.Println()
}

func int64Arg(c *cli.Context, i int, name string) (int64, error) {
	var v int64
	if _, err := fmt.Sscanf(c.Args().Get(i), "%d", &v); err != nil {
		return 0, errors.Errorf("%s is required", name)
	}
	return v, nil
}

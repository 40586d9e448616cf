package catalog

import (
	"context"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/session"
	"github.com/ruutu-tools/ruutu-client/services/storage"
)

// brandClient tags the navigation nodes that belong to this client.
const brandClient = "ruutufi"

const (
	// homePageID is rendered inline on the root listing, never as a
	// menu entry of its own.
	homePageID    = 200
	myStuffPageID = 2000

	searchComponentID     = 336
	seriesInfoComponentID = 26001
	seasonsComponentID    = 26003
)

// hiddenGridIDs are broadcast/guide/upcoming shelves unsuitable for this
// client: sport broadcasts (545, 665), TV guide (687, 689) and upcoming
// series/movies (6530200, 653, 653200).
var hiddenGridIDs = map[int64]struct{}{
	545:     {},
	665:     {},
	687:     {},
	689:     {},
	6530200: {},
	653:     {},
	653200:  {},
}

// Listing drives offset-based paging over grid endpoints and synthesizes
// the virtual continue-watching/favorites grids.
type Listing struct {
	api      *Api
	store    *storage.Client
	sess     *session.Session
	norm     *Normalizer
	pageSize int
}

func New(c *cli.Context, sess *session.Session, store *storage.Client, api *Api) *Listing {
	return &Listing{
		api:      api,
		store:    store,
		sess:     sess,
		norm:     NewNormalizer(api, c.Bool(common.PlusStickerFlag)),
		pageSize: c.Int(common.ItemsPerPageFlag),
	}
}

// Pages lists the top-level menu: brand-tagged navigation nodes, a fixed
// search entry, and "my stuff" when the session is authenticated. The
// home page is suppressed here; callers render it inline via Grids.
func (l *Listing) Pages(ctx context.Context) ([]ContentNode, error) {
	nav, err := l.api.Navigation(ctx)
	if err != nil {
		return nil, err
	}

	var nodes []ContentNode
	for _, page := range nav.Main {
		if !hasClient(page.Clients, brandClient) {
			continue
		}
		if len(page.Children) > 0 {
			nodes = append(nodes, PageGroup{
				Title:    page.Title,
				Children: l.childLeaves(page.Children),
			})
			continue
		}
		if page.Action == nil || page.Action.PageID == homePageID {
			continue
		}
		nodes = append(nodes, PageLeaf{
			Title:  page.Title,
			PageID: page.Action.PageID,
		})
	}

	nodes = append(nodes, GridRef{
		ID:       searchComponentID,
		Label:    "Haku",
		QueryURL: l.api.ComponentQueryURL(searchComponentID),
	})

	if l.sess.Authenticated() {
		nodes = append(nodes, PageLeaf{
			Title:  "Oma Ruutu",
			PageID: myStuffPageID,
		})
	}

	return nodes, nil
}

// HomePageID identifies the page whose grids are rendered inline on the
// root listing.
func (l *Listing) HomePageID() int64 {
	return homePageID
}

func (l *Listing) childLeaves(children []rawNavNode) []ContentNode {
	var nodes []ContentNode
	for _, child := range children {
		if !hasClient(child.Clients, brandClient) {
			continue
		}
		// A child without an action is a placeholder, not a category.
		if child.Action == nil {
			continue
		}
		nodes = append(nodes, PageLeaf{
			Title:  child.Label.Text,
			PageID: child.Action.PageID,
		})
	}
	return nodes
}

// Grids lists the content shelves of a page. Grids on the denylist or
// without a label are dropped; the continue-watching and favorites grids
// get their placeholder params replaced with ids synthesized from the
// user's own collections.
func (l *Listing) Grids(ctx context.Context, pageID int64) ([]GridRef, error) {
	page, err := l.api.Page(ctx, "page", pageID, l.sess.Role())
	if err != nil {
		return nil, err
	}

	var grids []GridRef
	for _, comp := range page.Components {
		if comp.Label.Text == "" || comp.Content == nil {
			continue
		}
		if _, hidden := hiddenGridIDs[comp.ID]; hidden {
			continue
		}

		params, err := l.gridParams(ctx, comp.Content.Query.Params)
		if err != nil {
			return nil, err
		}

		grids = append(grids, GridRef{
			ID:          comp.ID,
			Label:       comp.Label.Text,
			QueryURL:    comp.Content.Query.URL,
			QueryParams: params,
		})
	}
	return grids, nil
}

// gridParams recognizes the two virtual grid shapes. The placeholder
// value the API declares is discarded; the real parameter is built from a
// fresh fetch of the user's history or favorites. Synthesized sets always
// restart paging at offset 0.
func (l *Listing) gridParams(ctx context.Context, declared map[string]any) (map[string]any, error) {
	if _, ok := declared["user_unfinished_videos"]; ok {
		history, err := l.store.History(ctx, true)
		if err != nil {
			return nil, err
		}
		var ids []string
		for _, h := range history {
			if h.Unfinished {
				ids = append(ids, strconv.FormatInt(h.Video, 10))
			}
		}
		return map[string]any{
			"offset":                 0,
			"user_unfinished_videos": strings.Join(ids, ","),
		}, nil
	}

	if _, ok := declared["user_favorite_series"]; ok {
		favorites, err := l.store.Favorites(ctx)
		if err != nil {
			return nil, err
		}
		var ids []string
		for _, f := range favorites {
			if f.Type == "series" {
				ids = append(ids, strconv.FormatInt(f.Item, 10))
			}
		}
		return map[string]any{
			"offset":               0,
			"user_favorite_series": strings.Join(ids, ","),
		}, nil
	}

	return declared, nil
}

// GridContent fetches one page of a grid. pageNumber starts at 1; the
// last page is only detected by observing a short page, the API carries
// no total count.
func (l *Listing) GridContent(ctx context.Context, queryURL string, params map[string]any, pageNumber int) (*ListingPage, error) {
	offset := (pageNumber - 1) * l.pageSize

	grid, err := l.api.Grid(ctx, queryURL, params, offset, l.pageSize)
	if err != nil {
		return nil, err
	}

	lc := &ListContext{
		Role:          l.sess.Role(),
		Authenticated: l.sess.Authenticated(),
	}

	// History and favorites are refetched on every page call on purpose:
	// the listing reflects mutations made while paging.
	if lc.Authenticated {
		if lc.History, err = l.store.History(ctx, true); err != nil {
			return nil, err
		}
		if lc.Favorites, err = l.store.FavoriteSeries(ctx); err != nil {
			return nil, err
		}
	}

	if seriesID, ok := params["current_series_id"]; ok {
		if err := l.seriesInfo(ctx, seriesID, lc); err != nil {
			return nil, err
		}
	}

	page := &ListingPage{
		HasMore: len(grid.Items) >= l.pageSize,
	}
	for _, item := range grid.Items {
		node, err := l.norm.Item(ctx, item, lc)
		if err != nil {
			// Partial-result tolerance: one bad item must not blank
			// the page.
			log.WithError(err).WithField("title", item.Title).Warn("skipping unresolvable item")
			continue
		}
		if node != nil {
			page.Items = append(page.Items, node)
		}
	}
	return page, nil
}

// seriesInfo stamps show title and genres from the series-level metadata
// component onto the episode listing.
func (l *Listing) seriesInfo(ctx context.Context, seriesID any, lc *ListContext) error {
	grid, err := l.api.Component(ctx, seriesInfoComponentID, map[string]any{
		"current_primary_content": "series",
		"current_series_id":       seriesID,
	})
	if err != nil {
		return err
	}
	if len(grid.Items) == 0 {
		return &common.MalformedUpstreamError{Reason: "series info component returned no items"}
	}
	lc.ShowTitle = grid.Items[0].Title
	if grid.Items[0].Subtitle != "" {
		lc.Genres = strings.Split(grid.Items[0].Subtitle, ", ")
	}
	return nil
}

// Seasons lists a series' seasons, each as a grid pointing at that
// season's own episode query.
func (l *Listing) Seasons(ctx context.Context, seriesID int64) ([]ContentNode, error) {
	grid, err := l.api.Component(ctx, seasonsComponentID, map[string]any{
		"current_series_id": seriesID,
	})
	if err != nil {
		return nil, err
	}

	var nodes []ContentNode
	for _, season := range grid.Items {
		if season.Content == nil || len(season.Content.Items) == 0 || season.Content.Items[0].Content == nil {
			log.WithField("label", season.Label.Text).Warn("skipping season without query")
			continue
		}
		query := season.Content.Items[0].Content.Query
		nodes = append(nodes, GridRef{
			Label:       season.Label.Text,
			QueryURL:    query.URL,
			QueryParams: query.Params,
		})
	}
	return nodes, nil
}

// Search runs a term against the search component. Result grids with
// zero hits are suppressed; surviving grids carry their hit count.
func (l *Listing) Search(ctx context.Context, term string) ([]ContentNode, error) {
	grid, err := l.api.Component(ctx, searchComponentID, map[string]any{
		"offset":      0,
		"search_term": term,
	})
	if err != nil {
		return nil, err
	}

	var nodes []ContentNode
	for _, result := range grid.Items {
		if result.Content == nil || result.Content.Hits == 0 {
			continue
		}
		nodes = append(nodes, GridRef{
			Label:       result.Label.Text,
			QueryURL:    result.Content.Query.URL,
			QueryParams: result.Content.Query.Params,
			Hits:        result.Content.Hits,
		})
	}
	return nodes, nil
}

func hasClient(clients []string, name string) bool {
	for _, c := range clients {
		if c == name {
			return true
		}
	}
	return false
}

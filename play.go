package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/stream"
)

func makePlayCMD() cli.Command {
	cmd := cli.Command{
		Name:      "play",
		Usage:     "resolve a video id into a playable stream",
		ArgsUsage: "<video-id>",
		Action:    play,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	cmd.Flags = append(cmd.Flags,
		cli.BoolFlag{
			Name:  "live",
			Usage: "resolve as a live stream",
		},
		cli.BoolFlag{
			Name:  "premium",
			Usage: "item is subscription-gated",
		},
	)
	return cmd
}

func makeProgressCMD() cli.Command {
	cmd := cli.Command{
		Name:      "progress",
		Usage:     "report watch progress",
		ArgsUsage: "<video-id> <position-seconds|finished>",
		Action:    progress,
	}
	cmd.Flags = common.RegisterFlags(cmd.Flags)
	return cmd
}

func play(c *cli.Context) error {
	videoID, err := int64Arg(c, 0, "video-id")
	if err != nil {
		return err
	}
	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	kind := stream.OnDemand
	if c.Bool("live") {
		kind = stream.Live
	}

	d, err := cl.resolver.Resolve(ctx, videoID, kind, c.Bool("premium"))
	if err != nil {
		return err
	}

	fmt.Printf("video url: %s\n", d.VideoURL)
	if d.DRMProtected {
		fmt.Printf("drm license: %s\n", d.LicenseKeyURL())
	}

	if kind == stream.OnDemand {
		printUpNext(ctx, cl, videoID)
	}
	return nil
}

// printUpNext surfaces the data the "up next" collaborator would consume.
func printUpNext(ctx context.Context, cl *client, videoID int64) {
	info, err := cl.metadata.EpisodeInfo(ctx, videoID)
	if err == nil {
		fmt.Printf("now playing: %s", info.Name)
		if info.Series != "" {
			fmt.Printf(" (%s)", info.Series)
		}
		fmt.Println()
	}

	nextID, ok, err := cl.metadata.NextEpisodeID(ctx, videoID)
	if err != nil || !ok {
		return
	}
	if next, err := cl.metadata.EpisodeInfo(ctx, nextID); err == nil {
		fmt.Printf("up next: %s (id %d)\n", next.Name, next.ID)
	}
}

func progress(c *cli.Context) error {
	videoID, err := int64Arg(c, 0, "video-id")
	if err != nil {
		return err
	}
	cl, err := makeClient(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	arg := c.Args().Get(1)
	if arg == "finished" {
		return cl.store.ReportFinished(ctx, videoID)
	}
	var pos float64
	if _, err := fmt.Sscanf(arg, "%f", &pos); err != nil {
		return errors.New("position-seconds or \"finished\" is required")
	}
	return cl.store.ReportProgress(ctx, videoID, pos)
}

package main

import (
	"net/http"

	"github.com/urfave/cli"

	"github.com/ruutu-tools/ruutu-client/services/catalog"
	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/session"
	"github.com/ruutu-tools/ruutu-client/services/storage"
	"github.com/ruutu-tools/ruutu-client/services/stream"
)

func configure(app *cli.App) {
	app.Commands = []cli.Command{
		makeLoginCMD(),
		makeLogoutCMD(),
		makePagesCMD(),
		makeGridsCMD(),
		makeGridCMD(),
		makeSeasonsCMD(),
		makeSearchCMD(),
		makePlayCMD(),
		makeFavoriteCMD(),
		makeProgressCMD(),
	}
}

// client bundles the component graph behind every command. The session
// is constructed once and passed by reference into each component.
type client struct {
	sess     *session.Session
	store    *storage.Client
	listing  *catalog.Listing
	resolver *stream.Resolver
	metadata *stream.Metadata
}

func makeClient(c *cli.Context) (*client, error) {
	sess, err := session.New(c, http.DefaultClient)
	if err != nil {
		return nil, err
	}
	store := storage.New(sess)
	api := catalog.NewApi(sess)
	return &client{
		sess:     sess,
		store:    store,
		listing:  catalog.New(c, sess, store, api),
		resolver: stream.NewResolver(sess),
		metadata: stream.NewMetadata(sess, c.String(common.DynamicAPIFlag)),
	}, nil
}

package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/session"
)

// Client talks to the gatling storage API: per-user favorites, watch
// history and the unfinished/finished progress markers. Every call needs
// a session token; anonymous calls fail fast with ErrNotAuthenticated
// before any network I/O.
type Client struct {
	sess *session.Session
}

func New(sess *session.Session) *Client {
	return &Client{
		sess: sess,
	}
}

// HistoryRecord is one watch-history entry. Watched is nil for videos
// that were opened but have no recorded position.
type HistoryRecord struct {
	Video      int64  `json:"video"`
	Unfinished bool   `json:"unfinished"`
	Watched    *int64 `json:"watched"`
}

type Favorite struct {
	Type string `json:"type"`
	Item int64  `json:"item"`
}

// FavoriteSet holds the series ids the user marked favorite.
type FavoriteSet map[int64]struct{}

func (s FavoriteSet) Has(seriesID int64) bool {
	_, ok := s[seriesID]
	return ok
}

func (c *Client) token() (string, error) {
	t := c.sess.Token()
	if t == "" || !c.sess.Authenticated() {
		return "", common.ErrNotAuthenticated
	}
	return t, nil
}

// History fetches the user's watch history. With unfinishedOnly the
// server filters to entries that still have the unfinished marker.
func (c *Client) History(ctx context.Context, unfinishedOnly bool) ([]HistoryRecord, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if unfinishedOnly {
		q.Set("unfinished", "true")
	}
	q.Set("gatling_token", token)

	data, err := c.sess.Transport().Do(ctx, http.MethodGet, c.sess.GatlingURL()+"/storage/history", q, nil, nil)
	if err != nil {
		return nil, err
	}
	var records []HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &common.MalformedUpstreamError{Reason: "history response is not parseable"}
	}
	return records, nil
}

// Favorites fetches the raw favorites collection, all types included.
func (c *Client) Favorites(ctx context.Context) ([]Favorite, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("gatling_token", token)

	data, err := c.sess.Transport().Do(ctx, http.MethodGet, c.sess.GatlingURL()+"/storage/favorite", q, nil, nil)
	if err != nil {
		return nil, err
	}
	var favorites []Favorite
	if err := json.Unmarshal(data, &favorites); err != nil {
		return nil, &common.MalformedUpstreamError{Reason: "favorites response is not parseable"}
	}
	return favorites, nil
}

// FavoriteSeries filters the favorites collection down to series ids.
func (c *Client) FavoriteSeries(ctx context.Context) (FavoriteSet, error) {
	favorites, err := c.Favorites(ctx)
	if err != nil {
		return nil, err
	}
	set := FavoriteSet{}
	for _, f := range favorites {
		if f.Type == "series" {
			set[f.Item] = struct{}{}
		}
	}
	return set, nil
}

func (c *Client) AddFavorite(ctx context.Context, seriesID int64) error {
	return c.mutateFavorite(ctx, http.MethodPost, seriesID)
}

func (c *Client) RemoveFavorite(ctx context.Context, seriesID int64) error {
	return c.mutateFavorite(ctx, http.MethodDelete, seriesID)
}

func (c *Client) mutateFavorite(ctx context.Context, method string, seriesID int64) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("gatling_token", token)
	form.Set("type", "series")
	form.Set("item", strconv.FormatInt(seriesID, 10))

	_, err = c.sess.Transport().Do(ctx, method, c.sess.GatlingURL()+"/storage/favorite", nil, strings.NewReader(form.Encode()), formHeader())
	return err
}

// ReportProgress records the current playback position. Fire-and-forget:
// rejections surface to the caller as ApiError and are never retried.
func (c *Client) ReportProgress(ctx context.Context, videoID int64, positionSeconds float64) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("video", strconv.FormatInt(videoID, 10))
	form.Set("bucket", "ruutu")
	form.Set("time", strconv.FormatFloat(positionSeconds, 'f', 2, 64))
	form.Set("gatling_token", token)

	_, err = c.sess.Transport().Do(ctx, http.MethodPost, c.sess.GatlingURL()+"/storage/unfinished", nil, strings.NewReader(form.Encode()), formHeader())
	return err
}

// ReportFinished clears the unfinished marker, moving the video to the
// watched state.
func (c *Client) ReportFinished(ctx context.Context, videoID int64) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("video", strconv.FormatInt(videoID, 10))
	form.Set("bucket", "ruutu")
	form.Set("finished", "1")
	form.Set("gatling_token", token)

	_, err = c.sess.Transport().Do(ctx, http.MethodDelete, c.sess.GatlingURL()+"/storage/unfinished", nil, strings.NewReader(form.Encode()), formHeader())
	return err
}

func formHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return h
}

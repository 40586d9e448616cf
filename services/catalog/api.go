package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/session"
)

// Api is the raw component API client: navigation tree, page bundles and
// grid queries. It decodes into the wire shapes below; turning those into
// ContentNode values is the normalizer's job.
type Api struct {
	sess *session.Session
}

func NewApi(sess *session.Session) *Api {
	return &Api{
		sess: sess,
	}
}

type rawLabel struct {
	Text string `json:"text"`
}

type rawQuery struct {
	URL    string         `json:"url"`
	Params map[string]any `json:"params"`
}

type rawContent struct {
	Query rawQuery  `json:"query"`
	Hits  int       `json:"hits"`
	Items []rawItem `json:"items"`
}

type rawComponent struct {
	ID      int64       `json:"id"`
	Label   rawLabel    `json:"label"`
	Content *rawContent `json:"content"`
}

type rawPage struct {
	Components []rawComponent `json:"components"`
}

type rawNavNode struct {
	Title    string       `json:"title"`
	Clients  []string     `json:"clients"`
	Children []rawNavNode `json:"children"`
	Label    rawLabel     `json:"label"`
	Action   *struct {
		PageID int64 `json:"page_id"`
	} `json:"action"`
}

type rawNavigation struct {
	Main []rawNavNode `json:"main"`
}

type rawTarget struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

type rawLink struct {
	Target rawTarget `json:"target"`
}

// rawItem is the heterogeneous grid item. Which fields are present
// depends entirely on the link target type; everything is optional.
type rawItem struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	TitleDetail string   `json:"title_detail"`
	TitleTime   string   `json:"title_time"`
	Subtitle    string   `json:"subtitle"`
	Description string   `json:"description"`
	Sticker     string   `json:"sticker"`
	Upcoming    bool     `json:"upcoming"`
	Link        *rawLink `json:"link"`
	VideoID     int64    `json:"video_id"`
	Timebar     *struct {
		End int64 `json:"end"`
	} `json:"timebar"`
	Rights []struct {
		Start int64 `json:"start"`
	} `json:"rights"`
	TvRatings *struct {
		AgeLimit int `json:"agelimit"`
	} `json:"tv_ratings"`
	Media *struct {
		Images map[string]string `json:"images"`
	} `json:"media"`
	Label   rawLabel    `json:"label"`
	Content *rawContent `json:"content"`
}

type rawGrid struct {
	Items []rawItem `json:"items"`
}

// Navigation fetches the top-level navigation tree.
func (a *Api) Navigation(ctx context.Context) (*rawNavigation, error) {
	data, err := a.sess.Transport().Do(ctx, http.MethodGet, a.sess.ComponentURL()+"/api/navigation/", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var nav rawNavigation
	if err := json.Unmarshal(data, &nav); err != nil {
		return nil, &common.MalformedUpstreamError{Reason: "navigation response is not parseable"}
	}
	return &nav, nil
}

// Page fetches a page-type-keyed component bundle. pageType is one of
// "page", "channel" or "stream".
func (a *Api) Page(ctx context.Context, pageType string, pageID int64, userRoles string) (*rawPage, error) {
	q := url.Values{}
	q.Set("app", "ruutu")
	q.Set("client", "web")
	q.Set("userroles", userRoles)

	u := fmt.Sprintf("%s/api/%s/%d", a.sess.ComponentURL(), pageType, pageID)
	data, err := a.sess.Transport().Do(ctx, http.MethodGet, u, q, nil, nil)
	if err != nil {
		return nil, err
	}
	var page rawPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, &common.MalformedUpstreamError{Reason: "page response is not parseable"}
	}
	return &page, nil
}

// Grid runs a grid query. offset/limit override whatever paging values
// the declared params carry; pass a negative offset to leave them as-is.
func (a *Api) Grid(ctx context.Context, queryURL string, params map[string]any, offset, limit int) (*rawGrid, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, paramString(v))
	}
	if offset >= 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	data, err := a.sess.Transport().Do(ctx, http.MethodGet, queryURL, q, nil, nil)
	if err != nil {
		return nil, err
	}
	var grid rawGrid
	if err := json.Unmarshal(data, &grid); err != nil {
		return nil, &common.MalformedUpstreamError{Reason: "grid response is not parseable"}
	}
	return &grid, nil
}

// Component is a Grid call against a fixed component id.
func (a *Api) Component(ctx context.Context, id int64, params map[string]any) (*rawGrid, error) {
	return a.Grid(ctx, a.ComponentQueryURL(id), params, -1, 0)
}

func (a *Api) ComponentQueryURL(id int64) string {
	return fmt.Sprintf("%s/api/component/%d", a.sess.ComponentURL(), id)
}

// paramString renders a declared query param the way the web client
// serializes it. Grid params mix strings, numbers and the occasional
// bool.
func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

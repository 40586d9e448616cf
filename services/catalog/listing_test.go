package catalog

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli"

	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/session"
	"github.com/ruutu-tools/ruutu-client/services/storage"
)

const testPageSize = 3

func testListing(t *testing.T, srv *httptest.Server, authenticated bool) *Listing {
	t.Helper()
	dir := t.TempDir()
	if authenticated {
		creds := `{"accountId":"acc1","token":"tok1","service":{"ruutuRole":"ruutu_plus_pro"}}`
		if err := os.WriteFile(filepath.Join(dir, "credentials"), []byte(creds), 0600); err != nil {
			t.Fatal(err)
		}
	}

	app := cli.NewApp()
	app.Flags = common.RegisterFlags(nil)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String(common.SettingsDirFlag, "", "")
	fs.String(common.ComponentAPIFlag, "", "")
	fs.String(common.GatlingAPIFlag, "", "")
	fs.Int(common.ItemsPerPageFlag, testPageSize, "")
	fs.Bool(common.PlusStickerFlag, false, "")
	_ = fs.Set(common.SettingsDirFlag, dir)
	_ = fs.Set(common.ComponentAPIFlag, srv.URL)
	_ = fs.Set(common.GatlingAPIFlag, srv.URL)
	c := cli.NewContext(app, fs, nil)

	sess, err := session.New(c, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	store := storage.New(sess)
	api := NewApi(sess)
	return New(c, sess, store, api)
}

func TestPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/navigation/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"main":[
			{"title":"Etusivu","clients":["ruutufi"],"action":{"page_id":200}},
			{"title":"TV","clients":["ruutufi"],"children":[
				{"label":{"text":"Draama"},"clients":["ruutufi"],"action":{"page_id":300}},
				{"label":{"text":"Placeholder"},"clients":["ruutufi"]},
				{"label":{"text":"Muu"},"clients":["otherbrand"],"action":{"page_id":301}}
			]},
			{"title":"Leffat","clients":["ruutufi"],"action":{"page_id":400}},
			{"title":"Vieras","clients":["otherbrand"],"action":{"page_id":500}}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Run("anonymous", func(t *testing.T) {
		l := testListing(t, srv, false)
		nodes, err := l.Pages(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		// TV group, Leffat leaf, search grid. Home page and foreign
		// brands are suppressed, no my-stuff entry.
		if len(nodes) != 3 {
			t.Fatalf("expected 3 nodes, got %d: %+v", len(nodes), nodes)
		}
		group, ok := nodes[0].(PageGroup)
		if !ok || group.Title != "TV" {
			t.Fatalf("expected TV group first, got %+v", nodes[0])
		}
		if len(group.Children) != 1 {
			t.Fatalf("expected 1 child leaf, got %d", len(group.Children))
		}
		if leaf := group.Children[0].(PageLeaf); leaf.PageID != 300 || leaf.Title != "Draama" {
			t.Errorf("unexpected child leaf %+v", leaf)
		}
		if leaf := nodes[1].(PageLeaf); leaf.PageID != 400 {
			t.Errorf("expected Leffat page 400, got %+v", leaf)
		}
		if grid, ok := nodes[2].(GridRef); !ok || grid.ID != 336 {
			t.Errorf("expected fixed search grid last, got %+v", nodes[2])
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		l := testListing(t, srv, true)
		nodes, err := l.Pages(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		last, ok := nodes[len(nodes)-1].(PageLeaf)
		if !ok || last.PageID != 2000 {
			t.Errorf("expected my-stuff page 2000 last, got %+v", nodes[len(nodes)-1])
		}
	})
}

func TestGridsFiltersAndVirtualParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/page/2000", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("userroles") != "ruutu_plus_pro" {
			t.Errorf("expected role in page query, got %q", r.URL.Query().Get("userroles"))
		}
		_, _ = w.Write([]byte(`{"components":[
			{"id":545,"label":{"text":"Urheilulähetykset"},"content":{"query":{"url":"http://x/hidden","params":{}}}},
			{"id":11,"label":{},"content":{"query":{"url":"http://x/nolabel","params":{}}}},
			{"id":12,"label":{"text":"Jatka katsomista"},"content":{"query":{"url":"http://x/continue","params":{"user_unfinished_videos":"placeholder","offset":5}}}},
			{"id":13,"label":{"text":"Omat suosikit"},"content":{"query":{"url":"http://x/favorites","params":{"user_favorite_series":"placeholder"}}}},
			{"id":14,"label":{"text":"Katsotuimmat"},"content":{"query":{"url":"http://x/top","params":{"offset":0,"order":"popular"}}}}
		]}`))
	})
	mux.HandleFunc("/storage/history", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"video":42,"unfinished":true,"watched":37},{"video":7,"unfinished":false},{"video":9,"unfinished":true}]`))
	})
	mux.HandleFunc("/storage/favorite", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"type":"series","item":99},{"type":"movie","item":5},{"type":"series","item":120}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := testListing(t, srv, true)
	grids, err := l.Grids(context.Background(), 2000)
	if err != nil {
		t.Fatal(err)
	}
	if len(grids) != 3 {
		t.Fatalf("expected 3 grids after filtering, got %d", len(grids))
	}

	cont := grids[0]
	if cont.QueryParams["user_unfinished_videos"] != "42,9" {
		t.Errorf("expected synthesized unfinished ids, got %v", cont.QueryParams["user_unfinished_videos"])
	}
	if cont.QueryParams["offset"] != 0 {
		t.Errorf("synthesized params must restart at offset 0, got %v", cont.QueryParams["offset"])
	}

	fav := grids[1]
	if fav.QueryParams["user_favorite_series"] != "99,120" {
		t.Errorf("expected synthesized favorite series ids, got %v", fav.QueryParams["user_favorite_series"])
	}

	top := grids[2]
	if top.QueryParams["order"] != "popular" {
		t.Errorf("declared params must pass through unchanged, got %v", top.QueryParams)
	}
}

func gridItems(n int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id":%d,"title":"%d - Jakso","description":"Kausi 1 Jakso %d","link":{"target":{"type":"video_id","value":%d}}}`,
			i+1, i+1, i+1, 100+i))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestGridContentHasMore(t *testing.T) {
	itemCount := testPageSize
	mux := http.NewServeMux()
	mux.HandleFunc("/grid", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != fmt.Sprintf("%d", testPageSize) {
			t.Errorf("expected limit %d, got %q", testPageSize, r.URL.Query().Get("limit"))
		}
		_, _ = w.Write([]byte(`{"items":` + gridItems(itemCount) + `}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := testListing(t, srv, false)

	page, err := l.GridContent(context.Background(), srv.URL+"/grid", map[string]any{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !page.HasMore {
		t.Error("expected hasMore on a full page")
	}
	if len(page.Items) != testPageSize {
		t.Fatalf("expected %d items, got %d", testPageSize, len(page.Items))
	}

	itemCount = testPageSize - 1
	page, err = l.GridContent(context.Background(), srv.URL+"/grid", map[string]any{}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if page.HasMore {
		t.Error("expected no more pages after a short page")
	}
}

func TestGridContentOffsets(t *testing.T) {
	var gotOffset string
	mux := http.NewServeMux()
	mux.HandleFunc("/grid", func(w http.ResponseWriter, r *http.Request) {
		gotOffset = r.URL.Query().Get("offset")
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := testListing(t, srv, false)
	if _, err := l.GridContent(context.Background(), srv.URL+"/grid", map[string]any{}, 3); err != nil {
		t.Fatal(err)
	}
	if gotOffset != fmt.Sprintf("%d", 2*testPageSize) {
		t.Errorf("expected offset %d for page 3, got %q", 2*testPageSize, gotOffset)
	}
}

func TestGridContentSeriesInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/component/26001", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("current_primary_content") != "series" {
			t.Errorf("expected series info query, got %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`{"items":[{"title":"Salatut elämät","subtitle":"Draama, Koti"}]}`))
	})
	mux.HandleFunc("/grid", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":` + gridItems(1) + `}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := testListing(t, srv, false)
	page, err := l.GridContent(context.Background(), srv.URL+"/grid", map[string]any{"current_series_id": 77}, 1)
	if err != nil {
		t.Fatal(err)
	}
	m := page.Items[0].(MediaItem)
	if m.ShowTitle != "Salatut elämät" {
		t.Errorf("expected show title stamped onto episode, got %q", m.ShowTitle)
	}
	if len(m.Genres) != 2 || m.Genres[0] != "Draama" {
		t.Errorf("expected genres stamped onto episode, got %v", m.Genres)
	}
}

func TestSeasons(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/component/26003", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("current_series_id") != "77" {
			t.Errorf("expected series id param, got %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`{"items":[
			{"label":{"text":"Kausi 1"},"content":{"items":[{"content":{"query":{"url":"http://x/season1","params":{"current_series_id":77}}}}]}},
			{"label":{"text":"Rikki"},"content":{"items":[]}}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := testListing(t, srv, false)
	nodes, err := l.Seasons(context.Background(), 77)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 season grid, got %d", len(nodes))
	}
	g := nodes[0].(GridRef)
	if g.Label != "Kausi 1" || g.QueryURL != "http://x/season1" {
		t.Errorf("unexpected season grid %+v", g)
	}
}

func TestSearchSuppressesEmptyGrids(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/component/336", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search_term") != "peruna" {
			t.Errorf("expected search term, got %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`{"items":[
			{"label":{"text":"Ohjelmat"},"content":{"hits":4,"query":{"url":"http://x/programs","params":{"search_term":"peruna"}}}},
			{"label":{"text":"Leffat"},"content":{"hits":0,"query":{"url":"http://x/movies","params":{}}}}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := testListing(t, srv, false)
	nodes, err := l.Search(context.Background(), "peruna")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 result grid, got %d", len(nodes))
	}
	g := nodes[0].(GridRef)
	if g.Hits != 4 {
		t.Errorf("expected hit count surfaced, got %d", g.Hits)
	}
}

package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestEpisodeInfoMemoized(t *testing.T) {
	var fetches int64
	mux := http.NewServeMux()
	mux.HandleFunc("/cos/videos/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		if r.URL.Query().Get("id") != "42" {
			t.Errorf("expected video id in query, got %q", r.URL.Query().Get("id"))
		}
		_, _ = w.Write([]byte(`{"videos":[{
			"id":42,"name":"Jakso 7","episode_name":"","series":"Salatut elämät",
			"season":2,"episode":7,"runtime":1320,"created":"2026-03-01","premium":1,
			"media":{"images":[{"1920x1080":"https://img.example/fanart.jpg"}]}
		}]}`))
	})
	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	m := NewMetadata(testSession(t, srv, ""), srv.URL)

	for i := 0; i < 3; i++ {
		info, err := m.EpisodeInfo(context.Background(), 42)
		if err != nil {
			t.Fatal(err)
		}
		if info.Name != "Jakso 7" {
			t.Errorf("expected fallback to plain name when episode_name is empty, got %q", info.Name)
		}
		if !info.Premium {
			t.Error("premium flag lost")
		}
		if info.Fanart != "https://img.example/fanart.jpg" {
			t.Errorf("unexpected fanart %q", info.Fanart)
		}
	}

	if n := atomic.LoadInt64(&fetches); n != 1 {
		t.Errorf("expected a single upstream fetch for repeated lookups, got %d", n)
	}
}

func TestNextEpisodeID(t *testing.T) {
	next := `{"next_in_sequence":{"nid":77}}`
	mux := http.NewServeMux()
	mux.HandleFunc("/recommend", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(next))
	})
	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	m := NewMetadata(testSession(t, srv, ""), srv.URL)

	id, ok, err := m.NextEpisodeID(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || id != 77 {
		t.Errorf("expected next episode 77, got %d ok=%v", id, ok)
	}

	next = `{"next_in_sequence":{"nid":null}}`
	_, ok, err = m.NextEpisodeID(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("a null nid must end the sequence")
	}
}

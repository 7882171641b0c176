package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/yauma/internal/shared"
)

type fakeLister struct {
	entries map[string][]PlaylistEntry
	calls   int
}

func (f *fakeLister) ListItems(_ context.Context, id string) ([]PlaylistEntry, error) {
	f.calls++
	entries, ok := f.entries[id]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return entries, nil
}

func TestYouTubeServiceKeyless(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{entries: map[string][]PlaylistEntry{
		"PL1": {{VideoID: "v1", Title: "First"}, {VideoID: "v2", Title: "Second"}},
	}}

	srv := NewYouTubeService(shared.YouTubeConfig{Playlists: []string{"PL1"}}, nil).WithLister(lister)
	if srv.HasAPIKey() {
		t.Fatal("expected keyless mode")
	}
	if srv.Name() != "Youtube" {
		t.Errorf("expected Youtube, got %s", srv.Name())
	}

	playlists, err := srv.ListPlaylists(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(playlists) != 1 || playlists[0].Playlist.Size != 2 {
		t.Fatalf("unexpected playlists %+v", playlists)
	}
	if playlists[0].Etag != EntriesEtag(lister.entries["PL1"]) {
		t.Error("expected etag derived from video ids")
	}

	songs, err := srv.FetchSongs(ctx, "PL1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lister.calls != 1 {
		t.Errorf("expected enumeration to be reused, got %d calls", lister.calls)
	}
	if len(songs) != 2 || songs[1].URL != "https://youtube.com/watch?v=v2" {
		t.Errorf("unexpected songs %+v", songs)
	}

	if _, err := srv.FetchSongs(ctx, "PL404"); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestEntriesEtag(t *testing.T) {
	a := []PlaylistEntry{{VideoID: "v1"}, {VideoID: "v2"}}
	b := []PlaylistEntry{{VideoID: "v2"}, {VideoID: "v1"}}

	if EntriesEtag(a) != EntriesEtag([]PlaylistEntry{{VideoID: "v1", Title: "renamed"}, {VideoID: "v2"}}) {
		t.Error("etag should only depend on video ids")
	}
	if EntriesEtag(a) == EntriesEtag(b) {
		t.Error("etag should change when the order changes")
	}
	if len(EntriesEtag(nil)) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(EntriesEtag(nil)))
	}
}

func TestYouTubeServiceAPI(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()

	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"items":[{"id":"PL1","etag":"e1","snippet":{"title":"Mix"},"contentDetails":{"itemCount":3}}]}`))
	})
	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("playlistId") != "PL1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var resp map[string]any
		if r.URL.Query().Get("pageToken") == "" {
			resp = map[string]any{
				"nextPageToken": "page2",
				"items": []map[string]any{
					{"snippet": map[string]any{"title": "One", "videoOwnerChannelTitle": "Artist - Topic"}, "contentDetails": map[string]any{"videoId": "v1"}},
					{"snippet": map[string]any{"title": "Deleted video"}, "contentDetails": map[string]any{}},
				},
			}
		} else {
			resp = map[string]any{
				"items": []map[string]any{
					{"snippet": map[string]any{"title": "Two"}, "contentDetails": map[string]any{"videoId": "v2"}},
				},
			}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"v1","snippet":{"tags":["rock"]},"contentDetails":{"duration":"PT3M20S"}},
			{"id":"v2","snippet":{"channelTitle":"Uploader"},"contentDetails":{"duration":"PT1H"}}
		]}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	srv := NewYouTubeService(shared.YouTubeConfig{APIKey: "k", Playlists: []string{"PL1"}}, server.Client()).
		WithBaseURL(server.URL)

	t.Run("ListPlaylists", func(t *testing.T) {
		playlists, err := srv.ListPlaylists(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 1 {
			t.Fatalf("expected 1 playlist, got %d", len(playlists))
		}
		got := playlists[0]
		if got.Etag != "e1" || got.Playlist.Title != "Mix" || got.Playlist.Size != 3 {
			t.Errorf("unexpected playlist %+v", got)
		}
	})

	t.Run("FetchSongs", func(t *testing.T) {
		songs, err := srv.FetchSongs(ctx, "PL1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 2 {
			t.Fatalf("expected 2 songs, got %d", len(songs))
		}

		tests := []struct {
			idx      int
			id       string
			duration time.Duration
			artist   string
		}{
			{idx: 0, id: "v1", duration: 200 * time.Second, artist: "Artist"},
			{idx: 1, id: "v2", duration: time.Hour, artist: "Uploader"},
		}
		for _, tt := range tests {
			s := songs[tt.idx]
			if s.ID != tt.id || s.Duration != tt.duration {
				t.Errorf("song %d: expected %s/%v, got %s/%v", tt.idx, tt.id, tt.duration, s.ID, s.Duration)
			}
			if len(s.Artists) != 1 || s.Artists[0] != tt.artist {
				t.Errorf("song %d: expected artist %s, got %v", tt.idx, tt.artist, s.Artists)
			}
		}
		if len(songs[0].Tags) != 1 || songs[0].Tags[0] != "rock" {
			t.Errorf("expected tags backfilled, got %v", songs[0].Tags)
		}
	})

	t.Run("Unknown Playlist", func(t *testing.T) {
		if _, err := srv.FetchSongs(ctx, "PL404"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("No Configured Playlists", func(t *testing.T) {
		empty := NewYouTubeService(shared.YouTubeConfig{APIKey: "k"}, nil)
		playlists, err := empty.ListPlaylists(ctx)
		if err != nil || len(playlists) != 0 {
			t.Errorf("expected empty list, got %v, %v", playlists, err)
		}
	})
}

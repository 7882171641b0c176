package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/yauma/internal/shared"
	"golang.org/x/oauth2"
)

func testSpotifyConfig() shared.SpotifyConfig {
	return shared.SpotifyConfig{ClientID: "test_client_id", ClientSecret: "test_client_secret"}
}

func TestNewSpotifyService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     shared.SpotifyConfig
		wantErr bool
	}{
		{name: "Valid Credentials", cfg: testSpotifyConfig()},
		{name: "Missing Client ID", cfg: shared.SpotifyConfig{ClientSecret: "s"}, wantErr: true},
		{name: "Missing Client Secret", cfg: shared.SpotifyConfig{ClientID: "c"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewSpotifyService(tt.cfg, nil)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.RedirectURL() != "http://localhost:8888/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.RedirectURL())
			}
		})
	}

	t.Run("AuthURL", func(t *testing.T) {
		srv, _ := NewSpotifyService(testSpotifyConfig(), nil)
		authURL := srv.AuthURL("state-123")

		for _, want := range []string{spotifyAuthURL, "client_id=test_client_id", "state=state-123", "playlist-read-private"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("expected auth URL to contain %q, got %s", want, authURL)
			}
		}
	})
}

type fakeSpotify struct {
	server    *httptest.Server
	refreshes atomic.Int32
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()
	f := &fakeSpotify{}
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`))
		case "refresh_token":
			f.refreshes.Add(1)
			w.Write([]byte(`{"access_token":"access-2","token_type":"Bearer","expires_in":3600}`))
		}
	})

	mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer access-") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		offset := r.URL.Query().Get("offset")
		page := SpotifyPaginatedPlaylists{}
		if offset == "0" {
			next := f.server.URL + "/me/playlists?offset=1"
			page.Next = &next
			page.Items = []SpotifySimplePlaylist{{ID: "p1", Name: "Mix", SnapshotID: "snap-1", Tracks: trackTotal{Total: 3}}}
		} else {
			page.Items = []SpotifySimplePlaylist{{ID: "p2", Name: "Chill", SnapshotID: "snap-2", Tracks: trackTotal{Total: 0}}}
		}
		json.NewEncoder(w).Encode(page)
	})

	mux.HandleFunc("/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
		page := SpotifyPaginatedItems{}
		if r.URL.Query().Get("offset") == "0" {
			next := f.server.URL + "/playlists/p1/tracks?offset=3"
			page.Next = &next
			page.Items = []SpotifyPlaylistItem{
				{Track: &SpotifyTrack{ID: "t1", Name: "One", Type: "track", DurationMS: 61500,
					Artists: []SpotifyArtist{{Name: "A"}, {Name: "B"}}, ExternalIDs: externalIDs{ISRC: "USRC1"}}},
				{Track: nil},
				{Track: &SpotifyTrack{ID: "e1", Name: "Podcast", Type: "episode"}},
			}
		} else {
			page.Items = []SpotifyPlaylistItem{
				{Track: &SpotifyTrack{Name: "Local", Type: "track", IsLocal: true}},
				{Track: &SpotifyTrack{ID: "t2", Name: "Two", Type: "track", DurationMS: 1000,
					ExternalURLs: externalURLs{Spotify: "https://open.spotify.com/track/t2"}}},
			}
		}
		json.NewEncoder(w).Encode(page)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSpotify) service(t *testing.T) *SpotifyService {
	t.Helper()
	srv, err := NewSpotifyService(testSpotifyConfig(), f.server.Client())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return srv.WithEndpoints(f.server.URL, f.server.URL+"/authorize", f.server.URL+"/token")
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Not Authenticated", func(t *testing.T) {
		srv := newFakeSpotify(t).service(t)
		if _, err := srv.ListPlaylists(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		srv := newFakeSpotify(t).service(t)

		tok, err := srv.Exchange(ctx, "http://localhost:8888/callback?code=good-code&state=x")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tok.AccessToken != "access-1" || tok.RefreshToken != "refresh-1" {
			t.Errorf("unexpected token %+v", tok)
		}

		if _, err := srv.Exchange(ctx, "bad-code"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("ListPlaylists", func(t *testing.T) {
		srv := newFakeSpotify(t).service(t)
		srv.UseToken(ctx, &oauth2.Token{AccessToken: "access-1", Expiry: time.Now().Add(time.Hour)}, nil)

		playlists, err := srv.ListPlaylists(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].Playlist.ID != "p1" || playlists[0].Etag != "snap-1" || playlists[0].Playlist.Size != 3 {
			t.Errorf("unexpected first playlist %+v", playlists[0])
		}
		if playlists[1].Playlist.Title != "Chill" {
			t.Errorf("expected Chill, got %s", playlists[1].Playlist.Title)
		}
	})

	t.Run("FetchSongs", func(t *testing.T) {
		srv := newFakeSpotify(t).service(t)
		srv.UseToken(ctx, &oauth2.Token{AccessToken: "access-1", Expiry: time.Now().Add(time.Hour)}, nil)

		songs, err := srv.FetchSongs(ctx, "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 2 {
			t.Fatalf("expected 2 songs, got %d: %v", len(songs), songs)
		}

		first := songs[0]
		if first.ID != "t1" || first.ISRC != "USRC1" || first.Duration != 61500*time.Millisecond {
			t.Errorf("unexpected first song %+v", first)
		}
		if first.URL != "https://open.spotify.com/track/t1" {
			t.Errorf("expected fallback track URL, got %s", first.URL)
		}
		if fmt.Sprint(first.Artists) != "[A B]" {
			t.Errorf("expected artists [A B], got %v", first.Artists)
		}
		if songs[1].ID != "t2" {
			t.Errorf("expected t2 second, got %s", songs[1].ID)
		}
	})

	t.Run("Unknown Playlist", func(t *testing.T) {
		srv := newFakeSpotify(t).service(t)
		srv.UseToken(ctx, &oauth2.Token{AccessToken: "access-1", Expiry: time.Now().Add(time.Hour)}, nil)

		if _, err := srv.FetchSongs(ctx, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Refresh Persists Token", func(t *testing.T) {
		fake := newFakeSpotify(t)
		srv := fake.service(t)
		store := NewTokenStore(filepath.Join(t.TempDir(), "spotify.cache"))

		expired := &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Hour)}
		srv.UseToken(ctx, expired, store)

		if _, err := srv.ListPlaylists(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := fake.refreshes.Load(); got != 1 {
			t.Errorf("expected 1 refresh, got %d", got)
		}

		saved, err := store.Load()
		if err != nil {
			t.Fatalf("expected saved token, got %v", err)
		}
		if saved.AccessToken != "access-2" {
			t.Errorf("expected access-2 on disk, got %s", saved.AccessToken)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		srv := newFakeSpotify(t).service(t)

		valid := &oauth2.Token{AccessToken: "ok", Expiry: time.Now().Add(time.Hour)}
		if got, _ := srv.Refresh(ctx, valid); got != valid {
			t.Error("valid token should be returned unchanged")
		}

		noRefresh := &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}
		if _, err := srv.Refresh(ctx, noRefresh); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}

		expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Hour)}
		fresh, err := srv.Refresh(ctx, expired)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fresh.AccessToken != "access-2" {
			t.Errorf("expected access-2, got %s", fresh.AccessToken)
		}
	})
}

package sources_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/repositories"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/desertthunder/yauma/internal/sources"
	tu "github.com/desertthunder/yauma/internal/testing"
)

func setupCache(t *testing.T) *repositories.CacheRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.db3")
	if err := shared.InitDatabase(path); err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	return repositories.NewCacheRepository(path)
}

func songsFor(prefix string, n int) []models.Song {
	songs := make([]models.Song, n)
	for i := range songs {
		songs[i] = models.Song{ID: fmt.Sprintf("%s-%d", prefix, i), Title: fmt.Sprintf("Song %d", i), Artists: []string{}, Tags: []string{}}
	}
	return songs
}

func newRemote() *tu.MockRemote {
	remote := tu.NewMockRemote()
	remote.Add(models.Playlist{ID: "p1", Title: "First", Size: 2}, "v1", songsFor("p1", 2)...)
	remote.Add(models.Playlist{ID: "p2", Title: "Second", Size: 3}, "v1", songsFor("p2", 3)...)
	return remote
}

// failingCache reports every playlist as fresh but cannot read any of them back.
type failingCache struct{ upserts atomic.Int32 }

func (f *failingCache) NeedsUpdate(id, source, etag string) bool { return false }
func (f *failingCache) PlaylistEtag(id, source string) (string, error) {
	return "", shared.ErrCacheMiss
}
func (f *failingCache) LoadPlaylist(id, source string) (models.Playlist, error) {
	return models.Playlist{}, shared.ErrCacheMiss
}
func (f *failingCache) PlaylistSongs(id, source string) ([]models.Song, error) {
	return nil, shared.ErrCacheMiss
}
func (f *failingCache) UpsertPlaylist(source string, p models.Playlist, songs []models.Song, etag string) error {
	f.upserts.Add(1)
	return errors.New("disk full")
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("Read Through", func(t *testing.T) {
		cache := setupCache(t)
		remote := newRemote()

		first := sources.NewCatalog("Spotify", remote, cache, discard)
		playlists, err := first.Playlists(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 2 || playlists[0].ID != "p1" || playlists[1].ID != "p2" {
			t.Fatalf("unexpected playlists %v", playlists)
		}
		if remote.Fetches("p1") != 1 || remote.Fetches("p2") != 1 {
			t.Errorf("expected one remote fetch per playlist")
		}

		second := sources.NewCatalog("Spotify", remote, cache, discard)
		h, err := second.Playlist(ctx, "p2")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(h.Songs) != 3 || h.Songs[0].ID != "p2-0" {
			t.Errorf("unexpected cached songs %v", h.Songs)
		}
		if remote.Fetches("p2") != 1 {
			t.Errorf("fresh etag should be served from cache, got %d fetches", remote.Fetches("p2"))
		}
	})

	t.Run("Etag Change Refetches", func(t *testing.T) {
		cache := setupCache(t)
		remote := newRemote()

		sources.NewCatalog("Spotify", remote, cache, discard).Playlists(ctx)
		remote.SetEtag("p1", "v2")

		if _, err := sources.NewCatalog("Spotify", remote, cache, discard).Playlists(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if remote.Fetches("p1") != 2 {
			t.Errorf("expected p1 to be refetched, got %d fetches", remote.Fetches("p1"))
		}
		if remote.Fetches("p2") != 1 {
			t.Errorf("expected p2 from cache, got %d fetches", remote.Fetches("p2"))
		}
		if etag, _ := cache.PlaylistEtag("p1", "Spotify"); etag != "v2" {
			t.Errorf("expected cached etag v2, got %q", etag)
		}
	})

	t.Run("Logs Stale Etag", func(t *testing.T) {
		cache := setupCache(t)
		remote := newRemote()
		sources.NewCatalog("Spotify", remote, cache, discard).Playlists(ctx)
		remote.SetEtag("p2", "v3")

		var logs bytes.Buffer
		logger := shared.NewLogger(&logs)
		logger.SetLevel(log.DebugLevel)
		if _, err := sources.NewCatalog("Spotify", remote, cache, logger).Playlists(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := logs.String()
		if !strings.Contains(out, "playlist changed") || !strings.Contains(out, "v3") {
			t.Errorf("expected a debug line for the stale playlist, got %q", out)
		}
		if strings.Contains(out, "playlist=p1") {
			t.Errorf("fresh playlist should not be reported, got %q", out)
		}
	})

	t.Run("Memoized Until Refresh", func(t *testing.T) {
		remote := newRemote()
		catalog := sources.NewCatalog("Spotify", remote, setupCache(t), discard)

		catalog.Playlists(ctx)
		catalog.Playlists(ctx)
		catalog.Playlist(ctx, "p1")
		if remote.ListCalls != 1 {
			t.Errorf("expected 1 enumeration, got %d", remote.ListCalls)
		}

		catalog.Refresh()
		catalog.Playlists(ctx)
		if remote.ListCalls != 2 {
			t.Errorf("expected re-enumeration after refresh, got %d", remote.ListCalls)
		}
	})

	t.Run("Unknown Playlist", func(t *testing.T) {
		catalog := sources.NewCatalog("Spotify", newRemote(), setupCache(t), discard)
		if _, err := catalog.Playlist(ctx, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Listing Failure", func(t *testing.T) {
		remote := newRemote()
		remote.ListErr = shared.ErrServiceUnavailable
		catalog := sources.NewCatalog("Spotify", remote, setupCache(t), discard)
		if _, err := catalog.Playlists(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Failed Hydration Is Retried", func(t *testing.T) {
		remote := newRemote()
		remote.FetchErr["p1"] = shared.ErrAPIRequest
		catalog := sources.NewCatalog("Spotify", remote, setupCache(t), discard)

		playlists, err := catalog.Playlists(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 2 || playlists[0].Title != "First" {
			t.Fatalf("summary should still be listed, got %v", playlists)
		}

		if _, err := catalog.Playlist(ctx, "p1"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}

		delete(remote.FetchErr, "p1")
		h, err := catalog.Playlist(ctx, "p1")
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if len(h.Songs) != 2 {
			t.Errorf("expected 2 songs, got %d", len(h.Songs))
		}
	})

	t.Run("Cache Failures Fall Back To Remote", func(t *testing.T) {
		remote := newRemote()
		cache := &failingCache{}
		catalog := sources.NewCatalog("Spotify", remote, cache, discard)

		h, err := catalog.Playlist(ctx, "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(h.Songs) != 2 {
			t.Errorf("expected remote songs, got %v", h.Songs)
		}
		if got := cache.upserts.Load(); got != 2 {
			t.Errorf("expected write attempts for both playlists, got %d", got)
		}
	})

	t.Run("Unreachable Store", func(t *testing.T) {
		cache := repositories.NewCacheRepository(filepath.Join(t.TempDir(), "missing", "dir", "db.db3"))
		catalog := sources.NewCatalog("Spotify", newRemote(), cache, discard)

		playlists, err := catalog.Playlists(ctx)
		if err != nil || len(playlists) != 2 {
			t.Errorf("expected remote data despite the cache, got %v, %v", playlists, err)
		}
	})

	t.Run("Bounded Concurrent Hydration", func(t *testing.T) {
		remote := tu.NewMockRemote()
		for i := range 25 {
			id := fmt.Sprintf("pl%02d", i)
			remote.Add(models.Playlist{ID: id, Title: id}, "e", songsFor(id, 1)...)
		}
		catalog := sources.NewCatalog("Spotify", remote, setupCache(t), discard)

		playlists, err := catalog.Playlists(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for i, p := range playlists {
			if want := fmt.Sprintf("pl%02d", i); p.ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, p.ID)
			}
		}
	})

	t.Run("MarkDownloaded", func(t *testing.T) {
		catalog := sources.NewCatalog("Spotify", newRemote(), setupCache(t), discard)
		before, _ := catalog.Playlist(ctx, "p1")

		done := before.Songs[1]
		done.Downloaded = true
		done.URL = "/music/p1-1.opus"
		catalog.MarkDownloaded("p1", []models.Song{done})

		after, _ := catalog.Playlist(ctx, "p1")
		if !after.Songs[1].Downloaded || after.Songs[1].URL != done.URL {
			t.Errorf("expected downloaded song in memo, got %+v", after.Songs[1])
		}
		if before.Songs[1].Downloaded {
			t.Error("handles returned earlier must not be mutated")
		}
	})
}

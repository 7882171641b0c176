package sources

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/services"
	"github.com/desertthunder/yauma/internal/shared"
)

// HydrateConcurrency bounds how many playlists a [Catalog] loads at once.
const HydrateConcurrency = 10

// Cache is the part of the etag cache a [Catalog] reads and writes.
type Cache interface {
	NeedsUpdate(id, source, etag string) bool
	PlaylistEtag(id, source string) (string, error)
	LoadPlaylist(id, source string) (models.Playlist, error)
	PlaylistSongs(id, source string) ([]models.Song, error)
	UpsertPlaylist(source string, playlist models.Playlist, songs []models.Song, etag string) error
}

// Catalog is a read-through view of one source's playlists. Playlists whose etag matches the
// cache are loaded locally, the rest are fetched and written back.
//
// The first full load is memoized; later calls reuse it until [Catalog.Refresh].
type Catalog struct {
	source string
	remote services.Remote
	cache  Cache
	logger *log.Logger

	mu      sync.Mutex
	loaded  bool
	order   []string
	summary map[string]services.RemotePlaylist
	handles map[string]*Handle
}

// NewCatalog creates a catalog for the named source.
func NewCatalog(source string, remote services.Remote, cache Cache, logger *log.Logger) *Catalog {
	return &Catalog{
		source:  source,
		remote:  remote,
		cache:   cache,
		logger:  logger,
		summary: make(map[string]services.RemotePlaylist),
		handles: make(map[string]*Handle),
	}
}

// Playlists enumerates and hydrates every playlist, then returns their summaries in remote
// order.
func (c *Catalog) Playlists(ctx context.Context) ([]models.Playlist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(c.order))
	for _, id := range c.order {
		if h, ok := c.handles[id]; ok {
			playlists = append(playlists, h.Playlist)
		} else {
			playlists = append(playlists, c.summary[id].Playlist)
		}
	}
	return playlists, nil
}

// Playlist returns one hydrated playlist.
func (c *Catalog) Playlist(ctx context.Context, id string) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	if h, ok := c.handles[id]; ok {
		return copyHandle(h), nil
	}

	rp, ok := c.summary[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	h, err := c.hydrate(ctx, rp)
	if err != nil {
		return nil, err
	}
	c.handles[id] = h
	return copyHandle(h), nil
}

// Refresh drops the memoized state so the next call re-enumerates the remote.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loaded = false
	c.order = nil
	c.summary = make(map[string]services.RemotePlaylist)
	c.handles = make(map[string]*Handle)
}

// MarkDownloaded replaces memoized songs of a playlist with their downloaded versions.
func (c *Catalog) MarkDownloaded(playlistID string, songs []models.Song) {
	if len(songs) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.handles[playlistID]
	if !ok {
		return
	}

	byID := make(map[string]models.Song, len(songs))
	for _, s := range songs {
		byID[s.ID] = s
	}
	for i, s := range h.Songs {
		if done, ok := byID[s.ID]; ok {
			h.Songs[i] = done
		}
	}
}

// ensureLoaded must be called with mu held.
func (c *Catalog) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	remotes, err := c.remote.ListPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list %s playlists: %w", c.source, err)
	}

	order := make([]string, 0, len(remotes))
	summary := make(map[string]services.RemotePlaylist, len(remotes))
	for _, rp := range remotes {
		if _, dup := summary[rp.Playlist.ID]; dup {
			continue
		}
		order = append(order, rp.Playlist.ID)
		summary[rp.Playlist.ID] = rp
	}

	handles := make(map[string]*Handle, len(order))
	var (
		wg     sync.WaitGroup
		hmu    sync.Mutex
		tokens = make(chan struct{}, HydrateConcurrency)
	)
	for _, id := range order {
		wg.Add(1)
		go func(rp services.RemotePlaylist) {
			defer wg.Done()
			tokens <- struct{}{}
			defer func() { <-tokens }()

			h, err := c.hydrate(ctx, rp)
			if err != nil {
				c.logger.Warn("failed to load playlist", "source", c.source, "playlist", rp.Playlist.ID, "error", err)
				return
			}

			hmu.Lock()
			handles[rp.Playlist.ID] = h
			hmu.Unlock()
		}(summary[id])
	}
	wg.Wait()

	c.order = order
	c.summary = summary
	c.handles = handles
	c.loaded = true
	return nil
}

// hydrate loads one playlist from the cache when its etag is current, from the remote
// otherwise. Cache failures fall back to the remote; write failures are only logged.
func (c *Catalog) hydrate(ctx context.Context, rp services.RemotePlaylist) (*Handle, error) {
	id := rp.Playlist.ID

	if !c.cache.NeedsUpdate(id, c.source, rp.Etag) {
		h, err := c.fromCache(id)
		if err == nil {
			return h, nil
		}
		c.logger.Warn("cache read failed, fetching remotely", "source", c.source, "playlist", id, "error", err)
	} else if cached, err := c.cache.PlaylistEtag(id, c.source); err == nil {
		c.logger.Debug("playlist changed", "source", c.source, "playlist", id, "cached", cached, "remote", rp.Etag)
	}

	songs, err := c.remote.FetchSongs(ctx, id)
	if err != nil {
		return nil, err
	}

	playlist := rp.Playlist
	if playlist.Tags == nil {
		playlist.Tags = []string{}
	}

	if err := c.cache.UpsertPlaylist(c.source, playlist, songs, rp.Etag); err != nil {
		c.logger.Error("failed to cache playlist", "source", c.source, "playlist", id, "error", err)
	}

	return &Handle{Playlist: playlist, Songs: songs}, nil
}

func (c *Catalog) fromCache(id string) (*Handle, error) {
	playlist, err := c.cache.LoadPlaylist(id, c.source)
	if err != nil {
		return nil, err
	}
	songs, err := c.cache.PlaylistSongs(id, c.source)
	if err != nil {
		return nil, err
	}
	return &Handle{Playlist: playlist, Songs: songs}, nil
}

func copyHandle(h *Handle) *Handle {
	return &Handle{
		Playlist: h.Playlist,
		Songs:    append([]models.Song{}, h.Songs...),
	}
}

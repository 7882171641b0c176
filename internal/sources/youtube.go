package sources

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/services"
	"github.com/desertthunder/yauma/internal/tasks"
)

// YouTubeName is the protocol name of the YouTube source.
const YouTubeName = "Youtube"

// YouTube serves the configured YouTube playlists. Songs are downloaded from their watch URL.
type YouTube struct {
	catalog *Catalog
	jobs    *tasks.Orchestrator
}

// NewYouTube creates the YouTube source.
func NewYouTube(remote services.Remote, cache Cache, jobs *tasks.Orchestrator, logger *log.Logger) *YouTube {
	return &YouTube{
		catalog: NewCatalog(YouTubeName, remote, cache, logger),
		jobs:    jobs,
	}
}

func (y *YouTube) Name() string { return YouTubeName }

func (y *YouTube) AllPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return y.catalog.Playlists(ctx)
}

func (y *YouTube) PlaylistByID(ctx context.Context, id string) (*Handle, error) {
	return y.catalog.Playlist(ctx, id)
}

func (y *YouTube) Refresh() { y.catalog.Refresh() }

func (y *YouTube) Download(ctx context.Context, songs []models.Song, playlist models.Playlist, out Outbox) {
	y.jobs.Start(ctx, tasks.Job{
		Source:   YouTubeName,
		Playlist: playlist,
		Songs:    songs,
		Out:      out,
		Done: func(res tasks.Result) {
			y.catalog.MarkDownloaded(playlist.ID, res.Succeeded)
		},
	})
}

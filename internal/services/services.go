package services

import (
	"context"

	"github.com/desertthunder/yauma/internal/models"
)

// UserAgent is sent with every outgoing request. MusicBrainz rejects anonymous clients.
const UserAgent = "yauma/0.1 ( https://github.com/desertthunder/yauma )"

// RemotePlaylist is a playlist summary as reported by a remote service, with the etag used
// to decide whether the cached copy is stale.
type RemotePlaylist struct {
	Playlist models.Playlist
	Etag     string
}

// Remote is the read side shared by every remote music service.
type Remote interface {
	ListPlaylists(ctx context.Context) ([]RemotePlaylist, error)
	FetchSongs(ctx context.Context, playlistID string) ([]models.Song, error)
}

package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
)

// Outbox is where a source writes answers for one connection. Send returns
// [shared.ErrOutboxClosed] once the connection is gone.
type Outbox interface {
	Send(ctx context.Context, answer models.Answer) error
}

// Handle is a fully hydrated playlist.
type Handle struct {
	Playlist models.Playlist
	Songs    []models.Song
}

// Source is a named music catalog.
type Source interface {
	Name() string
	AllPlaylists(ctx context.Context) ([]models.Playlist, error)
	// PlaylistByID returns an error wrapping [shared.ErrPlaylistNotFound] for unknown ids.
	PlaylistByID(ctx context.Context, id string) (*Handle, error)
	// Download starts a background job and returns immediately.
	Download(ctx context.Context, songs []models.Song, playlist models.Playlist, out Outbox)
}

// Session is the per-connection view a source gets while authenticating.
type Session interface {
	// Receive blocks for the next request broadcast on the connection. It returns false once
	// the connection is closed.
	Receive(ctx context.Context) (models.Request, bool)
	// Defer queues a request to be dispatched after authentication finishes.
	Defer(req models.Request)
	Outbox() Outbox
}

// Authenticator is implemented by sources that need an interactive handshake before they can
// serve requests.
type Authenticator interface {
	Authenticate(ctx context.Context, sess Session) error
}

// Refresher is implemented by sources that memoize remote state.
type Refresher interface {
	Refresh()
}

// Dispatch handles one request on behalf of src. Requests addressed to another source are
// ignored. The only error returned is a failure to write to out.
func Dispatch(ctx context.Context, src Source, req models.Request, out Outbox, logger *log.Logger) error {
	name := src.Name()
	if !req.AddressedTo(name) {
		return nil
	}

	send := func(data models.AnswerType) error {
		return out.Send(ctx, models.NewAnswer(name, data))
	}

	ty := req.Type
	switch {
	case ty.Kind == models.RequestGetAll && ty.Object.Kind == models.ObjPlaylistList:
		playlists, err := src.AllPlaylists(ctx)
		if err != nil {
			logger.Error("failed to list playlists", "source", name, "error", err)
			return nil
		}
		return send(models.PlaylistListAnswer(playlists))

	case ty.Kind == models.RequestGetAll && ty.Object.Kind == models.ObjPlaylist:
		handle, err := src.PlaylistByID(ctx, ty.Object.Value)
		if errors.Is(err, shared.ErrPlaylistNotFound) {
			return send(models.ErrorAnswer(models.SourcePlaylistNotFound))
		}
		if err != nil {
			logger.Error("failed to load playlist", "source", name, "playlist", ty.Object.Value, "error", err)
			return nil
		}
		return send(models.SongsAnswer(handle.Playlist, handle.Songs))

	case ty.Kind == models.RequestDownload && ty.Object.Kind == models.ObjPlaylist:
		handle, err := src.PlaylistByID(ctx, ty.Object.Value)
		if errors.Is(err, shared.ErrPlaylistNotFound) {
			return send(models.ErrorAnswer(models.SourcePlaylistNotFound))
		}
		if err != nil {
			logger.Error("failed to load playlist for download", "source", name, "playlist", ty.Object.Value, "error", err)
			return nil
		}
		src.Download(ctx, handle.Songs, handle.Playlist, out)
		return nil

	case ty.Kind == models.RequestGetAll && ty.Object.Kind == models.ObjClientList:
		return send(models.ClientAnswer(name))
	}

	logger.Debug("ignoring request", "source", name, "request", req.String())
	return nil
}

// Registry is the ordered set of sources served by the process.
type Registry struct {
	sources []Source
	byName  map[string]Source
}

// NewRegistry registers srcs in order.
func NewRegistry(srcs ...Source) (*Registry, error) {
	r := &Registry{byName: make(map[string]Source)}
	for _, s := range srcs {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds src. Names must be unique and must not be the broadcast addressee.
func (r *Registry) Register(src Source) error {
	name := src.Name()
	if name == "" || name == models.AddresseeAll {
		return fmt.Errorf("%w: source name %q", shared.ErrInvalidArgument, name)
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: duplicate source %q", shared.ErrInvalidArgument, name)
	}
	r.sources = append(r.sources, src)
	r.byName[name] = src
	return nil
}

// Get looks up a source by name.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// All returns the sources in registration order.
func (r *Registry) All() []Source {
	return append([]Source(nil), r.sources...)
}

// Names returns the source names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// Refresh drops memoized remote state of every source that keeps any.
func (r *Registry) Refresh() {
	for _, s := range r.sources {
		if rf, ok := s.(Refresher); ok {
			rf.Refresh()
		}
	}
}

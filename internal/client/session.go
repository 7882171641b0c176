package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/wire"
)

// EventKind says which part of the session state an answer changed.
type EventKind string

const (
	EventSource    EventKind = "source"
	EventPlaylists EventKind = "playlists"
	EventSongs     EventKind = "songs"
	EventProgress  EventKind = "progress"
	EventMessage   EventKind = "message"
	EventError     EventKind = "error"
	EventIgnored   EventKind = "ignored"
)

// Event is the result of handling one answer.
type Event struct {
	Kind       EventKind
	Source     string
	PlaylistID string
	Text       string
}

// Session is a client connection to a yauma server.
type Session struct {
	conn   net.Conn
	out    *wire.Writer
	logger *log.Logger
	once   sync.Once

	mu      sync.RWMutex
	order   []string
	sources map[string]*sourceState
	latest  *ProgressUpdate
}

// Dial connects to the server at addr.
func Dial(ctx context.Context, addr string, logger *log.Logger) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn, logger), nil
}

// New wraps an established connection.
func New(conn net.Conn, logger *log.Logger) *Session {
	return &Session{
		conn:    conn,
		out:     wire.NewWriter(conn),
		logger:  logger,
		sources: make(map[string]*sourceState),
	}
}

// Close sends a close frame and closes the connection.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		if werr := s.out.Close(); werr != nil {
			s.logger.Debug("failed to send close frame", "error", werr)
		}
		err = s.conn.Close()
	})
	return err
}

func (s *Session) send(req models.Request) error {
	s.logger.Debug("request", "request", req.String())
	if err := s.out.Send(req); err != nil {
		return fmt.Errorf("send %s: %w", req, err)
	}
	return nil
}

// RequestSources asks every source on the server to announce itself.
func (s *Session) RequestSources() error {
	return s.send(models.NewRequest(models.AddresseeAll, models.GetAll(models.ClientListObj())))
}

// Download asks source to download a playlist. Progress arrives as [EventProgress].
func (s *Session) Download(source, playlistID string) error {
	return s.send(models.NewRequest(source, models.Download(models.PlaylistObj(playlistID))))
}

// SendMessage answers a pending message from source, such as an authorization prompt.
func (s *Session) SendMessage(source, text string) error {
	if err := s.send(models.NewRequest(source, models.Message(text))); err != nil {
		return err
	}

	s.mu.Lock()
	if src, ok := s.sources[source]; ok {
		src.message = ""
	}
	s.mu.Unlock()
	return nil
}

// Refresh asks source for its playlist list again. Songs are reloaded when the list arrives.
func (s *Session) Refresh(source string) error {
	return s.send(models.NewRequest(source, models.GetAll(models.PlaylistListObj())))
}

// HandleAnswer folds an answer into the session state and sends the follow-up requests it
// implies. Send failures are logged; the state update still happens.
func (s *Session) HandleAnswer(answer models.Answer) Event {
	event, followUps := s.apply(answer)
	for _, req := range followUps {
		if err := s.send(req); err != nil {
			s.logger.Warn("failed to send follow-up request", "error", err)
			break
		}
	}
	return event
}

func (s *Session) apply(answer models.Answer) (Event, []models.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := answer.Data
	event := Event{Source: answer.Client}
	src, _ := s.source(answer.Client)

	var followUps []models.Request
	switch data.Kind {
	case models.AnswerClient:
		event.Kind = EventSource
		if !src.announced {
			src.announced = true
			followUps = append(followUps, models.NewRequest(src.name, models.GetAll(models.PlaylistListObj())))
		}

	case models.AnswerPlaylistList:
		event.Kind = EventPlaylists
		src.replace(data.Playlists)
		for _, id := range src.order {
			followUps = append(followUps, models.NewRequest(src.name, models.GetAll(models.PlaylistObj(id))))
		}

	case models.AnswerPlaylist:
		event.Kind = EventPlaylists
		event.PlaylistID = data.Playlist.ID
		src.playlist(data.Playlist).playlist = data.Playlist

	case models.AnswerSongs:
		event.Kind = EventSongs
		event.PlaylistID = data.Playlist.ID
		ps := src.playlist(data.Playlist)
		ps.playlist = data.Playlist
		ps.songs = data.Songs
		ps.loaded = true

	case models.AnswerDownloadProgress:
		event.Kind = EventProgress
		event.PlaylistID = data.Playlist.ID
		s.report(src, data.Playlist, Progress{Done: data.Done, Total: data.Total})

	case models.AnswerDownloadFinish:
		event.Kind = EventProgress
		event.PlaylistID = data.Playlist.ID
		p := Progress{Finished: true}
		if ps, ok := src.playlists[data.Playlist.ID]; ok && ps.progress != nil {
			p.Total = ps.progress.Total
			p.Done = ps.progress.Total
		}
		s.report(src, data.Playlist, p)

	case models.AnswerMessage:
		event.Kind = EventMessage
		event.Text = data.Text
		src.message = data.Text

	case models.AnswerError:
		event.Kind = EventError
		event.Text = string(data.Error.Source)
		src.lastError = data.Error.Source

	default:
		event.Kind = EventIgnored
	}
	return event, followUps
}

// report records download progress. Callers hold s.mu.
func (s *Session) report(src *sourceState, p models.Playlist, progress Progress) {
	ps := src.playlist(p)
	ps.progress = &progress
	s.latest = &ProgressUpdate{Source: src.name, Playlist: ps.playlist, Progress: progress}
}

// Listen reads answers until the server closes the connection or ctx is cancelled, passing
// every resulting event to handler. It requests the source list before reading.
//
// A close frame from the server or a cancelled ctx returns nil.
func (s *Session) Listen(ctx context.Context, handler func(Event)) error {
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := s.RequestSources(); err != nil {
		return err
	}

	r := wire.NewReader(s.conn, s.logger)
	for {
		payload, err := r.Next()
		if errors.Is(err, io.EOF) {
			s.logger.Info("server closed the connection")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		answer, err := models.ParseAnswer(payload)
		if err != nil {
			s.logger.Warn("dropping malformed answer", "error", err)
			continue
		}
		s.logger.Debug("answer", "answer", answer.String())

		event := s.HandleAnswer(answer)
		if handler != nil {
			handler(event)
		}
	}
}

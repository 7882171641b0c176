package client

import (
	"slices"

	"github.com/desertthunder/yauma/internal/models"
)

// Progress is the download state of one playlist.
type Progress struct {
	Done     uint64
	Total    uint64
	Finished bool
}

// Percent is the completed fraction in [0, 1].
func (p Progress) Percent() float64 {
	if p.Finished {
		return 1
	}
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressUpdate names the playlist a [Progress] belongs to.
type ProgressUpdate struct {
	Source   string
	Playlist models.Playlist
	Progress Progress
}

type playlistState struct {
	playlist models.Playlist
	songs    []models.Song
	loaded   bool
	progress *Progress
}

type sourceState struct {
	name      string
	order     []string
	playlists map[string]*playlistState
	message   string
	lastError models.SourceError
	announced bool
}

func newSourceState(name string) *sourceState {
	return &sourceState{name: name, playlists: make(map[string]*playlistState)}
}

// playlist returns the entry for p, adding it at the end when it is new.
func (s *sourceState) playlist(p models.Playlist) *playlistState {
	if ps, ok := s.playlists[p.ID]; ok {
		return ps
	}
	ps := &playlistState{playlist: p}
	s.playlists[p.ID] = ps
	s.order = append(s.order, p.ID)
	return ps
}

// replace swaps the playlist list while keeping songs and progress of playlists that survive.
func (s *sourceState) replace(playlists []models.Playlist) {
	next := make(map[string]*playlistState, len(playlists))
	order := make([]string, 0, len(playlists))
	for _, p := range playlists {
		if _, seen := next[p.ID]; seen {
			continue
		}
		ps, ok := s.playlists[p.ID]
		if !ok {
			ps = &playlistState{}
		}
		ps.playlist = p
		next[p.ID] = ps
		order = append(order, p.ID)
	}
	s.playlists = next
	s.order = order
}

// Sources lists source names in discovery order.
func (s *Session) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Playlists lists the playlists known for source.
func (s *Session) Playlists(source string) []models.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[source]
	if !ok {
		return nil
	}
	out := make([]models.Playlist, 0, len(src.order))
	for _, id := range src.order {
		out = append(out, src.playlists[id].playlist)
	}
	return out
}

// Songs returns the songs of a playlist and whether they have been received yet.
func (s *Session) Songs(source, playlistID string) ([]models.Song, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps := s.lookup(source, playlistID)
	if ps == nil {
		return nil, false
	}
	return slices.Clone(ps.songs), ps.loaded
}

// Progress reports the download state of a playlist, if a download was ever reported.
func (s *Session) Progress(source, playlistID string) (Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps := s.lookup(source, playlistID)
	if ps == nil || ps.progress == nil {
		return Progress{}, false
	}
	return *ps.progress, true
}

// LatestProgress is the most recent download report across all sources.
func (s *Session) LatestProgress() (ProgressUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return ProgressUpdate{}, false
	}
	return *s.latest, true
}

// Message is the last unanswered message sent by source, such as an authorization URL.
func (s *Session) Message(source string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if src, ok := s.sources[source]; ok {
		return src.message
	}
	return ""
}

// PendingMessages maps source names to their unanswered messages.
func (s *Session) PendingMessages() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	for name, src := range s.sources {
		if src.message != "" {
			out[name] = src.message
		}
	}
	return out
}

// LastError is the last error answer received from source.
func (s *Session) LastError(source string) models.SourceError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if src, ok := s.sources[source]; ok {
		return src.lastError
	}
	return ""
}

func (s *Session) lookup(source, playlistID string) *playlistState {
	src, ok := s.sources[source]
	if !ok {
		return nil
	}
	return src.playlists[playlistID]
}

// source returns the state for name, creating it when an answer arrives before its Client
// announcement. Callers hold s.mu.
func (s *Session) source(name string) (*sourceState, bool) {
	if src, ok := s.sources[name]; ok {
		return src, false
	}
	src := newSourceState(name)
	s.sources[name] = src
	s.order = append(s.order, name)
	return src, true
}

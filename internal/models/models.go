package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/desertthunder/yauma/internal/shared"
)

// Song identifies one playable track within a source.
//
// URL is a remote locator until the song is downloaded, then a local file path.
type Song struct {
	ID         string
	Title      string
	Artists    []string
	Tags       []string
	Duration   time.Duration
	URL        string
	Downloaded bool
	ISRC       string // International Standard Recording Code, empty when the source has none
}

// Playlist is a named, ordered collection of songs owned by one source.
//
// Size is the member count reported by the source, not necessarily the number of songs loaded.
type Playlist struct {
	ID    string
	Title string
	Tags  []string
	Size  uint32
}

// ArtistLine joins the artists for display.
func (s Song) ArtistLine() string {
	return strings.Join(s.Artists, ", ")
}

// String implements [fmt.Stringer] for log output.
func (s Song) String() string {
	if len(s.Artists) == 0 {
		return s.Title
	}
	return fmt.Sprintf("%s - %s", s.Title, s.ArtistLine())
}

// durationJSON is the {secs, nanos} object used on the wire for durations.
type durationJSON struct {
	Secs  uint64 `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

func toDurationJSON(d time.Duration) durationJSON {
	if d <= 0 {
		return durationJSON{}
	}
	return durationJSON{Secs: uint64(d / time.Second), Nanos: uint32(d % time.Second)}
}

func (d durationJSON) duration() (time.Duration, error) {
	if d.Nanos >= uint32(time.Second) {
		return 0, fmt.Errorf("%w: nanos %d out of range", shared.ErrParse, d.Nanos)
	}
	if d.Secs > uint64(math.MaxInt64/int64(time.Second)) {
		return 0, fmt.Errorf("%w: duration of %d seconds overflows", shared.ErrParse, d.Secs)
	}
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos), nil
}

type songJSON struct {
	Title      string       `json:"title"`
	Artists    []string     `json:"artists"`
	Tags       []string     `json:"tags"`
	ID         string       `json:"id"`
	Duration   durationJSON `json:"duration"`
	URL        string       `json:"url"`
	Downloaded bool         `json:"downloaded"`
	ISRC       string       `json:"isrc,omitempty"`
}

// MarshalJSON encodes nil slices as empty arrays and the duration as {secs, nanos}.
func (s Song) MarshalJSON() ([]byte, error) {
	return json.Marshal(songJSON{
		Title:      s.Title,
		Artists:    nonNil(s.Artists),
		Tags:       nonNil(s.Tags),
		ID:         s.ID,
		Duration:   toDurationJSON(s.Duration),
		URL:        s.URL,
		Downloaded: s.Downloaded,
		ISRC:       s.ISRC,
	})
}

// UnmarshalJSON implements [json.Unmarshaler].
func (s *Song) UnmarshalJSON(data []byte) error {
	var raw songJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: song: %v", shared.ErrParse, err)
	}
	d, err := raw.Duration.duration()
	if err != nil {
		return err
	}
	*s = Song{
		ID:         raw.ID,
		Title:      raw.Title,
		Artists:    raw.Artists,
		Tags:       raw.Tags,
		Duration:   d,
		URL:        raw.URL,
		Downloaded: raw.Downloaded,
		ISRC:       raw.ISRC,
	}
	return nil
}

type playlistJSON struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
	ID    string   `json:"id"`
	Size  uint32   `json:"size"`
}

// MarshalJSON implements [json.Marshaler].
func (p Playlist) MarshalJSON() ([]byte, error) {
	return json.Marshal(playlistJSON{Title: p.Title, Tags: nonNil(p.Tags), ID: p.ID, Size: p.Size})
}

// UnmarshalJSON implements [json.Unmarshaler].
func (p *Playlist) UnmarshalJSON(data []byte) error {
	var raw playlistJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: playlist: %v", shared.ErrParse, err)
	}
	*p = Playlist{ID: raw.ID, Title: raw.Title, Tags: raw.Tags, Size: raw.Size}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

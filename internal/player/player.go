package player

import "time"

// VolumeStep is the volume change for one key press.
const VolumeStep = 5

// RepeatMode is the loop setting of the player.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatPlaylist
	RepeatSong
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatPlaylist:
		return "playlist"
	case RepeatSong:
		return "song"
	default:
		return "off"
	}
}

// Next is the mode after r in the off, playlist, song cycle.
func (r RepeatMode) Next() RepeatMode {
	return (r + 1) % 3
}

// State is a snapshot of the player.
type State struct {
	Title      string
	Position   time.Duration
	Duration   time.Duration
	Volume     int
	Paused     bool
	Stopped    bool
	InPlaylist bool
	Shuffled   bool
	Repeat     RepeatMode
}

// Percent is the playback position as a fraction of the duration.
func (s State) Percent() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return min(1, float64(s.Position)/float64(s.Duration))
}

// Player controls playback.
type Player interface {
	Play(url string) error
	TogglePause() error
	SetPause(paused bool) error
	Stop() error
	// Seek moves the position by seconds, backwards when negative.
	Seek(seconds float64) error
	SeekPercent(percent int) error
	// SetVolume clamps volume to 0..100.
	SetVolume(volume int) error
	AddVolume(delta int) error
	// ToggleShuffle is a no-op outside playlist mode.
	ToggleShuffle() error
	// TogglePlaylist enters playlist mode with urls queued, or leaves it.
	TogglePlaylist(urls []string) error
	CycleRepeat() error
	Next() error
	Prev() error
	State() State
	Close() error
}

func clampVolume(v int) int {
	return max(0, min(100, v))
}

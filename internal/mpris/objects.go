package mpris

import (
	"time"

	"github.com/desertthunder/yauma/internal/player"
	"github.com/godbus/dbus/v5"
)

// mediaPlayer is org.mpris.MediaPlayer2. The client has no window, so Raise and Quit do nothing.
type mediaPlayer struct{}

func (mediaPlayer) Raise() *dbus.Error { return nil }
func (mediaPlayer) Quit() *dbus.Error  { return nil }

// playerControls is org.mpris.MediaPlayer2.Player. Every exported method is a D-Bus method.
type playerControls struct {
	player player.Player
}

func (c playerControls) Next() *dbus.Error      { return dbusError(c.player.Next()) }
func (c playerControls) Previous() *dbus.Error  { return dbusError(c.player.Prev()) }
func (c playerControls) Pause() *dbus.Error     { return dbusError(c.player.SetPause(true)) }
func (c playerControls) Play() *dbus.Error      { return dbusError(c.player.SetPause(false)) }
func (c playerControls) PlayPause() *dbus.Error { return dbusError(c.player.TogglePause()) }
func (c playerControls) Stop() *dbus.Error      { return dbusError(c.player.Stop()) }

// Seek moves by offset microseconds.
func (c playerControls) Seek(offset int64) *dbus.Error {
	return dbusError(c.player.Seek((time.Duration(offset) * time.Microsecond).Seconds()))
}

// SetPosition jumps to position microseconds. The track id is not checked since the client
// only ever has one current track.
func (c playerControls) SetPosition(_ dbus.ObjectPath, position int64) *dbus.Error {
	state := c.player.State()
	target := time.Duration(position) * time.Microsecond
	if target < 0 || (state.Duration > 0 && target > state.Duration) {
		return nil
	}
	return dbusError(c.player.Seek((target - state.Position).Seconds()))
}

func (c playerControls) OpenUri(uri string) *dbus.Error {
	return dbusError(c.player.Play(uri))
}

type change struct {
	name  string
	value any
}

// poller tracks the last published player properties.
type poller struct {
	player     player.Player
	nowPlaying NowPlaying
	last       map[string]any
}

func newPoller(p player.Player, nowPlaying NowPlaying) *poller {
	return &poller{player: p, nowPlaying: nowPlaying, last: make(map[string]any)}
}

// poll returns the properties whose value changed since the previous call. Position is always
// returned since clients read it rather than wait for a signal.
func (p *poller) poll() []change {
	state := p.player.State()
	song, ok := current(p.nowPlaying)

	values := []change{
		{"PlaybackStatus", playbackStatus(state)},
		{"LoopStatus", loopStatus(state)},
		{"Shuffle", state.Shuffled},
		{"Volume", float64(state.Volume) / 100},
		{"Metadata", metadata(song, ok, state)},
	}

	var out []change
	for _, v := range values {
		if prev, seen := p.last[v.name]; seen && equal(prev, v.value) {
			continue
		}
		p.last[v.name] = v.value
		out = append(out, v)
	}
	return append(out, change{"Position", state.Position.Microseconds()})
}

func equal(a, b any) bool {
	am, aok := a.(map[string]dbus.Variant)
	bm, bok := b.(map[string]dbus.Variant)
	if aok && bok {
		if len(am) != len(bm) {
			return false
		}
		for k, v := range am {
			w, ok := bm[k]
			if !ok || v.String() != w.String() {
				return false
			}
		}
		return true
	}
	return a == b
}

package player

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Fake is an in-memory [Player] that records every call.
type Fake struct {
	mu    sync.Mutex
	calls []string
	state State
	queue []string
	index int
	// Err, when set, is returned by every command and leaves the state unchanged.
	Err   error
}

// NewFake returns a stopped player at full volume.
func NewFake() *Fake {
	return &Fake{state: State{Volume: 100, Stopped: true}}
}

// Calls lists the recorded commands, formatted as name(args).
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *Fake) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.Err
}

func (f *Fake) Play(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Play(%s)", url); err != nil {
		return err
	}
	f.state.Title = url
	f.state.Position = 0
	f.state.Paused = false
	f.state.Stopped = false
	f.state.InPlaylist = false
	f.state.Shuffled = false
	return nil
}

func (f *Fake) TogglePause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("TogglePause()"); err != nil {
		return err
	}
	f.state.Paused = !f.state.Paused
	return nil
}

func (f *Fake) SetPause(paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetPause(%v)", paused); err != nil {
		return err
	}
	f.state.Paused = paused
	return nil
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Stop()"); err != nil {
		return err
	}
	f.state = State{Volume: f.state.Volume, Stopped: true, Repeat: f.state.Repeat}
	f.queue = nil
	return nil
}

func (f *Fake) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Seek(%g)", seconds); err != nil {
		return err
	}
	f.state.Position = max(0, f.state.Position+time.Duration(seconds*float64(time.Second)))
	return nil
}

func (f *Fake) SeekPercent(percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	percent = max(0, min(100, percent))
	if err := f.record("SeekPercent(%d)", percent); err != nil {
		return err
	}
	f.state.Position = f.state.Duration * time.Duration(percent) / 100
	return nil
}

func (f *Fake) SetVolume(volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setVolume(volume)
}

func (f *Fake) setVolume(volume int) error {
	volume = clampVolume(volume)
	if err := f.record("SetVolume(%d)", volume); err != nil {
		return err
	}
	f.state.Volume = volume
	return nil
}

func (f *Fake) AddVolume(delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setVolume(f.state.Volume + delta)
}

func (f *Fake) ToggleShuffle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.state.InPlaylist {
		return nil
	}
	if err := f.record("ToggleShuffle()"); err != nil {
		return err
	}
	f.state.Shuffled = !f.state.Shuffled
	return nil
}

func (f *Fake) TogglePlaylist(urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("TogglePlaylist(%d)", len(urls)); err != nil {
		return err
	}
	if f.state.InPlaylist {
		f.state.InPlaylist = false
		f.state.Shuffled = false
		f.queue = nil
		return nil
	}
	if len(urls) == 0 {
		return nil
	}
	f.queue = slices.Clone(urls)
	f.index = 0
	f.state.Title = urls[0]
	f.state.Stopped = false
	f.state.InPlaylist = true
	return nil
}

func (f *Fake) CycleRepeat() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CycleRepeat()"); err != nil {
		return err
	}
	f.state.Repeat = f.state.Repeat.Next()
	return nil
}

func (f *Fake) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Next()"); err != nil {
		return err
	}
	if f.index+1 < len(f.queue) {
		f.index++
		f.state.Title = f.queue[f.index]
	}
	return nil
}

func (f *Fake) Prev() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Prev()"); err != nil {
		return err
	}
	if f.index > 0 && f.index < len(f.queue) {
		f.index--
		f.state.Title = f.queue[f.index]
	}
	return nil
}

func (f *Fake) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetState replaces the snapshot returned by State.
func (f *Fake) SetState(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("Close()")
}

var (
	_ Player = (*Fake)(nil)
	_ Player = (*MPV)(nil)
)

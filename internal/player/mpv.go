package player

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/shared"
)

const (
	DefaultMPVPath = "mpv"
	commandTimeout = 2 * time.Second
	startTimeout   = 5 * time.Second
)

// MPV is a [Player] backed by an mpv process.
type MPV struct {
	ipc    *ipc
	cmd    *exec.Cmd
	socket string
	logger *log.Logger

	mu         sync.Mutex
	inPlaylist bool
	shuffled   bool
	repeat     RepeatMode
}

// StartMPV launches mpv in idle mode and connects to its IPC socket.
func StartMPV(ctx context.Context, path string, logger *log.Logger) (*MPV, error) {
	if path == "" {
		path = DefaultMPVPath
	}
	socket := filepath.Join(os.TempDir(), "yauma-mpv-"+shared.ShortID()+".sock")

	cmd := exec.CommandContext(ctx, path,
		"--idle=yes",
		"--no-video",
		"--ytdl=yes",
		"--no-terminal",
		"--input-ipc-server="+socket,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", shared.ErrPlayerUnavailable, path, err)
	}

	conn, err := dialSocket(ctx, socket)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	m := NewMPV(conn, logger)
	m.cmd = cmd
	m.socket = socket
	return m, nil
}

func dialSocket(ctx context.Context, socket string) (net.Conn, error) {
	deadline := time.Now().Add(startTimeout)
	for {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: dial %s: %v", shared.ErrPlayerUnavailable, socket, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// NewMPV talks to an mpv instance already listening on conn.
func NewMPV(conn net.Conn, logger *log.Logger) *MPV {
	return &MPV{ipc: newIPC(conn), logger: logger}
}

func (m *MPV) run(args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	_, err := m.ipc.command(ctx, args...)
	return err
}

func (m *MPV) setProperty(name string, v any) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return m.ipc.set(ctx, name, v)
}

// Play replaces whatever is playing with url and leaves playlist mode.
func (m *MPV) Play(url string) error {
	m.mu.Lock()
	m.inPlaylist = false
	m.shuffled = false
	m.mu.Unlock()

	if err := m.run("loadfile", url, "replace"); err != nil {
		return err
	}
	return m.setProperty("pause", false)
}

func (m *MPV) TogglePause() error {
	return m.run("cycle", "pause")
}

func (m *MPV) SetPause(paused bool) error {
	return m.setProperty("pause", paused)
}

func (m *MPV) Stop() error {
	m.mu.Lock()
	m.inPlaylist = false
	m.shuffled = false
	m.mu.Unlock()
	return m.run("stop")
}

func (m *MPV) Seek(seconds float64) error {
	return m.run("seek", seconds, "relative")
}

func (m *MPV) SeekPercent(percent int) error {
	return m.run("seek", max(0, min(100, percent)), "absolute-percent")
}

func (m *MPV) SetVolume(volume int) error {
	return m.setProperty("volume", clampVolume(volume))
}

func (m *MPV) AddVolume(delta int) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var current float64
	if err := m.ipc.get(ctx, "volume", &current); err != nil {
		return err
	}
	return m.SetVolume(int(current) + delta)
}

func (m *MPV) ToggleShuffle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inPlaylist {
		return nil
	}

	command := "playlist-shuffle"
	if m.shuffled {
		command = "playlist-unshuffle"
	}
	if err := m.run(command); err != nil {
		return err
	}
	m.shuffled = !m.shuffled
	return nil
}

// TogglePlaylist queues urls and starts the first one, or drops the queue while keeping the
// current song when already in playlist mode.
func (m *MPV) TogglePlaylist(urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.run("playlist-clear"); err != nil {
		return err
	}
	if m.inPlaylist {
		m.inPlaylist = false
		m.shuffled = false
		return nil
	}
	if len(urls) == 0 {
		return nil
	}

	for i, url := range urls {
		mode := "append-play"
		if i == 0 {
			mode = "replace"
		}
		if err := m.run("loadfile", url, mode); err != nil {
			return err
		}
	}
	m.inPlaylist = true
	return nil
}

func (m *MPV) CycleRepeat() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.repeat.Next()
	loopFile, loopPlaylist := "no", "no"
	switch next {
	case RepeatSong:
		loopFile = "inf"
	case RepeatPlaylist:
		loopPlaylist = "inf"
	}

	if err := m.setProperty("loop-file", loopFile); err != nil {
		return err
	}
	if err := m.setProperty("loop-playlist", loopPlaylist); err != nil {
		return err
	}
	m.repeat = next
	return nil
}

func (m *MPV) Next() error {
	return m.run("playlist-next", "weak")
}

func (m *MPV) Prev() error {
	return m.run("playlist-prev", "weak")
}

// State reads the current playback properties. Properties mpv cannot report while idle are
// left at their zero values.
func (m *MPV) State() State {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var (
		title            string
		position, length float64
		volume           float64
		paused, idle     bool
	)
	m.ipc.get(ctx, "media-title", &title)
	m.ipc.get(ctx, "time-pos", &position)
	m.ipc.get(ctx, "duration", &length)
	m.ipc.get(ctx, "volume", &volume)
	m.ipc.get(ctx, "pause", &paused)
	if err := m.ipc.get(ctx, "idle-active", &idle); errors.Is(err, shared.ErrPlayerUnavailable) {
		idle = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Title:      title,
		Position:   seconds(position),
		Duration:   seconds(length),
		Volume:     int(volume),
		Paused:     paused,
		Stopped:    idle,
		InPlaylist: m.inPlaylist,
		Shuffled:   m.shuffled,
		Repeat:     m.repeat,
	}
}

// Close quits mpv and removes its socket.
func (m *MPV) Close() error {
	if err := m.run("quit"); err != nil {
		m.logger.Debug("mpv quit failed", "error", err)
	}
	err := m.ipc.Close()

	if m.cmd != nil {
		done := make(chan struct{})
		go func() {
			m.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(startTimeout):
			m.cmd.Process.Kill()
			<-done
		}
	}
	if m.socket != "" {
		os.Remove(m.socket)
	}
	return err
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

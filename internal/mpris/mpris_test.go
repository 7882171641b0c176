package mpris

import (
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/player"
	"github.com/godbus/dbus/v5"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		state    player.State
		playback string
		loop     string
	}{
		{"Stopped", player.State{Stopped: true, Paused: true}, "Stopped", "None"},
		{"Paused", player.State{Paused: true, Repeat: player.RepeatSong}, "Paused", "Track"},
		{"Playing", player.State{Repeat: player.RepeatPlaylist}, "Playing", "Playlist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := playbackStatus(tt.state); got != tt.playback {
				t.Errorf("expected playback %q, got %q", tt.playback, got)
			}
			if got := loopStatus(tt.state); got != tt.loop {
				t.Errorf("expected loop %q, got %q", tt.loop, got)
			}
		})
	}
}

func TestMetadata(t *testing.T) {
	song := models.Song{ID: "sp:4u7E-x", Title: "Song", Artists: []string{"A", "B"}, Duration: 3 * time.Minute, URL: "https://example.com/s"}

	t.Run("Stopped", func(t *testing.T) {
		md := metadata(song, true, player.State{Stopped: true})
		if len(md) != 1 || md["mpris:trackid"].Value() != noTrack {
			t.Errorf("expected only the NoTrack id, got %v", md)
		}
	})

	t.Run("Known Song", func(t *testing.T) {
		md := metadata(song, true, player.State{Title: "raw title"})
		if md["xesam:title"].Value() != "Song" {
			t.Errorf("expected song title, got %v", md["xesam:title"])
		}
		if got := md["xesam:artist"].Value().([]string); !slices.Equal(got, song.Artists) {
			t.Errorf("expected artists, got %v", got)
		}
		if md["mpris:length"].Value() != (3 * time.Minute).Microseconds() {
			t.Errorf("expected length from the song, got %v", md["mpris:length"])
		}
		if md["mpris:trackid"].Value() != dbus.ObjectPath("/org/yauma/track/sp_4u7E_x") {
			t.Errorf("unexpected track id %v", md["mpris:trackid"])
		}
	})

	t.Run("Player Title Only", func(t *testing.T) {
		md := metadata(models.Song{}, false, player.State{Title: "stream", Duration: time.Second})
		if md["xesam:title"].Value() != "stream" || md["mpris:length"].Value() != int64(1_000_000) {
			t.Errorf("unexpected metadata %v", md)
		}
		if _, ok := md["xesam:artist"]; ok {
			t.Error("artist should be absent without song details")
		}
	})
}

func TestControls(t *testing.T) {
	fake := player.NewFake()
	fake.SetState(player.State{Position: 10 * time.Second, Duration: time.Minute})
	c := playerControls{player: fake}

	c.Pause()
	c.Play()
	c.PlayPause()
	c.Next()
	c.Previous()
	c.Seek(-2_500_000)
	c.SetPosition(noTrack, 30_000_000)
	c.SetPosition(noTrack, 120_000_000)
	c.OpenUri("https://youtube.com/watch?v=x")
	c.Stop()

	want := []string{
		"SetPause(true)",
		"SetPause(false)",
		"TogglePause()",
		"Next()",
		"Prev()",
		"Seek(-2.5)",
		"Seek(22.5)",
		"Play(https://youtube.com/watch?v=x)",
		"Stop()",
	}
	if got := fake.Calls(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPoller(t *testing.T) {
	fake := player.NewFake()
	p := newPoller(fake, nil)

	names := func(changes []change) []string {
		var out []string
		for _, c := range changes {
			out = append(out, c.name)
		}
		return out
	}

	first := names(p.poll())
	if want := []string{"PlaybackStatus", "LoopStatus", "Shuffle", "Volume", "Metadata", "Position"}; !slices.Equal(first, want) {
		t.Errorf("expected every property on the first poll, got %v", first)
	}

	if got := names(p.poll()); !slices.Equal(got, []string{"Position"}) {
		t.Errorf("expected only Position when nothing changed, got %v", got)
	}

	fake.Play("https://youtube.com/watch?v=x")
	fake.SetVolume(40)
	if got := names(p.poll()); !slices.Equal(got, []string{"PlaybackStatus", "Volume", "Metadata", "Position"}) {
		t.Errorf("unexpected changes %v", got)
	}
}

func TestTrackID(t *testing.T) {
	tests := []struct {
		id   string
		want dbus.ObjectPath
	}{
		{"", "/org/yauma/track/current"},
		{"abc123", "/org/yauma/track/abc123"},
		{"yt:a-b.c", "/org/yauma/track/yt_a_b_c"},
	}
	for _, tt := range tests {
		if got := trackID(tt.id); got != tt.want || !got.IsValid() {
			t.Errorf("trackID(%q) = %q", tt.id, got)
		}
	}
}

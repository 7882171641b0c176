package ui

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/yauma/internal/client"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/player"
)

type fakeSession struct {
	order     []string
	playlists map[string][]models.Playlist
	songs     map[string][]models.Song
	messages  map[string]string
	progress  map[string]client.Progress
	latest    *client.ProgressUpdate
	calls     []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		order: []string{"Spotify", "Youtube"},
		playlists: map[string][]models.Playlist{
			"Spotify": {{ID: "p1", Title: "Morning", Size: 2}, {ID: "p2", Title: "Evening", Size: 1}},
		},
		songs: map[string][]models.Song{
			"Spotify/p1": {
				{ID: "s1", Title: "First", Artists: []string{"A"}, URL: "https://open.spotify.com/track/s1"},
				{ID: "s2", Title: "Second", Artists: []string{"B"}, URL: "/music/second.mp3", Downloaded: true},
			},
			"Spotify/p2": {{ID: "s3", Title: "Third", URL: "https://youtube.com/watch?v=x"}},
		},
		messages: map[string]string{},
		progress: map[string]client.Progress{},
	}
}

func (f *fakeSession) Sources() []string { return f.order }
func (f *fakeSession) Playlists(source string) []models.Playlist {
	return f.playlists[source]
}
func (f *fakeSession) Songs(source, id string) ([]models.Song, bool) {
	s, ok := f.songs[source+"/"+id]
	return s, ok
}
func (f *fakeSession) Progress(source, id string) (client.Progress, bool) {
	p, ok := f.progress[source+"/"+id]
	return p, ok
}
func (f *fakeSession) LatestProgress() (client.ProgressUpdate, bool) {
	if f.latest == nil {
		return client.ProgressUpdate{}, false
	}
	return *f.latest, true
}
func (f *fakeSession) PendingMessages() map[string]string { return f.messages }
func (f *fakeSession) Download(source, id string) error {
	f.calls = append(f.calls, "Download "+source+" "+id)
	return nil
}
func (f *fakeSession) SendMessage(source, text string) error {
	f.calls = append(f.calls, "Message "+source+" "+text)
	return nil
}
func (f *fakeSession) Refresh(source string) error {
	f.calls = append(f.calls, "Refresh "+source)
	return nil
}

func newTestModel(t *testing.T) (*Model, *fakeSession, *player.Fake) {
	t.Helper()
	sess := newFakeSession()
	p := player.NewFake()
	m := NewModel(sess, p)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(SessionEventMsg(client.Event{Kind: client.EventSource, Source: "Spotify"}))
	return m, sess, p
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, msgs ...tea.Msg) tea.Msg {
	var last tea.Msg
	for _, msg := range msgs {
		_, cmd := m.Update(msg)
		if cmd != nil {
			last = cmd()
		}
	}
	return last
}

func titles(m *Model) (sources, playlists, songs []string) {
	for _, it := range m.sources.Items() {
		sources = append(sources, it.(sourceItem).name)
	}
	for _, it := range m.playlists.Items() {
		playlists = append(playlists, it.(playlistItem).playlist.ID)
	}
	for _, it := range m.songs.Items() {
		songs = append(songs, it.(songItem).song.ID)
	}
	return
}

func TestNavigation(t *testing.T) {
	m, _, _ := newTestModel(t)

	sources, playlists, songs := titles(m)
	if !slices.Equal(sources, []string{"Spotify", "Youtube"}) || !slices.Equal(playlists, []string{"p1", "p2"}) || !slices.Equal(songs, []string{"s1", "s2"}) {
		t.Fatalf("unexpected initial panels %v %v %v", sources, playlists, songs)
	}

	press(m, runes("j"))
	if _, playlists, songs := titles(m); len(playlists) != 0 || len(songs) != 0 {
		t.Errorf("expected empty panels for Youtube, got %v %v", playlists, songs)
	}

	press(m, runes("k"), tea.KeyMsg{Type: tea.KeyEnter}, runes("j"))
	if m.panel != PanelPlaylists {
		t.Errorf("expected enter to focus playlists, got %v", m.panel)
	}
	if _, _, songs := titles(m); !slices.Equal(songs, []string{"s3"}) {
		t.Errorf("expected songs of p2, got %v", songs)
	}

	press(m, runes("L"))
	if m.panel != PanelSongs {
		t.Errorf("expected L to focus songs, got %v", m.panel)
	}
	press(m, runes("K"))
	if m.panel != PanelSources {
		t.Errorf("expected K to focus sources, got %v", m.panel)
	}
	press(m, runes("H"))
	if m.panel != PanelPlaylists {
		t.Errorf("expected H to focus playlists, got %v", m.panel)
	}
}

func TestPlaySong(t *testing.T) {
	m, _, p := newTestModel(t)

	press(m, runes("L"), runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
	if got := p.Calls(); !slices.Equal(got, []string{"Play(/music/second.mp3)"}) {
		t.Errorf("expected the local file to play, got %v", got)
	}

	song, ok := m.NowPlaying()
	if !ok || song.ID != "s2" {
		t.Errorf("expected s2 to be now playing, got %+v", song)
	}
	if item := m.songs.Items()[1].(songItem); !item.playing {
		t.Error("expected the playing song to be marked")
	}
}

func TestDownloadAndRefresh(t *testing.T) {
	m, sess, _ := newTestModel(t)

	press(m, runes("J"), runes("j"), runes("T"), runes("R"))
	want := []string{"Download Spotify p2", "Refresh Spotify"}
	if !slices.Equal(sess.calls, want) {
		t.Errorf("expected %v, got %v", want, sess.calls)
	}
}

func TestAuthPrompt(t *testing.T) {
	m, sess, _ := newTestModel(t)

	sess.messages["Spotify"] = "https://accounts.spotify.com/authorize?x"
	m.Update(SessionEventMsg(client.Event{Kind: client.EventMessage, Source: "Spotify"}))
	if item := m.sources.Items()[0].(sourceItem); !item.pending {
		t.Error("expected the source to be flagged as waiting")
	}
	if view := m.View(); !strings.Contains(view, "accounts.spotify.com") {
		t.Error("expected the pending message in the status line")
	}

	press(m, runes("m"))
	if !m.prompting || m.promptFor != "Spotify" {
		t.Fatalf("expected a prompt for Spotify, got %v %q", m.prompting, m.promptFor)
	}

	press(m, runes("q"), runes(" code-1 "))
	if len(sess.calls) != 0 {
		t.Fatal("keys typed into the prompt must not trigger commands")
	}
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !slices.Equal(sess.calls, []string{"Message Spotify q code-1"}) {
		t.Errorf("unexpected calls %v", sess.calls)
	}
	if m.prompting {
		t.Error("expected the prompt to close")
	}

	press(m, runes("m"), runes("abc"), tea.KeyMsg{Type: tea.KeyEsc})
	if len(sess.calls) != 1 || m.prompting {
		t.Error("escape should cancel without sending")
	}
}

func TestPlayerKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.Msg
		want []string
	}{
		{"Pause", []tea.Msg{tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}}, []string{"TogglePause()"}},
		{"Volume", []tea.Msg{runes("d"), runes("f")}, []string{"SetVolume(95)", "SetVolume(100)"}},
		{"Prev Next", []tea.Msg{runes("<"), runes(">")}, []string{"Prev()", "Next()"}},
		{"Repeat", []tea.Msg{runes("r")}, []string{"CycleRepeat()"}},
		{"Seek", []tea.Msg{tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyRight}}, []string{"Seek(-5)", "Seek(5)"}},
		{"Seek Percent", []tea.Msg{runes("7")}, []string{"SeekPercent(70)"}},
		{"Shuffle Outside Playlist", []tea.Msg{runes("y")}, nil},
		{"Play All", []tea.Msg{runes("a"), runes("y")}, []string{"TogglePlaylist(2)", "ToggleShuffle()"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, p := newTestModel(t)
			press(m, tt.keys...)
			if got := p.Calls(); !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	m, sess, _ := newTestModel(t)

	msg := press(m, runes(" "))
	if msg != nil {
		t.Fatalf("expected no failure, got %v", msg)
	}

	m.Update(commandFailedMsg(errors.New("mpv went away")))
	if !strings.Contains(m.View(), "mpv went away") {
		t.Error("expected the error in the status line")
	}

	sess.latest = &client.ProgressUpdate{Source: "Spotify", Playlist: models.Playlist{ID: "p1", Title: "Morning"}, Progress: client.Progress{Done: 1, Total: 2}}
	sess.progress["Spotify/p1"] = client.Progress{Done: 1, Total: 2}
	m.Update(SessionEventMsg(client.Event{Kind: client.EventProgress, Source: "Spotify", PlaylistID: "p1"}))
	if !strings.Contains(m.View(), "↓ Morning 1/2") {
		t.Error("expected download progress in the status line")
	}
	if desc := m.playlists.Items()[0].(playlistItem).Description(); desc != "2 songs • 1/2" {
		t.Errorf("unexpected playlist description %q", desc)
	}

	m.Update(DisconnectedMsg(nil))
	if !strings.Contains(m.View(), "disconnected") {
		t.Error("expected the disconnected marker")
	}

	_, cmd := m.Update(playerTickMsg(player.State{Title: "Song", Volume: 40}))
	if cmd == nil {
		t.Error("expected the tick to be rescheduled")
	}
	if !strings.Contains(m.View(), "▶ Song 0:00/0:00 vol 40%") {
		t.Error("expected the player state in the status line")
	}
}

func TestPlayTarget(t *testing.T) {
	tests := []struct {
		name string
		song models.Song
		want string
	}{
		{"Local File", models.Song{URL: "/music/a.mp3", Downloaded: true}, "/music/a.mp3"},
		{"YouTube", models.Song{URL: "https://www.youtube.com/watch?v=abc"}, "https://www.youtube.com/watch?v=abc"},
		{"Short Link", models.Song{URL: "https://youtu.be/abc"}, "https://youtu.be/abc"},
		{"Spotify", models.Song{Title: "Song", Artists: []string{"A", "B"}, URL: "https://open.spotify.com/track/1"}, "ytdl://ytsearch:Song A B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlayTarget(tt.song); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0s", "0:00"},
		{"65s", "1:05"},
		{"1h2m3s", "1:02:03"},
	}
	for _, tt := range tests {
		d, _ := time.ParseDuration(tt.in)
		if got := clock(d); got != tt.want {
			t.Errorf("clock(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

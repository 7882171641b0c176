package ui

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/yauma/internal/client"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/player"
	"github.com/desertthunder/yauma/internal/services"
)

const (
	tickInterval = 500 * time.Millisecond
	seekStep     = 5
	footerHeight = 3
)

// Panel identifies the focused list.
type Panel int

const (
	PanelSources Panel = iota
	PanelPlaylists
	PanelSongs
)

// Session is the part of [client.Session] the interface reads and commands.
type Session interface {
	Sources() []string
	Playlists(source string) []models.Playlist
	Songs(source, playlistID string) ([]models.Song, bool)
	Progress(source, playlistID string) (client.Progress, bool)
	LatestProgress() (client.ProgressUpdate, bool)
	PendingMessages() map[string]string
	Download(source, playlistID string) error
	SendMessage(source, text string) error
	Refresh(source string) error
}

// Model represents the TUI application state.
type Model struct {
	session Session
	player  player.Player

	width  int
	height int
	panel  Panel

	sources   list.Model
	playlists list.Model
	songs     list.Model

	shownSource   string
	shownPlaylist string

	input     textinput.Model
	prompting bool
	promptFor string

	state        player.State
	status       string
	err          error
	disconnected bool

	help help.Model
	keys keyMap

	mu      sync.Mutex
	current *models.Song
}

// NewModel creates a TUI model reading from session and playing through p.
func NewModel(session Session, p player.Player) *Model {
	input := textinput.New()
	input.Placeholder = "paste the code or the redirected URL"
	input.Prompt = "> "

	return &Model{
		session:   session,
		player:    p,
		panel:     PanelSources,
		sources:   newList("Sources"),
		playlists: newList("Playlists"),
		songs:     newList("Songs"),
		input:     input,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// NowPlaying reports the song last started from the interface. It is safe to call from any
// goroutine.
func (m *Model) NowPlaying() (models.Song, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return models.Song{}, false
	}
	return *m.current, true
}

// Init starts polling the player.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.handlePromptKeys(msg)
		}
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgSessionEvent:
			m.onEvent(msg.data.(client.Event))
		case MsgDisconnected:
			m.disconnected = true
			if err, _ := msg.data.(error); err != nil {
				m.err = err
			}
		case MsgPlayerTick:
			m.state = msg.data.(player.State)
			return m, m.tick()
		case MsgCommandFailed:
			m.err = msg.data.(error)
		}
	}
	return m, nil
}

func (m *Model) onEvent(e client.Event) {
	switch e.Kind {
	case client.EventMessage:
		m.status = fmt.Sprintf("%s needs your attention, press m", e.Source)
	case client.EventError:
		m.status = fmt.Sprintf("%s: %s", e.Source, e.Text)
	case client.EventIgnored:
		return
	}
	m.sync()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.quit):
		return m, tea.Quit
	case key.Matches(msg, k.up):
		m.move(-1)
	case key.Matches(msg, k.down):
		m.move(1)
	case key.Matches(msg, k.left), key.Matches(msg, k.toPlaylist):
		m.panel = PanelPlaylists
	case key.Matches(msg, k.right):
		m.panel = PanelSongs
	case key.Matches(msg, k.toSources):
		m.panel = PanelSources
	case key.Matches(msg, k.enter):
		return m, m.enter()
	case key.Matches(msg, k.download):
		return m, m.download()
	case key.Matches(msg, k.refresh):
		if src := m.selectedSource(); src != "" {
			m.status = "refreshing " + src
			return m, m.run(func() error { return m.session.Refresh(src) })
		}
	case key.Matches(msg, k.message):
		return m, m.openPrompt()
	case key.Matches(msg, k.pause):
		return m, m.run(m.player.TogglePause)
	case key.Matches(msg, k.volDown):
		return m, m.run(func() error { return m.player.AddVolume(-player.VolumeStep) })
	case key.Matches(msg, k.volUp):
		return m, m.run(func() error { return m.player.AddVolume(player.VolumeStep) })
	case key.Matches(msg, k.prev):
		return m, m.run(m.player.Prev)
	case key.Matches(msg, k.next):
		return m, m.run(m.player.Next)
	case key.Matches(msg, k.auto):
		urls := m.queue()
		return m, m.run(func() error { return m.player.TogglePlaylist(urls) })
	case key.Matches(msg, k.shuffle):
		return m, m.run(m.player.ToggleShuffle)
	case key.Matches(msg, k.repeat):
		return m, m.run(m.player.CycleRepeat)
	case key.Matches(msg, k.seekBack):
		return m, m.run(func() error { return m.player.Seek(-seekStep) })
	case key.Matches(msg, k.seekFwd):
		return m, m.run(func() error { return m.player.Seek(seekStep) })
	case key.Matches(msg, k.seekPct):
		percent := int(msg.Runes[0]-'0') * 10
		return m, m.run(func() error { return m.player.SeekPercent(percent) })
	case key.Matches(msg, k.help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		source := m.promptFor
		m.closePrompt()
		if text == "" {
			return m, nil
		}
		m.status = "sent to " + source
		return m, m.run(func() error { return m.session.SendMessage(source, text) })
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) openPrompt() tea.Cmd {
	source := m.selectedSource()
	if source == "" {
		return nil
	}
	m.prompting = true
	m.promptFor = source
	m.input.Reset()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompting = false
	m.promptFor = ""
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) enter() tea.Cmd {
	switch m.panel {
	case PanelSources:
		m.panel = PanelPlaylists
	case PanelPlaylists:
		m.panel = PanelSongs
	case PanelSongs:
		if item, ok := m.songs.SelectedItem().(songItem); ok {
			return m.play(item.song)
		}
	}
	return nil
}

func (m *Model) play(song models.Song) tea.Cmd {
	m.mu.Lock()
	m.current = &song
	m.mu.Unlock()
	m.syncSongs()

	target := PlayTarget(song)
	return m.run(func() error { return m.player.Play(target) })
}

func (m *Model) download() tea.Cmd {
	source := m.selectedSource()
	item, ok := m.playlists.SelectedItem().(playlistItem)
	if source == "" || !ok {
		return nil
	}
	m.status = fmt.Sprintf("download of %s requested", item.playlist.Title)
	return m.run(func() error { return m.session.Download(source, item.playlist.ID) })
}

// queue lists the play targets of the shown playlist.
func (m *Model) queue() []string {
	var urls []string
	for _, it := range m.songs.Items() {
		if s, ok := it.(songItem); ok {
			urls = append(urls, PlayTarget(s.song))
		}
	}
	return urls
}

func (m *Model) move(delta int) {
	l := m.focused()
	for ; delta < 0; delta++ {
		l.CursorUp()
	}
	for ; delta > 0; delta-- {
		l.CursorDown()
	}

	switch m.panel {
	case PanelSources:
		m.syncPlaylists()
	case PanelPlaylists:
		m.syncSongs()
	}
}

func (m *Model) focused() *list.Model {
	switch m.panel {
	case PanelPlaylists:
		return &m.playlists
	case PanelSongs:
		return &m.songs
	default:
		return &m.sources
	}
}

func (m *Model) selectedSource() string {
	if item, ok := m.sources.SelectedItem().(sourceItem); ok {
		return item.name
	}
	return ""
}

func (m *Model) selectedPlaylist() string {
	if item, ok := m.playlists.SelectedItem().(playlistItem); ok {
		return item.playlist.ID
	}
	return ""
}

// sync rebuilds every panel from the session state.
func (m *Model) sync() {
	pending := m.session.PendingMessages()
	names := m.session.Sources()
	items := make([]list.Item, len(names))
	for i, name := range names {
		_, waiting := pending[name]
		items[i] = sourceItem{name: name, pending: waiting}
	}
	setItems(&m.sources, items)
	m.syncPlaylists()
}

func (m *Model) syncPlaylists() {
	source := m.selectedSource()
	if source != m.shownSource {
		m.playlists.ResetSelected()
		m.shownSource = source
	}

	playlists := m.session.Playlists(source)
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		item := playlistItem{playlist: p}
		if progress, ok := m.session.Progress(source, p.ID); ok {
			item.progress = &progress
		}
		items[i] = item
	}
	setItems(&m.playlists, items)
	m.syncSongs()
}

func (m *Model) syncSongs() {
	source, playlistID := m.selectedSource(), m.selectedPlaylist()
	if shown := source + "\x00" + playlistID; shown != m.shownPlaylist {
		m.songs.ResetSelected()
		m.shownPlaylist = shown
	}

	current, playing := m.NowPlaying()
	songs, _ := m.session.Songs(source, playlistID)
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{song: s, playing: playing && s.ID == current.ID}
	}
	setItems(&m.songs, items)
}

func (m *Model) resize() {
	leftWidth, rightWidth, sourcesHeight, playlistsHeight, bodyHeight := m.layout()
	m.sources.SetSize(leftWidth-2, sourcesHeight-2)
	m.playlists.SetSize(leftWidth-2, playlistsHeight-2)
	m.songs.SetSize(rightWidth-2, bodyHeight-2)
}

func (m *Model) layout() (leftWidth, rightWidth, sourcesHeight, playlistsHeight, bodyHeight int) {
	leftWidth = max(m.width/4, 20)
	rightWidth = max(m.width-leftWidth, 20)
	bodyHeight = max(m.height-footerHeight, 6)
	sourcesHeight = bodyHeight / 3
	playlistsHeight = bodyHeight - sourcesHeight
	return
}

// run performs fn off the update loop and reports a failure as [MsgCommandFailed].
func (m *Model) run(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return commandFailedMsg(err)
		}
		return nil
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return playerTickMsg(m.player.State())
	})
}

// View renders the three panels, the status line and the help or prompt footer.
func (m *Model) View() string {
	if m.width == 0 {
		return "connecting..."
	}

	leftWidth, rightWidth, sourcesHeight, playlistsHeight, bodyHeight := m.layout()
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.box(PanelSources, m.sources.View(), leftWidth, sourcesHeight),
		m.box(PanelPlaylists, m.playlists.View(), leftWidth, playlistsHeight),
	)
	right := m.box(PanelSongs, m.songs.View(), rightWidth, bodyHeight)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusLine(), m.footer())
}

func (m *Model) box(p Panel, content string, width, height int) string {
	style := styles.panel
	if p == m.panel {
		style = styles.active
	}
	return style.Width(width - 2).Height(height - 2).Render(content)
}

func (m *Model) footer() string {
	if m.prompting {
		return styles.title.Render("Message to "+m.promptFor) + " " + m.input.View()
	}
	return m.help.View(m.keys)
}

func (m *Model) statusLine() string {
	parts := []string{playerStatus(m.state)}

	if update, ok := m.session.LatestProgress(); ok {
		p := update.Progress
		if p.Finished {
			parts = append(parts, styles.ok.Render("✓ "+update.Playlist.Title))
		} else {
			parts = append(parts, fmt.Sprintf("↓ %s %d/%d", update.Playlist.Title, p.Done, p.Total))
		}
	}

	pending := m.session.PendingMessages()
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		parts = append(parts, styles.warn.Render(fmt.Sprintf("%s: %s", name, pending[name])))
	}

	switch {
	case m.disconnected:
		parts = append(parts, styles.err.Render("disconnected"))
	case m.err != nil:
		parts = append(parts, styles.err.Render(m.err.Error()))
	case m.status != "":
		parts = append(parts, styles.help.Render(m.status))
	}
	return strings.Join(parts, " │ ")
}

func playerStatus(s player.State) string {
	if s.Stopped {
		return "■ stopped"
	}

	icon := "▶"
	if s.Paused {
		icon = "⏸"
	}
	out := fmt.Sprintf("%s %s %s/%s vol %d%%", icon, s.Title, clock(s.Position), clock(s.Duration), s.Volume)
	if s.InPlaylist {
		out += " [all]"
	}
	if s.Shuffled {
		out += " [shuffle]"
	}
	if s.Repeat != player.RepeatOff {
		out += " [repeat " + s.Repeat.String() + "]"
	}
	return out
}

// PlayTarget is what the player should open for song: the local file once downloaded, a
// YouTube URL as is, and otherwise a yt-dlp search built from the title and artists.
func PlayTarget(song models.Song) string {
	if song.Downloaded && song.URL != "" {
		return song.URL
	}
	if isYouTube(song.URL) {
		return song.URL
	}
	return "ytdl://ytsearch:" + services.SearchQuery(song)
}

func isYouTube(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	return host == "youtube.com" || host == "music.youtube.com" || host == "youtu.be"
}

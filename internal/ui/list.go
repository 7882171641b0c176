package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/yauma/internal/client"
	"github.com/desertthunder/yauma/internal/models"
)

var (
	_ list.Item = sourceItem{}
	_ list.Item = playlistItem{}
	_ list.Item = songItem{}
)

// sourceItem is one server-side source.
type sourceItem struct {
	name    string
	pending bool
}

func (i sourceItem) FilterValue() string { return i.name }
func (i sourceItem) Title() string       { return i.name }
func (i sourceItem) Description() string {
	if i.pending {
		return "waiting for you (m)"
	}
	return ""
}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
	progress *client.Progress
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string       { return i.playlist.Title }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d songs", i.playlist.Size)
	switch {
	case i.progress == nil:
	case i.progress.Finished:
		desc += " • downloaded"
	default:
		desc += fmt.Sprintf(" • %d/%d", i.progress.Done, i.progress.Total)
	}
	return desc
}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song    models.Song
	playing bool
}

func (i songItem) FilterValue() string { return i.song.Title }
func (i songItem) Title() string {
	if i.playing {
		return "♪ " + i.song.Title
	}
	return i.song.Title
}
func (i songItem) Description() string {
	parts := []string{i.song.ArtistLine()}
	if i.song.Duration > 0 {
		parts = append(parts, clock(i.song.Duration))
	}
	if i.song.Downloaded {
		parts = append(parts, "local")
	}
	return strings.Join(parts, " • ")
}

// clock formats d as m:ss, or h:mm:ss past an hour.
func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// setItems replaces the items of l and keeps the cursor in range.
func setItems(l *list.Model, items []list.Item) {
	idx := l.Index()
	l.SetItems(items)
	if len(items) == 0 {
		return
	}
	l.Select(max(0, min(idx, len(items)-1)))
}

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	left       key.Binding
	right      key.Binding
	toSources  key.Binding
	toPlaylist key.Binding
	enter      key.Binding
	download   key.Binding
	refresh    key.Binding
	message    key.Binding
	pause      key.Binding
	volDown    key.Binding
	volUp      key.Binding
	prev       key.Binding
	next       key.Binding
	auto       key.Binding
	shuffle    key.Binding
	repeat     key.Binding
	seekBack   key.Binding
	seekFwd    key.Binding
	seekPct    key.Binding
	help       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:       key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "playlists")),
		right:      key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "songs")),
		toSources:  key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "sources")),
		toPlaylist: key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "playlists")),
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/play")),
		download:   key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "download")),
		refresh:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),
		message:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "auth code")),
		pause:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
		volDown:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "vol-")),
		volUp:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "vol+")),
		prev:       key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "prev")),
		next:       key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "next")),
		auto:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "play all")),
		shuffle:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "shuffle")),
		repeat:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		seekBack:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5s")),
		seekFwd:    key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5s")),
		seekPct:    key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("0-9", "seek %")),
		help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.download, k.pause, k.message, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right, k.toSources, k.toPlaylist},
		{k.enter, k.download, k.refresh, k.message},
		{k.pause, k.volDown, k.volUp, k.prev, k.next},
		{k.auto, k.shuffle, k.repeat, k.seekBack, k.seekFwd, k.seekPct},
		{k.help, k.quit},
	}
}

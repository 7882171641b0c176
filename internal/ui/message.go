package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/yauma/internal/client"
	"github.com/desertthunder/yauma/internal/player"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionEvent MsgKind = iota
	MsgDisconnected
	MsgPlayerTick
	MsgCommandFailed
)

// SessionEventMsg is the constructor for [MsgSessionEvent]. The caller forwards every event
// from [client.Session.Listen] with it.
func SessionEventMsg(e client.Event) Msg {
	return Msg{kind: MsgSessionEvent, data: e}
}

// DisconnectedMsg is the constructor for [MsgDisconnected]
func DisconnectedMsg(err error) Msg {
	return Msg{kind: MsgDisconnected, data: err}
}

// playerTickMsg is the constructor for [MsgPlayerTick]
func playerTickMsg(state player.State) Msg {
	return Msg{kind: MsgPlayerTick, data: state}
}

// commandFailedMsg is the constructor for [MsgCommandFailed]
func commandFailedMsg(err error) Msg {
	return Msg{kind: MsgCommandFailed, data: err}
}

// Package ui implements the terminal client using bubbletea's Elm architecture.
//
// The screen has three panels: sources and their playlists stacked on the left, the songs of
// the selected playlist on the right. Navigation uses vim-style bindings (j/k within a panel,
// H/J/K/L between panels) and player controls are single keys, listed by pressing ?.
//
// The (view) [Model] reads everything it shows from a [Session]. The caller forwards session
// events with [SessionEventMsg] so the panels are rebuilt only when something changed, and the
// player is polled on a short tick for the status line.
//
// Pressing m on a source opens a prompt whose text is sent back to that source, which is how
// the Spotify authorization code is pasted.
package ui

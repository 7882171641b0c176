// Package player drives audio playback for the terminal client.
//
// [MPV] runs an idle mpv process and talks to it over its JSON IPC socket: one JSON object
// per line, each command tagged with a request_id that mpv echoes in its reply. Unsolicited
// event lines are ignored.
//
// [Fake] implements [Player] in memory for tests of the interface and MPRIS layers.
package player

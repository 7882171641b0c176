// Package client is the client side of the yauma protocol.
//
// A [Session] wraps one TCP connection to the server. It discovers sources with a ClientList
// broadcast, walks every source's playlists as their answers arrive, and keeps the result in
// mutex-guarded state the terminal interface reads from.
//
// Answers are turned into [Event] values so the caller can redraw only what changed.
package client

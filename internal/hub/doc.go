// Package hub serves the framed TCP protocol.
//
// Every connection gets a [Broadcaster] that fans decoded requests out to one goroutine per
// registered source, and an [Outbox] that fans their answers back in to a single writer.
// Answers of one source keep their order; answers of different sources interleave freely.
//
// When the client closes its side, the reader stops and closes the broadcaster. Source
// goroutines finish what they are doing and exit, then the outbox is closed and the writer
// sends a zero-length frame. Download jobs started on the connection keep running; their
// answers are dropped once the outbox is closed.
package hub

// Package wire implements the length-prefixed framing used between the server and its clients.
//
// Every frame is an 8 byte big-endian length followed by that many bytes of UTF-8 JSON.
// A zero length announces an orderly shutdown by the sender.
package wire

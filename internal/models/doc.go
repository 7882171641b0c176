// Package models defines the catalog entities and the request/answer vocabulary exchanged over the wire.
//
// The package contains two categories of types:
//
// 1. Catalog entities shared by every source
//   - [Song] : one playable track, with its locator and download flag
//   - [Playlist] : a named, ordered collection owned by one source
//
// 2. Protocol envelopes
//   - [Request] : client to server, addressed to a source name or [AddresseeAll]
//   - [Answer] : server to client, tagged with the responding source
//
// The unions ([RequestType], [ObjRequest], [AnswerType], [ErrorKind]) use externally tagged JSON:
// unit variants are bare strings, newtype variants are single-key objects and tuple variants carry an array.
package models

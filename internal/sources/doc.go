// Package sources defines the contract every music source implements and the request
// dispatch shared by all of them.
//
// A [Source] is created once per process and shared by every connection. The hub feeds each
// source the requests of a connection one at a time through [Dispatch], which filters by
// addressee and routes:
//
//	GetAll(PlaylistList)  -> PlaylistList answer
//	GetAll(Playlist(id))  -> Songs answer, or Error(SourceError(PlaylistNotFound))
//	Download(Playlist(id)) -> background download job
//	GetAll(ClientList)    -> Client(name) answer
//
// Everything else is logged and ignored.
//
// Adapters keep their playlists in a [Catalog], a read-through view over a remote service and
// the etag cache. Sources that must talk to the user before they can work (Spotify's OAuth
// flow) also implement [Authenticator].
package sources

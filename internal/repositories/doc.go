// Package repositories implements the SQLite cache of playlists and songs, keyed by (id, source).
//
// The cache is consulted before any remote fetch: a playlist is fresh exactly when its stored etag
// equals the etag the source reports, byte for byte. No attempt is made to diff contents.
//
// Key Implementations:
//   - [CacheRepository] : etag lookups, playlist upserts and song state used by the download pipeline
//
// The store is opened per operation rather than held open, so concurrent adapters and download jobs
// never contend on an application-level lock. Atomicity of a playlist with its membership comes from
// a single transaction per write.
package repositories

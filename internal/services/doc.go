// Package services implements the remote API clients that back the music sources.
//
// # Spotify
//
// [SpotifyService] talks to the Spotify Web API through an [oauth2] token source. Tokens are
// cached on disk by a [TokenStore] and refreshed tokens are written back automatically.
//
// # YouTube
//
// [YouTubeService] uses the YouTube Data API v3 when an API key is configured. Without a key
// it enumerates the configured playlist ids through yt-dlp and synthesizes a blake3 etag
// from the ordered video ids.
//
// # Locator chain
//
// [LocatorChain] turns a Spotify song into something yt-dlp can download: ISRC lookups through
// MusicBrainz and last.fm, a last.fm search page scrape, then a plain ytsearch query.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no usable token
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrNotFound] : the remote resource does not exist
//   - [shared.ErrPlaylistNotFound] : playlist id not found
package services

// Package server runs the short-lived HTTP listener behind `yauma auth spotify`.
//
// The [Router] interface and its [BasicRouter] implementation register [Handler] values behind
// a [Middleware] stack. [OAuthHandler] serves the configured redirect URI: it checks the state
// parameter, trades the code for a token through an [Exchanger] and reports a single
// [OAuthResult]. Any later callback is refused.
//
// Authorizing from the terminal client goes through the hub instead: the Spotify source sends
// the authorization URL as a message and waits for the pasted redirect URL.
package server

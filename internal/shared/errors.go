package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// Protocol errors
	ErrParse          = fmt.Errorf("malformed message")
	ErrUnknownVariant = fmt.Errorf("unknown variant")
	ErrInvalidUTF8    = fmt.Errorf("payload is not valid UTF-8")
	ErrFrameTooLarge  = fmt.Errorf("frame too large")
	ErrOutboxClosed   = fmt.Errorf("connection output closed")

	// API and source errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Cache errors
	ErrCacheMiss = fmt.Errorf("not in cache")

	// Download errors
	ErrDownloadFailed = fmt.Errorf("download failed")

	// Player errors
	ErrPlayerUnavailable = fmt.Errorf("player unavailable")
	ErrPlayerCommand     = fmt.Errorf("player command failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

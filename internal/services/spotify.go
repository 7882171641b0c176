// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPageSize    = 50
	spotifyRequestRate = 10
)

// SpotifyArtist is the simplified artist object embedded in tracks.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Artists      []SpotifyArtist `json:"artists"`
	DurationMS   int64           `json:"duration_ms"`
	ExternalIDs  externalIDs     `json:"external_ids"`
	ExternalURLs externalURLs    `json:"external_urls"`
	IsLocal      bool            `json:"is_local"`
}

// Owner is the user owning a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackTotal struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SnapshotID string     `json:"snapshot_id"`
	Owner      Owner      `json:"owner"`
	Public     bool       `json:"public"`
	Tracks     trackTotal `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyPlaylistItem is one entry of a playlist. Track is nil for unavailable items.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedItems represents a page of playlist items.
type SpotifyPaginatedItems struct {
	Items  []SpotifyPlaylistItem `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Next   *string               `json:"next"`
}

// SpotifyService reads the current user's playlists from the Spotify Web API.
type SpotifyService struct {
	config *oauth2.Config
	api    *APIClient
	client *http.Client

	mu     sync.RWMutex
	source oauth2.TokenSource
}

// NewSpotifyService creates a Spotify client from the configured credentials.
func NewSpotifyService(cfg shared.SpotifyConfig, client *http.Client) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &SpotifyService{
		config: config,
		api:    NewAPIClient(spotifyBaseURL, client, spotifyRequestRate),
		client: client,
	}, nil
}

// WithEndpoints points the client at different API and token URLs.
func (s *SpotifyService) WithEndpoints(apiURL, authURL, tokenURL string) *SpotifyService {
	s.api = NewAPIClient(apiURL, s.client, 0)
	s.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	return s
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL the user must visit.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// RedirectURL returns the configured OAuth2 redirect URI.
func (s *SpotifyService) RedirectURL() string {
	return s.config.RedirectURL
}

// Exchange trades an authorization code, or a redirect URL carrying one, for a token.
func (s *SpotifyService) Exchange(ctx context.Context, codeOrURL string) (*oauth2.Token, error) {
	code, err := ParseAuthCode(codeOrURL)
	if err != nil {
		return nil, err
	}

	tok, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return tok, nil
}

// Refresh returns a valid token derived from tok, refreshing it when expired.
func (s *SpotifyService) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	fresh, err := s.config.TokenSource(s.oauthContext(ctx), tok).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return fresh, nil
}

// UseToken installs tok for subsequent API calls. Refreshed tokens are saved to store when
// it is non-nil.
func (s *SpotifyService) UseToken(ctx context.Context, tok *oauth2.Token, store *TokenStore) {
	ctx = s.oauthContext(context.WithoutCancel(ctx))

	var src oauth2.TokenSource = s.config.TokenSource(ctx, tok)
	if store != nil {
		src = store.TokenSource(src, tok)
	}
	src = oauth2.ReuseTokenSource(tok, src)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
	s.api.SetHTTPClient(oauth2.NewClient(ctx, src))
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client)
}

// Authenticated reports whether a token has been installed.
func (s *SpotifyService) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source != nil
}

func (s *SpotifyService) getJSON(ctx context.Context, path string, out any) error {
	if !s.Authenticated() {
		return shared.ErrNotAuthenticated
	}
	return s.api.GetJSON(ctx, path, out)
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 || limit > spotifyPageSize {
		limit = spotifyPageSize
	}

	var page SpotifyPaginatedPlaylists
	if err := s.getJSON(ctx, fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Playlist retrieves a playlist summary by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifySimplePlaylist, error) {
	var playlist SpotifySimplePlaylist
	path := "/playlists/" + url.PathEscape(playlistID) + "?fields=id,name,snapshot_id,owner,public,tracks(total)"
	if err := s.getJSON(ctx, path, &playlist); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}
	return &playlist, nil
}

// PlaylistItems retrieves one page of a playlist's items.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedItems, error) {
	if limit <= 0 || limit > spotifyPageSize {
		limit = spotifyPageSize
	}

	path := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d&additional_types=track", url.PathEscape(playlistID), limit, offset)
	return s.itemsPage(ctx, playlistID, path)
}

func (s *SpotifyService) itemsPage(ctx context.Context, playlistID, path string) (*SpotifyPaginatedItems, error) {
	var page SpotifyPaginatedItems
	if err := s.getJSON(ctx, path, &page); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}
	return &page, nil
}

// ListPlaylists retrieves every playlist of the current user. The etag is the snapshot id.
func (s *SpotifyService) ListPlaylists(ctx context.Context) ([]RemotePlaylist, error) {
	var playlists []RemotePlaylist
	offset := 0

	for {
		page, err := s.UserPlaylists(ctx, spotifyPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			playlists = append(playlists, RemotePlaylist{
				Playlist: models.Playlist{
					ID:    sp.ID,
					Title: sp.Name,
					Tags:  []string{},
					Size:  uint32(sp.Tracks.Total),
				},
				Etag: sp.SnapshotID,
			})
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return playlists, nil
}

// FetchSongs retrieves every track of a playlist in order. Episodes, local files and
// unavailable items are skipped.
func (s *SpotifyService) FetchSongs(ctx context.Context, playlistID string) ([]models.Song, error) {
	songs := []models.Song{}

	page, err := s.PlaylistItems(ctx, playlistID, spotifyPageSize, 0)
	for {
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if song, ok := trackToSong(item.Track); ok {
				songs = append(songs, song)
			}
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		page, err = s.itemsPage(ctx, playlistID, *page.Next)
	}

	return songs, nil
}

func trackToSong(t *SpotifyTrack) (models.Song, bool) {
	if t == nil || t.ID == "" || t.IsLocal {
		return models.Song{}, false
	}
	if t.Type != "" && t.Type != "track" {
		return models.Song{}, false
	}

	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	link := t.ExternalURLs.Spotify
	if link == "" {
		link = "https://open.spotify.com/track/" + t.ID
	}

	return models.Song{
		ID:       t.ID,
		Title:    t.Name,
		Artists:  artists,
		Tags:     []string{},
		Duration: time.Duration(t.DurationMS) * time.Millisecond,
		URL:      link,
		ISRC:     t.ExternalIDs.ISRC,
	}, true
}

// YouTube playlist client
//
// With an API key the YouTube Data API v3 is used. Without one, playlists are enumerated
// through yt-dlp's web client and etags are synthesized from the ordered video ids.
package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/ytget/ytdlp/v2"
	"github.com/zeebo/blake3"
)

const (
	youtubeBaseURL  = "https://www.googleapis.com/youtube/v3"
	youtubeWatchURL = "https://youtube.com/watch?v="
	youtubePageSize = 50
	youtubeRate     = 5
)

type youtubeSnippet struct {
	Title                  string   `json:"title"`
	Tags                   []string `json:"tags"`
	ChannelTitle           string   `json:"channelTitle"`
	VideoOwnerChannelTitle string   `json:"videoOwnerChannelTitle"`
	ResourceID             struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

// YouTubePlaylist is a playlist resource from the Data API.
type YouTubePlaylist struct {
	ID             string         `json:"id"`
	Etag           string         `json:"etag"`
	Snippet        youtubeSnippet `json:"snippet"`
	ContentDetails struct {
		ItemCount uint32 `json:"itemCount"`
	} `json:"contentDetails"`
}

// YouTubePlaylistItem is a playlistItem resource from the Data API.
type YouTubePlaylistItem struct {
	Snippet        youtubeSnippet `json:"snippet"`
	ContentDetails struct {
		VideoID string `json:"videoId"`
	} `json:"contentDetails"`
}

// YouTubeVideo is a video resource from the Data API.
type YouTubeVideo struct {
	ID             string         `json:"id"`
	Snippet        youtubeSnippet `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

type youtubeList[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// PlaylistEntry is a single video of a playlist enumerated without the Data API.
type PlaylistEntry struct {
	VideoID string
	Title   string
}

// PlaylistLister enumerates a playlist without an API key.
type PlaylistLister interface {
	ListItems(ctx context.Context, playlistID string) ([]PlaylistEntry, error)
}

// YTDLPLister enumerates playlists through github.com/ytget/ytdlp.
type YTDLPLister struct{}

// ListItems returns every video of the playlist in order.
func (YTDLPLister) ListItems(ctx context.Context, playlistID string) ([]PlaylistEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get playlist items: %v", shared.ErrAPIRequest, err)
	}

	entries := make([]PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, PlaylistEntry{VideoID: it.VideoID, Title: it.Title})
	}
	return entries, nil
}

// YouTubeService reads the configured YouTube playlists.
type YouTubeService struct {
	api       *APIClient
	apiKey    string
	playlists []string
	lister    PlaylistLister

	mu      sync.Mutex
	entries map[string][]PlaylistEntry
}

// NewYouTubeService creates a YouTube client for the configured playlist ids.
func NewYouTubeService(cfg shared.YouTubeConfig, client *http.Client) *YouTubeService {
	return &YouTubeService{
		api:       NewAPIClient(youtubeBaseURL, client, youtubeRate),
		apiKey:    cfg.APIKey,
		playlists: cfg.Playlists,
		lister:    YTDLPLister{},
		entries:   make(map[string][]PlaylistEntry),
	}
}

// WithBaseURL points the Data API client at a different root.
func (y *YouTubeService) WithBaseURL(baseURL string) *YouTubeService {
	y.api = NewAPIClient(baseURL, y.api.client(), 0)
	return y
}

// WithLister replaces the keyless playlist enumerator.
func (y *YouTubeService) WithLister(l PlaylistLister) *YouTubeService {
	y.lister = l
	return y
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "Youtube"
}

// HasAPIKey reports whether the Data API is used.
func (y *YouTubeService) HasAPIKey() bool {
	return y.apiKey != ""
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return youtubeWatchURL + videoID
}

func (y *YouTubeService) query(values url.Values) string {
	values.Set("key", y.apiKey)
	return values.Encode()
}

// ListPlaylists returns a summary and etag for every configured playlist.
func (y *YouTubeService) ListPlaylists(ctx context.Context) ([]RemotePlaylist, error) {
	if len(y.playlists) == 0 {
		return []RemotePlaylist{}, nil
	}
	if y.HasAPIKey() {
		return y.listViaAPI(ctx)
	}
	return y.listViaLister(ctx)
}

func (y *YouTubeService) listViaAPI(ctx context.Context) ([]RemotePlaylist, error) {
	var playlists []RemotePlaylist

	for start := 0; start < len(y.playlists); start += youtubePageSize {
		end := min(start+youtubePageSize, len(y.playlists))

		q := y.query(url.Values{
			"part":       {"snippet,contentDetails"},
			"id":         {strings.Join(y.playlists[start:end], ",")},
			"maxResults": {fmt.Sprint(youtubePageSize)},
		})

		var resp youtubeList[YouTubePlaylist]
		if err := y.api.GetJSON(ctx, "/playlists?"+q, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp.Items {
			playlists = append(playlists, RemotePlaylist{
				Playlist: models.Playlist{
					ID:    p.ID,
					Title: p.Snippet.Title,
					Tags:  nonEmpty(p.Snippet.Tags),
					Size:  p.ContentDetails.ItemCount,
				},
				Etag: p.Etag,
			})
		}
	}

	return playlists, nil
}

func (y *YouTubeService) listViaLister(ctx context.Context) ([]RemotePlaylist, error) {
	playlists := make([]RemotePlaylist, 0, len(y.playlists))

	for _, id := range y.playlists {
		entries, err := y.lister.ListItems(ctx, id)
		if err != nil {
			return nil, err
		}

		y.mu.Lock()
		y.entries[id] = entries
		y.mu.Unlock()

		playlists = append(playlists, RemotePlaylist{
			Playlist: models.Playlist{
				ID:    id,
				Title: "Playlist " + id,
				Tags:  []string{},
				Size:  uint32(len(entries)),
			},
			Etag: EntriesEtag(entries),
		})
	}

	return playlists, nil
}

// EntriesEtag hashes the ordered video ids of a playlist.
func EntriesEtag(entries []PlaylistEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.VideoID)
		b.WriteByte('\n')
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// FetchSongs retrieves every video of a playlist in order.
func (y *YouTubeService) FetchSongs(ctx context.Context, playlistID string) ([]models.Song, error) {
	if y.HasAPIKey() {
		return y.fetchViaAPI(ctx, playlistID)
	}

	y.mu.Lock()
	entries, ok := y.entries[playlistID]
	y.mu.Unlock()

	if !ok {
		var err error
		if entries, err = y.lister.ListItems(ctx, playlistID); err != nil {
			return nil, err
		}
	}

	songs := make([]models.Song, 0, len(entries))
	for _, e := range entries {
		songs = append(songs, models.Song{
			ID:      e.VideoID,
			Title:   e.Title,
			Artists: []string{},
			Tags:    []string{},
			URL:     WatchURL(e.VideoID),
		})
	}
	return songs, nil
}

func (y *YouTubeService) fetchViaAPI(ctx context.Context, playlistID string) ([]models.Song, error) {
	songs := []models.Song{}
	pageToken := ""

	for {
		values := url.Values{
			"part":       {"snippet,contentDetails"},
			"playlistId": {playlistID},
			"maxResults": {fmt.Sprint(youtubePageSize)},
		}
		if pageToken != "" {
			values.Set("pageToken", pageToken)
		}

		var resp youtubeList[YouTubePlaylistItem]
		if err := y.api.GetJSON(ctx, "/playlistItems?"+y.query(values), &resp); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
			}
			return nil, err
		}

		page := make([]models.Song, 0, len(resp.Items))
		for _, item := range resp.Items {
			id := item.ContentDetails.VideoID
			if id == "" {
				id = item.Snippet.ResourceID.VideoID
			}
			if id == "" {
				continue
			}

			page = append(page, models.Song{
				ID:      id,
				Title:   item.Snippet.Title,
				Artists: channelArtists(item.Snippet.VideoOwnerChannelTitle),
				Tags:    []string{},
				URL:     WatchURL(id),
			})
		}

		if err := y.backfill(ctx, page); err != nil {
			return nil, err
		}
		songs = append(songs, page...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return songs, nil
}

// backfill fills durations and tags from videos.list. Videos missing from the response
// (private or deleted) keep zero values.
func (y *YouTubeService) backfill(ctx context.Context, songs []models.Song) error {
	if len(songs) == 0 {
		return nil
	}

	ids := make([]string, len(songs))
	for i, s := range songs {
		ids[i] = s.ID
	}

	q := y.query(url.Values{
		"part": {"snippet,contentDetails"},
		"id":   {strings.Join(ids, ",")},
	})

	var resp youtubeList[YouTubeVideo]
	if err := y.api.GetJSON(ctx, "/videos?"+q, &resp); err != nil {
		return err
	}

	byID := make(map[string]YouTubeVideo, len(resp.Items))
	for _, v := range resp.Items {
		byID[v.ID] = v
	}

	for i := range songs {
		v, ok := byID[songs[i].ID]
		if !ok {
			continue
		}
		songs[i].Duration = models.ParseISO8601Duration(v.ContentDetails.Duration)
		songs[i].Tags = nonEmpty(v.Snippet.Tags)
		if len(songs[i].Artists) == 0 {
			songs[i].Artists = channelArtists(v.Snippet.ChannelTitle)
		}
	}
	return nil
}

func channelArtists(channel string) []string {
	channel = strings.TrimSpace(strings.TrimSuffix(channel, " - Topic"))
	if channel == "" {
		return []string{}
	}
	return []string{channel}
}

func nonEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package services

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"golang.org/x/net/html"
)

const (
	musicBrainzBaseURL = "https://musicbrainz.org/ws/2"
	lastFMAPIBaseURL   = "http://ws.audioscrobbler.com/2.0"
	lastFMWebBaseURL   = "https://www.last.fm"

	youtubeLinkAttr = "data-youtube-url"
)

// LocatorChain finds a downloadable YouTube link for a song that only exists on a streaming
// service. Every step that fails falls through to the next; the last resort is a search
// query, so Resolve never fails.
type LocatorChain struct {
	musicBrainz *APIClient
	lastFM      *APIClient
	lastFMWeb   *APIClient
	apiKey      string
	logger      *log.Logger
}

// NewLocatorChain creates a chain using the given last.fm API key. An empty key skips the
// ISRC lookup and goes straight to the search page.
func NewLocatorChain(apiKey string, client *http.Client, logger *log.Logger) *LocatorChain {
	return &LocatorChain{
		musicBrainz: NewAPIClient(musicBrainzBaseURL, client, 1),
		lastFM:      NewAPIClient(lastFMAPIBaseURL, client, 5),
		lastFMWeb:   NewAPIClient(lastFMWebBaseURL, client, 2),
		apiKey:      apiKey,
		logger:      logger,
	}
}

// WithEndpoints points the chain at different MusicBrainz, last.fm API and last.fm web roots.
func (c *LocatorChain) WithEndpoints(musicBrainz, lastFMAPI, lastFMWeb string) *LocatorChain {
	c.musicBrainz = NewAPIClient(musicBrainz, c.musicBrainz.client(), 0)
	c.lastFM = NewAPIClient(lastFMAPI, c.lastFM.client(), 0)
	c.lastFMWeb = NewAPIClient(lastFMWeb, c.lastFMWeb.client(), 0)
	return c
}

// Resolve returns a yt-dlp target for song. When search is true the target is a search
// query rather than a URL.
func (c *LocatorChain) Resolve(ctx context.Context, song models.Song) (target string, search bool) {
	if song.ISRC != "" && c.apiKey != "" {
		if link, ok := c.byISRC(ctx, song.ISRC); ok {
			return link, false
		}
	}

	if link, ok := c.bySearchPage(ctx, song); ok {
		return link, false
	}

	c.logger.Debug("falling back to search", "song", song.String())
	return SearchQuery(song), true
}

// SearchQuery is the free-text query used when no link can be found.
func SearchQuery(song models.Song) string {
	return strings.TrimSpace(song.Title + " " + strings.Join(song.Artists, " "))
}

func (c *LocatorChain) byISRC(ctx context.Context, isrc string) (string, bool) {
	var recordings struct {
		Recordings []struct {
			ID string `json:"id"`
		} `json:"recordings"`
	}
	if err := c.musicBrainz.GetJSON(ctx, "/isrc/"+url.PathEscape(isrc)+"?fmt=json", &recordings); err != nil {
		c.logger.Debug("musicbrainz lookup failed", "isrc", isrc, "error", err)
		return "", false
	}
	if len(recordings.Recordings) == 0 {
		return "", false
	}
	mbid := recordings.Recordings[0].ID

	q := url.Values{
		"method":  {"track.getInfo"},
		"api_key": {c.apiKey},
		"mbid":    {mbid},
		"format":  {"json"},
	}
	var info struct {
		Track struct {
			URL string `json:"url"`
		} `json:"track"`
	}
	if err := c.lastFM.GetJSON(ctx, "/?"+q.Encode(), &info); err != nil {
		c.logger.Debug("last.fm track lookup failed", "mbid", mbid, "error", err)
		return "", false
	}
	if info.Track.URL == "" {
		return "", false
	}

	page, err := c.fetchPage(ctx, info.Track.URL)
	if err != nil {
		c.logger.Debug("last.fm track page failed", "url", info.Track.URL, "error", err)
		return "", false
	}

	link := firstYouTubeLink(page)
	if link == "" {
		c.logger.Info("no YouTube link", "url", info.Track.URL)
	}
	return link, link != ""
}

func (c *LocatorChain) bySearchPage(ctx context.Context, song models.Song) (string, bool) {
	q := url.Values{"q": {SearchQuery(song)}}
	page, err := c.fetchPage(ctx, c.lastFMWeb.BaseURL()+"/search/tracks?"+q.Encode())
	if err != nil {
		c.logger.Debug("last.fm search failed", "song", song.String(), "error", err)
		return "", false
	}

	body := findElement(page, "tbody")
	if body == nil {
		return "", false
	}
	row := findElement(body, "tr")
	if row == nil {
		return "", false
	}

	link := firstYouTubeLink(row)
	return link, link != ""
}

func (c *LocatorChain) fetchPage(ctx context.Context, target string) (*html.Node, error) {
	resp, err := c.lastFMWeb.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	return html.Parse(bytes.NewReader(resp.Body))
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func firstYouTubeLink(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, attr := range n.Attr {
			if attr.Key == youtubeLinkAttr && attr.Val != "" {
				return attr.Val
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if link := firstYouTubeLink(child); link != "" {
			return link
		}
	}
	return ""
}

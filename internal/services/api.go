// Rate-limited HTTP client shared by the remote services
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/desertthunder/yauma/internal/shared"
	"golang.org/x/time/rate"
)

// APIClient performs paced GET requests against a remote API.
type APIClient struct {
	baseURL    string
	mu         sync.RWMutex
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewAPIClient creates a client rooted at baseURL. A non-positive rps disables pacing.
func NewAPIClient(baseURL string, client *http.Client, rps float64) *APIClient {
	if client == nil {
		client = http.DefaultClient
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
		userAgent:  UserAgent,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// BaseURL returns the root every relative path is resolved against.
func (a *APIClient) BaseURL() string {
	return a.baseURL
}

// SetHTTPClient swaps the underlying transport, e.g. for an oauth2 client.
func (a *APIClient) SetHTTPClient(client *http.Client) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.httpClient = client
}

func (a *APIClient) client() *http.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.httpClient
}

func (a *APIClient) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return a.baseURL + path
}

// Get performs a GET request to path, which may be relative to the base URL or absolute.
//
// Non-2xx statuses are returned as errors wrapping [shared.ErrAPIRequest]; a 404 also wraps
// [shared.ErrNotFound].
func (a *APIClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	fullURL := a.resolve(path)

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w: %s", shared.ErrAPIRequest, shared.ErrNotFound, fullURL)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, fullURL, resp.StatusCode)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// GetJSON performs a GET request and decodes the JSON body into out.
func (a *APIClient) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrParse, err)
	}
	return nil
}

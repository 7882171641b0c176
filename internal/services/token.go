package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/yauma/internal/shared"
	"golang.org/x/oauth2"
)

// TokenStore persists an OAuth token as JSON. Callers that read, refresh and write back a
// token must hold the store's lock for the whole sequence.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore creates a store backed by the file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the token cache location.
func (t *TokenStore) Path() string {
	return t.path
}

// Lock acquires the exclusive token lock.
func (t *TokenStore) Lock() { t.mu.Lock() }

// Unlock releases the token lock.
func (t *TokenStore) Unlock() { t.mu.Unlock() }

// Load reads the cached token. A missing file wraps [shared.ErrNotAuthenticated].
func (t *TokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no token cache at %s", shared.ErrNotAuthenticated, t.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: token cache: %v", shared.ErrParse, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: empty token cache", shared.ErrNotAuthenticated)
	}
	return &tok, nil
}

// Save writes tok to disk with owner-only permissions.
func (t *TokenStore) Save(tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("%w: nil token", shared.ErrInvalidInput)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.WriteFile(t.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}

// TokenSource wraps src so every newly minted token is written to the store.
func (t *TokenStore) TokenSource(src oauth2.TokenSource, current *oauth2.Token) oauth2.TokenSource {
	return &savingTokenSource{store: t, src: src, last: current}
}

type savingTokenSource struct {
	store *TokenStore
	src   oauth2.TokenSource
	mu    sync.Mutex
	last  *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.AccessToken != tok.AccessToken {
		s.store.Lock()
		err := s.store.Save(tok)
		s.store.Unlock()
		if err != nil {
			return nil, err
		}
		s.last = tok
	}
	return tok, nil
}

// ParseAuthCode extracts the authorization code from a pasted redirect URL, or accepts a
// bare code as-is.
func ParseAuthCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty authorization code", shared.ErrInvalidInput)
	}

	if !strings.Contains(input, "://") && !strings.Contains(input, "?") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	q := u.Query()
	if reason := q.Get("error"); reason != "" {
		return "", fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason)
	}
	if code := q.Get("code"); code != "" {
		return code, nil
	}
	return "", fmt.Errorf("%w: no code in redirect URL", shared.ErrInvalidInput)
}

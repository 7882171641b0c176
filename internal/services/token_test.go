package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/yauma/internal/shared"
	"golang.org/x/oauth2"
)

func TestParseAuthCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "Raw Code", input: "  AQBxyz  ", want: "AQBxyz"},
		{name: "Redirect URL", input: "http://localhost:8888/callback?code=abc123&state=s", want: "abc123"},
		{name: "Empty", input: "   ", wantErr: shared.ErrInvalidInput},
		{name: "Denied", input: "http://localhost:8888/callback?error=access_denied", wantErr: shared.ErrAuthFailed},
		{name: "URL Without Code", input: "http://localhost:8888/callback?state=s", wantErr: shared.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAuthCode(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

type staticSource struct {
	tokens []*oauth2.Token
	calls  int
}

func (s *staticSource) Token() (*oauth2.Token, error) {
	tok := s.tokens[min(s.calls, len(s.tokens)-1)]
	s.calls++
	return tok, nil
}

func TestTokenStore(t *testing.T) {
	t.Run("Missing File", func(t *testing.T) {
		store := NewTokenStore(filepath.Join(t.TempDir(), "spotify.cache"))
		if _, err := store.Load(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Save And Load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secrets", "spotify.cache")
		store := NewTokenStore(path)

		tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
		if err := store.Save(tok); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected token file: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if loaded.AccessToken != "a" || loaded.RefreshToken != "r" || !loaded.Expiry.Equal(tok.Expiry) {
			t.Errorf("unexpected token %+v", loaded)
		}
	})

	t.Run("Corrupt File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "spotify.cache")
		os.WriteFile(path, []byte("{"), 0o600)
		if _, err := NewTokenStore(path).Load(); !errors.Is(err, shared.ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}
	})

	t.Run("Saving Token Source", func(t *testing.T) {
		store := NewTokenStore(filepath.Join(t.TempDir(), "spotify.cache"))
		first := &oauth2.Token{AccessToken: "first"}
		src := &staticSource{tokens: []*oauth2.Token{first, {AccessToken: "second"}}}

		ts := store.TokenSource(src, first)
		if _, err := ts.Token(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := store.Load(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("unchanged token should not be written, got %v", err)
		}

		if _, err := ts.Token(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("expected refreshed token on disk: %v", err)
		}
		if loaded.AccessToken != "second" {
			t.Errorf("expected second, got %s", loaded.AccessToken)
		}
	})
}

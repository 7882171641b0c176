package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
)

func TestYTDLP(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		y := NewYTDLP("", "")
		if y.template != "%(title)s.%(ext)s" {
			t.Errorf("unexpected default template %q", y.template)
		}
	})

	t.Run("Fetch With Fake Binary", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("shell script executable")
		}

		dir := t.TempDir()
		argsFile := filepath.Join(dir, "args")
		script := filepath.Join(dir, "yt-dlp")
		body := "#!/bin/sh\nfor a in \"$@\"; do echo \"$a\" >> " + argsFile + "; done\necho /music/p/song.opus\n"
		if err := os.WriteFile(script, []byte(body), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}

		tests := []struct {
			name       string
			locator    Locator
			wantSearch bool
		}{
			{name: "search", locator: Locator{Target: "title artist", Search: true}, wantSearch: true},
			{name: "direct", locator: Locator{Target: "https://youtube.com/watch?v=abc"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				os.Remove(argsFile)
				y := NewYTDLP(script, "")
				unit := Unit{Song: models.Song{ID: "x"}, Locator: tt.locator, Folder: "/music/p"}

				path, err := y.Fetch(context.Background(), unit)
				if err != nil {
					t.Fatalf("Fetch failed: %v", err)
				}
				if path != "/music/p/song.opus" {
					t.Errorf("unexpected path %q", path)
				}

				raw, err := os.ReadFile(argsFile)
				if err != nil {
					t.Fatalf("failed to read args: %v", err)
				}
				args := strings.Split(strings.TrimSpace(string(raw)), "\n")
				for _, want := range []string{"--extract-audio", "--embed-metadata", "after_move:filepath", tt.locator.Target} {
					if !slices.Contains(args, want) {
						t.Errorf("expected %q in %v", want, args)
					}
				}
				if got := slices.Contains(args, "ytsearch"); got != tt.wantSearch {
					t.Errorf("ytsearch present = %v, want %v (%v)", got, tt.wantSearch, args)
				}
			})
		}
	})

	t.Run("Failing Binary", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("shell script executable")
		}

		script := filepath.Join(t.TempDir(), "yt-dlp")
		if err := os.WriteFile(script, []byte("#!/bin/sh\necho boom >&2\nexit 1\n"), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}

		unit := Unit{Song: models.Song{ID: "x"}, Locator: Locator{Target: "https://youtube.com/watch?v=abc"}, Folder: t.TempDir()}
		if _, err := NewYTDLP(script, "").Fetch(context.Background(), unit); !errors.Is(err, shared.ErrDownloadFailed) {
			t.Errorf("expected ErrDownloadFailed, got %v", err)
		}
	})

	t.Run("Empty Locator", func(t *testing.T) {
		_, err := NewYTDLP("", "").Fetch(context.Background(), Unit{Song: models.Song{ID: "x"}})
		if !errors.Is(err, shared.ErrDownloadFailed) {
			t.Errorf("expected ErrDownloadFailed, got %v", err)
		}
	})
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single", in: "/music/a.opus\n", want: "/music/a.opus"},
		{name: "trailing blank lines", in: "noise\n/music/b.opus\n\n", want: "/music/b.opus"},
		{name: "empty", in: "", want: ""},
		{name: "whitespace", in: "  \n \n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lastLine(tt.in); got != tt.want {
				t.Errorf("lastLine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

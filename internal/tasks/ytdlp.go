package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/yauma/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

// YTDLP downloads audio with the yt-dlp binary.
type YTDLP struct {
	executable string
	template   string
}

// NewYTDLP creates a YTDLP downloader.
//
// An empty executable uses "yt-dlp" from PATH; an empty template uses "%(title)s.%(ext)s".
func NewYTDLP(executable, template string) *YTDLP {
	if template == "" {
		template = "%(title)s.%(ext)s"
	}
	return &YTDLP{executable: executable, template: template}
}

// command builds the yt-dlp invocation for a unit.
func (y *YTDLP) command(unit Unit) *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		ExtractAudio().
		EmbedThumbnail().
		EmbedMetadata().
		Output(filepath.Join(unit.Folder, y.template)).
		Print("after_move:filepath")

	if y.executable != "" {
		cmd.SetExecutable(y.executable)
	}
	if unit.Locator.Search {
		cmd.DefaultSearch("ytsearch").PlaylistItems("1")
	}
	return cmd
}

// Fetch runs yt-dlp for one unit and returns the final file path it printed.
func (y *YTDLP) Fetch(ctx context.Context, unit Unit) (string, error) {
	if unit.Locator.Target == "" {
		return "", fmt.Errorf("%w: %s has no locator", shared.ErrDownloadFailed, unit.Song.ID)
	}

	result, err := y.command(unit).Run(ctx, unit.Locator.Target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}

	path := lastLine(result.Stdout)
	if path == "" {
		return "", fmt.Errorf("%w: yt-dlp printed no file path", shared.ErrDownloadFailed)
	}
	return path, nil
}

// lastLine returns the last non-empty line of yt-dlp's output.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

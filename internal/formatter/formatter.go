// package formatter renders cached playlists as CSV, Markdown, plain text or M3U
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
)

// Format names an export format by its file extension.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatM3U      Format = "m3u"
)

// ParseFormat accepts a format name or extension, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(name), ".")); f {
	case FormatCSV, FormatMarkdown, FormatText, FormatM3U:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, name)
	}
}

// Export is one playlist of a source with its songs in playlist order.
type Export struct {
	Source   string
	Playlist models.Playlist
	Songs    []models.Song
}

// ToCSV writes one row per song with columns: ID, Title, Artists, Duration, ISRC, URL, Downloaded
func ToCSV(export Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Duration", "ISRC", "URL", "Downloaded"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range export.Songs {
		record := []string{
			song.ID,
			song.Title,
			strings.Join(song.Artists, "; "),
			strconv.Itoa(int(song.Duration.Seconds())),
			song.ISRC,
			song.URL,
			strconv.FormatBool(song.Downloaded),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown renders a heading, a summary and a numbered song list.
func ToMarkdown(export Export) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Title)
	fmt.Fprintf(&buf, "**Source**: %s\n", export.Source)
	if len(export.Playlist.Tags) > 0 {
		fmt.Fprintf(&buf, "**Tags**: %s\n", strings.Join(export.Playlist.Tags, ", "))
	}
	fmt.Fprintf(&buf, "**Songs**: %d (%d downloaded)\n\n", len(export.Songs), downloaded(export.Songs))

	buf.WriteString("## Songs\n\n")
	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]", i+1, song.ArtistLine(), song.Title, formatDuration(song.Duration))
		if song.Downloaded {
			buf.WriteString(" ✓")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// ToText renders the playlist as plain text.
func ToText(export Export) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Title)
	fmt.Fprintf(&buf, "Source: %s\n", export.Source)
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(export.Songs))

	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.ArtistLine(), song.Title)
	}

	return buf.Bytes()
}

// ToM3U renders an extended M3U playlist that mpv can open. Songs without a URL are skipped.
func ToM3U(export Export) []byte {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	fmt.Fprintf(&buf, "#PLAYLIST:%s\n", export.Playlist.Title)
	for _, song := range export.Songs {
		if song.URL == "" {
			continue
		}
		fmt.Fprintf(&buf, "#EXTINF:%d,%s - %s\n%s\n", int(song.Duration.Seconds()), song.ArtistLine(), song.Title, song.URL)
	}

	return buf.Bytes()
}

// Render encodes export in format f.
func Render(export Export, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ToCSV(export)
	case FormatMarkdown:
		return ToMarkdown(export), nil
	case FormatText:
		return ToText(export), nil
	case FormatM3U:
		return ToM3U(export), nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteExport renders export to path and returns the path written.
//
// An empty path defaults to {playlist title}.{format} in the working directory.
func WriteExport(export Export, f Format, path string) (string, error) {
	if path == "" {
		path = shared.SanitizePathSegment(export.Playlist.Title) + "." + string(f)
	}

	data, err := Render(export, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func downloaded(songs []models.Song) int {
	n := 0
	for _, s := range songs {
		if s.Downloaded {
			n++
		}
	}
	return n
}

func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/yauma/internal/formatter"
	"github.com/desertthunder/yauma/internal/repositories"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheStats prints the number of cached playlists, songs and downloads per source.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	stats, err := repositories.NewCacheRepository(r.config.DatabasePath()).Stats()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Cache: " + r.config.DatabasePath())
	if len(stats) == 0 {
		return r.writePlain("empty\n")
	}
	for _, s := range stats {
		r.writePlain("%-10s %4d playlists %6d songs %6d downloaded\n", s.Source, s.Playlists, s.Songs, s.Downloaded)
	}
	return nil
}

// CacheExport writes one cached playlist as CSV, Markdown, text or M3U. An output of "-"
// prints it instead.
func (r *Runner) CacheExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	source, id := cmd.String("source"), cmd.String("id")
	cache := repositories.NewCacheRepository(r.config.DatabasePath())
	playlist, err := cache.LoadPlaylist(id, source)
	if err != nil {
		return err
	}
	songs, err := cache.PlaylistSongs(id, source)
	if err != nil {
		return err
	}
	export := formatter.Export{Source: source, Playlist: playlist, Songs: songs}

	output := cmd.String("output")
	if output == "-" {
		data, err := formatter.Render(export, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	path, err := formatter.WriteExport(export, format, output)
	if err != nil {
		return err
	}
	r.logger.Info("exported playlist", "source", source, "id", id, "path", path)
	return r.writePlain("✓ Exported %s (%d songs) to %s\n", playlist.Title, len(songs), path)
}

// CacheRollback reverts the most recently applied schema migration.
func (r *Runner) CacheRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	r.logger.Info("rolled back migration", "db", r.config.DatabasePath())
	return r.writePlain("✓ Rolled back the latest migration\n")
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/yauma/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the example configuration when none exists, creates the data directories and
// applies the cache migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
		r.writePlain("✓ Config written to %s\n", r.configPath)
	}

	if err := r.config.EnsureDirs(); err != nil {
		return err
	}

	dbPath := r.config.DatabasePath()
	r.logger.Info("initializing database", "path", dbPath)
	if err := shared.InitDatabase(dbPath); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	r.writePlain("✓ Cache database ready at %s\n", dbPath)
	r.writePlain("✓ Music will be stored under %s\n\n", r.config.MusicDir())
	r.writePlain("Next steps:\n")
	r.writePlain("1. Fill in [credentials] in %s\n", r.configPath)
	r.writePlain("2. Run 'yauma serve', then 'yauma client' in another terminal\n")
	return nil
}

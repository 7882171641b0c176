package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/yauma/internal/hub"
	"github.com/desertthunder/yauma/internal/repositories"
	"github.com/desertthunder/yauma/internal/services"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/desertthunder/yauma/internal/sources"
	"github.com/desertthunder/yauma/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve prepares the cache and the sources, then runs the hub until the context ends.
// SIGHUP drops the cached playlist listings so the next request refetches them.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		r.config.Server.Port = port
	}
	if workers := cmd.Int("workers"); workers != 0 {
		r.config.Server.DownloadWorkers = workers
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if err := r.config.EnsureDirs(); err != nil {
		return err
	}
	dbPath := r.config.DatabasePath()
	if err := shared.InitDatabase(dbPath); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cache := repositories.NewCacheRepository(dbPath)
	downloader := tasks.NewYTDLP(r.config.Storage.YtDlpPath, r.config.Storage.YtDlpOutputTemplate)
	jobs := tasks.NewOrchestrator(cache, downloader, r.config.MusicDir(), r.config.Server.DownloadWorkers,
		shared.WithLogger(r.logger, "component", "downloads"))

	srcs, err := r.buildSources(cache, jobs)
	if err != nil {
		return err
	}
	registry, err := sources.NewRegistry(srcs...)
	if err != nil {
		return err
	}

	go r.refreshOnHangup(ctx, registry)

	r.logger.Info("cache ready", "db", dbPath, "music", r.config.MusicDir())
	err = hub.NewServer(r.config.Addr(), registry, r.logger).ListenAndServe(ctx)

	r.logger.Info("waiting for downloads to finish")
	jobs.Wait()
	return err
}

// buildSources creates Spotify when credentials are configured, and YouTube always.
func (r *Runner) buildSources(cache *repositories.CacheRepository, jobs *tasks.Orchestrator) ([]sources.Source, error) {
	var srcs []sources.Source
	creds := r.config.Credentials

	spotify, err := services.NewSpotifyService(creds.Spotify, r.httpClient)
	switch {
	case errors.Is(err, shared.ErrMissingCredentials):
		r.logger.Warn("spotify credentials not configured, source disabled")
	case err != nil:
		return nil, err
	default:
		logger := shared.WithLogger(r.logger, "source", sources.SpotifyName)
		locator := services.NewLocatorChain(creds.LastFM.APIKey, r.httpClient, logger)
		tokens := services.NewTokenStore(r.config.SpotifyTokenPath())
		srcs = append(srcs, sources.NewSpotify(spotify, tokens, cache, jobs, locator, logger))
	}

	youtube := services.NewYouTubeService(creds.YouTube, r.httpClient)
	if !youtube.HasAPIKey() && len(creds.YouTube.Playlists) == 0 {
		r.logger.Warn("no youtube api key or playlists configured, the source will be empty")
	}
	srcs = append(srcs, sources.NewYouTube(youtube, cache, jobs, shared.WithLogger(r.logger, "source", sources.YouTubeName)))

	return srcs, nil
}

func (r *Runner) refreshOnHangup(ctx context.Context, registry *sources.Registry) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			r.logger.Info("refreshing sources")
			registry.Refresh()
		}
	}
}

// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// serveCommand runs the aggregation server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve playlists from every configured source over TCP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override server.host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override server.port",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Override server.download_workers",
			},
		},
		Action: r.Serve,
	}
}

// clientCommand launches the terminal client
func clientCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "client",
		Aliases: []string{"tui", "ui"},
		Usage:   "Connect to a server and browse, download and play playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Server address (defaults to client.address)",
			},
			&cli.StringFlag{
				Name:  "mpv",
				Usage: "Path to the mpv executable (defaults to client.mpv_path)",
			},
			&cli.BoolFlag{
				Name:  "mpris",
				Usage: "Expose the player on the session bus (defaults to client.mpris)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where the client writes its logs (defaults to <data_location>/client.log)",
			},
		},
		Action: r.Client,
	}
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the configuration file, data directories and cache database",
		Action: r.Setup,
	}
}

// cacheCommand handles cache inspection and maintenance
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the playlist cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cached playlists and songs per source",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:  "export",
				Usage: "Export a cached playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source name (Spotify, Youtube)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md, txt or m3u",
						Value:   "m3u",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path, - for stdout",
					},
				},
				Action: r.CacheExport,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent schema migration",
				Action: r.CacheRollback,
			},
		},
	}
}

// authCommand handles authentication outside of the client
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize sources ahead of time",
		Commands: []*cli.Command{
			{
				Name:  "spotify",
				Usage: "Authorize Spotify through a local callback server",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: 2 * time.Minute,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthSpotify,
			},
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/yauma/internal/client"
	"github.com/desertthunder/yauma/internal/mpris"
	"github.com/desertthunder/yauma/internal/player"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/desertthunder/yauma/internal/ui"
	"github.com/urfave/cli/v3"
)

// Client connects to a server, starts mpv and runs the terminal interface until the user quits.
func (r *Runner) Client(ctx context.Context, cmd *cli.Command) error {
	logPath := cmd.String("log-file")
	if logPath == "" {
		logPath = filepath.Join(r.config.Storage.DataLocation, "client.log")
	}
	fileLogger, closer, err := shared.NewFileLogger(logPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	r.SetLogger(fileLogger)

	addr := cmd.String("address")
	if addr == "" {
		addr = r.config.Client.Address
	}
	mpvPath := cmd.String("mpv")
	if mpvPath == "" {
		mpvPath = r.config.Client.MpvPath
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := client.Dial(ctx, addr, shared.WithLogger(r.logger, "component", "session"))
	if err != nil {
		return err
	}
	defer sess.Close()

	mpv, err := player.StartMPV(ctx, mpvPath, shared.WithLogger(r.logger, "component", "mpv"))
	if err != nil {
		return err
	}
	defer mpv.Close()

	model := ui.NewModel(sess, mpv)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		err := sess.Listen(ctx, func(e client.Event) {
			program.Send(ui.SessionEventMsg(e))
		})
		if err != nil {
			r.logger.Error("connection lost", "error", err)
		}
		program.Send(ui.DisconnectedMsg(err))
	}()

	if cmd.Bool("mpris") || r.config.Client.MPRIS {
		go func() {
			logger := shared.WithLogger(r.logger, "component", "mpris")
			if err := mpris.Serve(ctx, mpv, logger, mpris.WithNowPlaying(model.NowPlaying)); err != nil {
				logger.Error("mpris bridge stopped", "error", err)
			}
		}()
	}

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

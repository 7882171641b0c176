package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/yauma/internal/server"
	"github.com/desertthunder/yauma/internal/services"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthSpotify runs the authorization code flow against a local callback server and stores the
// token where the Spotify source reads it.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify, r.httpClient)
	if err != nil {
		return err
	}

	if err := r.config.EnsureDirs(); err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, spotify, cmd.Duration("timeout"), !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	store := services.NewTokenStore(r.config.SpotifyTokenPath())
	store.Lock()
	err = store.Save(token)
	store.Unlock()
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.writePlain("✓ Authorization successful\n")
	r.writePlain("✓ Token saved to %s\n", store.Path())
	return nil
}

// authorizer is the part of a service needed to run the callback flow.
type authorizer interface {
	server.Exchanger
	AuthURL(state string) string
	RedirectURL() string
}

// doOAuth serves the redirect URI until one callback arrives, the timeout passes or ctx ends.
func (r *Runner) doOAuth(ctx context.Context, auth authorizer, timeout time.Duration, openBrowser bool) (*oauth2.Token, error) {
	state := shared.GenerateID()
	handler, err := server.NewOAuthHandler(auth, auth.RedirectURL(), state)
	if err != nil {
		return nil, err
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	addr, err := callbackAddr(auth.RedirectURL())
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the callback: %w", err)
	}

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()
	r.logger.Info("waiting for oauth callback", "addr", ln.Addr().String())

	authURL := auth.AuthURL(state)
	if !openBrowser {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlain("⚠ Could not open browser automatically.\n")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return nil, fmt.Errorf("authorization failed: %w", result.Err)
		}
		return result.Token, nil
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: no callback after %s", shared.ErrAuthFailed, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callbackAddr is the listen address for a redirect URI, port 80 when the URI has none.
func callbackAddr(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: redirect uri %q", shared.ErrInvalidConfig, redirectURI)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

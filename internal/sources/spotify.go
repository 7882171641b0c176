package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/services"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/desertthunder/yauma/internal/tasks"
	"golang.org/x/oauth2"
)

// SpotifyName is the protocol name of the Spotify source.
const SpotifyName = "Spotify"

// SpotifyAuth is what the Spotify source needs from its API client to authenticate.
type SpotifyAuth interface {
	services.Remote
	AuthURL(state string) string
	Authenticated() bool
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
	Exchange(ctx context.Context, codeOrURL string) (*oauth2.Token, error)
	UseToken(ctx context.Context, tok *oauth2.Token, store *services.TokenStore)
}

// Spotify serves the current user's Spotify playlists. Songs are downloaded from YouTube
// through the locator chain.
type Spotify struct {
	api     SpotifyAuth
	tokens  *services.TokenStore
	catalog *Catalog
	jobs    *tasks.Orchestrator
	locator *services.LocatorChain
	logger  *log.Logger
}

// NewSpotify creates the Spotify source.
func NewSpotify(api SpotifyAuth, tokens *services.TokenStore, cache Cache, jobs *tasks.Orchestrator, locator *services.LocatorChain, logger *log.Logger) *Spotify {
	return &Spotify{
		api:     api,
		tokens:  tokens,
		catalog: NewCatalog(SpotifyName, api, cache, logger),
		jobs:    jobs,
		locator: locator,
		logger:  logger,
	}
}

func (s *Spotify) Name() string { return SpotifyName }

func (s *Spotify) AllPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return s.catalog.Playlists(ctx)
}

func (s *Spotify) PlaylistByID(ctx context.Context, id string) (*Handle, error) {
	return s.catalog.Playlist(ctx, id)
}

func (s *Spotify) Refresh() { s.catalog.Refresh() }

// Download resolves every song through the locator chain and hands the job to the
// orchestrator.
func (s *Spotify) Download(ctx context.Context, songs []models.Song, playlist models.Playlist, out Outbox) {
	var resolver tasks.Resolver
	if s.locator != nil {
		resolver = tasks.ResolverFunc(func(ctx context.Context, song models.Song) tasks.Locator {
			target, search := s.locator.Resolve(ctx, song)
			return tasks.Locator{Target: target, Search: search}
		})
	}

	s.jobs.Start(ctx, tasks.Job{
		Source:   SpotifyName,
		Playlist: playlist,
		Songs:    songs,
		Resolver: resolver,
		Out:      out,
		Done: func(res tasks.Result) {
			s.catalog.MarkDownloaded(playlist.ID, res.Succeeded)
		},
	})
}

// Authenticate loads the cached token, refreshing it when expired. Without a usable token the
// user is sent the authorization URL and the source waits for the redirect URL (or bare
// code) in a Message request addressed to it.
//
// The token lock is held only while the cache is read, refreshed or written, never during the
// interactive wait, so other connections keep serving.
func (s *Spotify) Authenticate(ctx context.Context, sess Session) error {
	if s.restore(ctx) {
		return nil
	}
	return s.reauth(ctx, sess)
}

// restore installs the cached token, refreshing it when needed. It reports whether the source
// is authenticated afterwards.
func (s *Spotify) restore(ctx context.Context) bool {
	s.tokens.Lock()
	defer s.tokens.Unlock()

	if s.api.Authenticated() {
		return true
	}

	tok, err := s.tokens.Load()
	if err != nil {
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			s.logger.Warn("failed to read token cache", "path", s.tokens.Path(), "error", err)
		}
		return false
	}

	fresh, err := s.api.Refresh(ctx, tok)
	if err != nil {
		s.logger.Warn("cached token unusable, reauthorizing", "error", err)
		return false
	}
	if fresh.AccessToken != tok.AccessToken {
		if err := s.tokens.Save(fresh); err != nil {
			s.logger.Error("failed to persist refreshed token", "error", err)
		}
	}
	s.api.UseToken(ctx, fresh, s.tokens)
	return true
}

// install stores a freshly exchanged token unless another connection finished first.
func (s *Spotify) install(ctx context.Context, tok *oauth2.Token) {
	s.tokens.Lock()
	defer s.tokens.Unlock()

	if s.api.Authenticated() {
		return
	}
	if err := s.tokens.Save(tok); err != nil {
		s.logger.Error("failed to persist token", "error", err)
	}
	s.api.UseToken(ctx, tok, s.tokens)
}

// authPollInterval is how often a waiting connection checks whether another one completed
// authorization.
const authPollInterval = time.Second

func (s *Spotify) reauth(ctx context.Context, sess Session) error {
	authURL := s.api.AuthURL(shared.GenerateID())
	if err := sess.Outbox().Send(ctx, models.NewAnswer(SpotifyName, models.MessageAnswer(authURL))); err != nil {
		return err
	}
	s.logger.Info("waiting for spotify authorization")

	for {
		if s.api.Authenticated() {
			s.logger.Info("spotify authorized by another connection")
			return nil
		}

		wait, cancel := context.WithTimeout(ctx, authPollInterval)
		req, ok := sess.Receive(wait)
		expired := wait.Err() != nil && ctx.Err() == nil
		cancel()
		if !ok {
			if expired {
				continue
			}
			return fmt.Errorf("%w: connection closed during authorization", shared.ErrNotAuthenticated)
		}

		if req.Client != SpotifyName || req.Type.Kind != models.RequestMessage {
			sess.Defer(req)
			continue
		}

		tok, err := s.api.Exchange(ctx, req.Type.Text)
		if err != nil {
			s.logger.Warn("authorization code rejected", "error", err)
			if err := sess.Outbox().Send(ctx, models.NewAnswer(SpotifyName, models.MessageAnswer(authURL))); err != nil {
				return err
			}
			continue
		}

		s.install(ctx, tok)
		s.logger.Info("spotify authorized")
		return nil
	}
}

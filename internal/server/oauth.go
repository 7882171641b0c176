package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/yauma/internal/shared"
	"golang.org/x/oauth2"
)

// Exchanger trades an authorization code for a token.
type Exchanger interface {
	Exchange(ctx context.Context, codeOrURL string) (*oauth2.Token, error)
}

// OAuthResult is the outcome of one authorization callback.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><title>yauma</title>
<style>
body { font-family: sans-serif; display: flex; align-items: center; justify-content: center;
       height: 100vh; margin: 0; background: #f5f5f5; }
div { background: white; padding: 2rem; border-radius: 8px; text-align: center; }
</style>
</head>
<body><div><h1>{{.Title}}</h1><p>{{.Detail}}</p></div></body>
</html>
`))

// OAuthHandler serves the redirect URI of an authorization code flow. It accepts exactly
// one callback and reports it on [OAuthHandler.Result].
type OAuthHandler struct {
	exchanger Exchanger
	state     string
	path      string
	results   chan OAuthResult

	mu   sync.Mutex
	done bool
}

// NewOAuthHandler creates a handler for redirectURI. Callbacks whose state differs from
// state are rejected.
func NewOAuthHandler(exchanger Exchanger, redirectURI, state string) (*OAuthHandler, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect uri %q: %v", shared.ErrInvalidConfig, redirectURI, err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		path:      path,
		results:   make(chan OAuthResult, 1),
	}, nil
}

func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		http.Error(w, "callback already processed", http.StatusConflict)
		return
	}
	h.done = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed))
		return
	}
	if reason := q.Get("error"); reason != "" {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason))
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: no code in callback", shared.ErrInvalidInput))
		return
	}

	tok, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, http.StatusBadGateway, err)
		return
	}

	h.results <- OAuthResult{Token: tok}
	h.render(w, http.StatusOK, "Authorization successful", "You can close this window and return to the terminal.")
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, err error) {
	h.results <- OAuthResult{Err: err}
	h.render(w, status, "Authorization failed", err.Error())
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	resultPage.Execute(w, struct{ Title, Detail string }{title, detail})
}

// Result delivers exactly one [OAuthResult].
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

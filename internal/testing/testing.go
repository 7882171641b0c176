// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/services"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/desertthunder/yauma/internal/sources"
	"github.com/desertthunder/yauma/internal/tasks"
)

// Recorder is an answer sink that keeps everything it is sent.
//
// After Close (or after FailAfter successful sends) it rejects answers with [shared.ErrOutboxClosed].
type Recorder struct {
	mu        sync.Mutex
	answers   []models.Answer
	closed    bool
	FailAfter int // Reject sends once this many were accepted; 0 disables
	notify    chan struct{}
}

// NewRecorder creates an open Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) Send(ctx context.Context, answer models.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || (r.FailAfter > 0 && len(r.answers) >= r.FailAfter) {
		return shared.ErrOutboxClosed
	}
	r.answers = append(r.answers, answer)
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close makes further sends fail.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Answers returns a copy of everything accepted so far.
func (r *Recorder) Answers() []models.Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Answer(nil), r.answers...)
}

// WaitFor polls until n answers were accepted or the timeout elapses.
func (r *Recorder) WaitFor(t *testing.T, n int, timeout time.Duration) []models.Answer {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if got := r.Answers(); len(got) >= n {
			return got
		}
		select {
		case <-r.notify:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			got := r.Answers()
			t.Fatalf("timed out waiting for %d answers, got %d: %v", n, len(got), got)
			return got
		}
	}
}

// MockCache is an in-memory [tasks.SongCache].
type MockCache struct {
	mu         sync.Mutex
	Songs      map[string]models.Song // keyed by song id
	RemoveErr  error
	UpdateErr  error
	Updated    [][]models.Song
	updateHits int
}

// NewMockCache creates a MockCache seeded with songs.
func NewMockCache(songs ...models.Song) *MockCache {
	c := &MockCache{Songs: map[string]models.Song{}}
	for _, s := range songs {
		c.Songs[s.ID] = s
	}
	return c
}

func (c *MockCache) RemoveDownloaded(songs []models.Song, source string) ([]models.Song, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RemoveErr != nil {
		return nil, c.RemoveErr
	}
	out := []models.Song{}
	for _, s := range songs {
		if cached, ok := c.Songs[s.ID]; ok {
			s = cached
		}
		if !s.Downloaded {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *MockCache) UpdateSongs(songs []models.Song, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateHits++
	if c.UpdateErr != nil {
		return c.UpdateErr
	}
	c.Updated = append(c.Updated, append([]models.Song(nil), songs...))
	for _, s := range songs {
		c.Songs[s.ID] = s
	}
	return nil
}

// UpdateCalls returns how many times UpdateSongs ran.
func (c *MockCache) UpdateCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateHits
}

// Get returns a cached song.
func (c *MockCache) Get(id string) (models.Song, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.Songs[id]
	return s, ok
}

// MockDownloader is a [tasks.Downloader] that fails for selected song ids.
type MockDownloader struct {
	mu       sync.Mutex
	Fail     map[string]error
	Delay    time.Duration
	Units    []tasks.Unit
	active   int
	MaxSeen  int
	Gate     chan struct{} // When set, each Fetch waits for a value before returning
}

func (d *MockDownloader) Fetch(ctx context.Context, unit tasks.Unit) (string, error) {
	d.mu.Lock()
	d.Units = append(d.Units, unit)
	d.active++
	if d.active > d.MaxSeen {
		d.MaxSeen = d.active
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.active--
		d.mu.Unlock()
	}()

	if d.Gate != nil {
		select {
		case <-d.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if d.Delay > 0 {
		time.Sleep(d.Delay)
	}
	if err := d.Fail[unit.Song.ID]; err != nil {
		return "", err
	}
	return unit.Folder + "/" + unit.Song.ID + ".opus", nil
}

// Calls returns a copy of the units fetched so far.
func (d *MockDownloader) Calls() []tasks.Unit {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]tasks.Unit(nil), d.Units...)
}

// Peak returns the highest number of concurrent fetches observed.
func (d *MockDownloader) Peak() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.MaxSeen
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser is a response body whose reads always fail
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MockRemote is an in-memory [services.Remote].
type MockRemote struct {
	mu         sync.Mutex
	Playlists  []services.RemotePlaylist
	Songs      map[string][]models.Song
	ListErr    error
	FetchErr   map[string]error
	ListCalls  int
	FetchCalls map[string]int
}

// NewMockRemote creates a remote serving playlists with the given songs.
func NewMockRemote() *MockRemote {
	return &MockRemote{Songs: make(map[string][]models.Song), FetchErr: make(map[string]error), FetchCalls: make(map[string]int)}
}

// Add registers a playlist with its etag and songs.
func (m *MockRemote) Add(p models.Playlist, etag string, songs ...models.Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Playlists = append(m.Playlists, services.RemotePlaylist{Playlist: p, Etag: etag})
	m.Songs[p.ID] = songs
}

// SetEtag changes the etag a playlist is reported with.
func (m *MockRemote) SetEtag(id, etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Playlists {
		if m.Playlists[i].Playlist.ID == id {
			m.Playlists[i].Etag = etag
		}
	}
}

func (m *MockRemote) ListPlaylists(ctx context.Context) ([]services.RemotePlaylist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]services.RemotePlaylist(nil), m.Playlists...), nil
}

func (m *MockRemote) FetchSongs(ctx context.Context, id string) ([]models.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls[id]++
	if err := m.FetchErr[id]; err != nil {
		return nil, err
	}
	songs, ok := m.Songs[id]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return append([]models.Song{}, songs...), nil
}

// Fetches returns how many times a playlist was fetched remotely.
func (m *MockRemote) Fetches(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCalls[id]
}

// MockSource is a [sources.Source] serving fixed playlists.
type MockSource struct {
	SourceName string
	Handles    []sources.Handle
	ListErr    error

	mu        sync.Mutex
	downloads []sources.Handle
}

// NewMockSource creates a source with the given name and playlists.
func NewMockSource(name string, handles ...sources.Handle) *MockSource {
	return &MockSource{SourceName: name, Handles: handles}
}

func (m *MockSource) Name() string { return m.SourceName }

func (m *MockSource) AllPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	playlists := make([]models.Playlist, len(m.Handles))
	for i, h := range m.Handles {
		playlists[i] = h.Playlist
	}
	return playlists, nil
}

func (m *MockSource) PlaylistByID(ctx context.Context, id string) (*sources.Handle, error) {
	for _, h := range m.Handles {
		if h.Playlist.ID == id {
			return &sources.Handle{Playlist: h.Playlist, Songs: h.Songs}, nil
		}
	}
	return nil, shared.ErrPlaylistNotFound
}

// Download records the request and emits a finish answer, like a job with nothing to do.
func (m *MockSource) Download(ctx context.Context, songs []models.Song, playlist models.Playlist, out sources.Outbox) {
	m.mu.Lock()
	m.downloads = append(m.downloads, sources.Handle{Playlist: playlist, Songs: songs})
	m.mu.Unlock()
	out.Send(ctx, models.NewAnswer(m.SourceName, models.DownloadFinishAnswer(playlist)))
}

// Downloads returns the recorded download requests.
func (m *MockSource) Downloads() []sources.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sources.Handle(nil), m.downloads...)
}

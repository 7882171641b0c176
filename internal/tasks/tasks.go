package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
)

// DefaultWorkers bounds simultaneous external downloads when no worker count is configured.
const DefaultWorkers = 4

// SongCache is the part of the cache a download job reads and writes.
type SongCache interface {
	RemoveDownloaded(songs []models.Song, source string) ([]models.Song, error)
	UpdateSongs(songs []models.Song, source string) error
}

// AnswerSender delivers answers to the client that started a job.
type AnswerSender interface {
	Send(ctx context.Context, answer models.Answer) error
}

// Locator tells the downloader where to find a song.
//
// Target is a URL, or a free-text query when Search is set.
type Locator struct {
	Target string
	Search bool
}

// Resolver picks a [Locator] for a song. Implementations never fail; they fall back to a search.
type Resolver interface {
	Resolve(ctx context.Context, song models.Song) Locator
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(ctx context.Context, song models.Song) Locator

func (f ResolverFunc) Resolve(ctx context.Context, song models.Song) Locator { return f(ctx, song) }

// directResolver uses the song's own URL.
var directResolver = ResolverFunc(func(_ context.Context, song models.Song) Locator {
	return Locator{Target: song.URL}
})

// Unit is one song handed to a [Downloader].
type Unit struct {
	Song    models.Song
	Locator Locator
	Folder  string
}

// Downloader fetches one unit and returns the path of the written file.
type Downloader interface {
	Fetch(ctx context.Context, unit Unit) (string, error)
}

// Job describes one playlist download request.
type Job struct {
	ID       string
	Source   string
	Playlist models.Playlist
	Songs    []models.Song
	Resolver Resolver              // Optional, defaults to the song URL
	Out      AnswerSender          // Client answers; sends stop after the first failure
	Progress chan<- ProgressUpdate // Optional local observer
	Done     func(Result)          // Optional, called once after the finish answer
}

// Result summarizes a finished job.
type Result struct {
	JobID     string
	Total     int
	Succeeded []models.Song
	Failed    int
	Detached  bool // The client went away before the job finished
}

// Orchestrator runs download jobs against a cache and a downloader.
type Orchestrator struct {
	cache      SongCache
	downloader Downloader
	musicDir   string
	workers    int
	logger     *log.Logger
	wg         sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator writing under musicDir.
//
// A non-positive worker count uses [DefaultWorkers].
func NewOrchestrator(cache SongCache, downloader Downloader, musicDir string, workers int, logger *log.Logger) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		cache:      cache,
		downloader: downloader,
		musicDir:   musicDir,
		workers:    workers,
		logger:     logger,
	}
}

// Folder returns the output directory for a playlist of a source.
func (o *Orchestrator) Folder(source, playlistTitle string) string {
	return filepath.Join(o.musicDir, shared.SanitizePathSegment(source), shared.SanitizePathSegment(playlistTitle))
}

// Start runs job in the background and returns its ID immediately.
//
// The job is not bound to ctx's cancellation: it outlives the connection that requested it.
func (o *Orchestrator) Start(ctx context.Context, job Job) string {
	if job.ID == "" {
		job.ID = shared.GenerateID()
	}
	ctx = context.WithoutCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.Run(ctx, job)
	}()
	return job.ID
}

// Wait blocks until every job started with [Orchestrator.Start] has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// unitResult is what a worker reports for one unit.
type unitResult struct {
	song models.Song
	err  error
}

// Run executes job synchronously.
func (o *Orchestrator) Run(ctx context.Context, job Job) Result {
	if job.ID == "" {
		job.ID = shared.GenerateID()
	}
	if job.Resolver == nil {
		job.Resolver = directResolver
	}
	logID := job.ID
	if len(logID) > 8 {
		logID = logID[:8]
	}
	logger := shared.WithLogger(o.logger, "job", logID, "source", job.Source, "playlist", job.Playlist.ID)

	songs, err := o.cache.RemoveDownloaded(job.Songs, job.Source)
	if err != nil {
		logger.Warn("cache unavailable, downloading every song", "error", err)
		songs = job.Songs
	}

	total := len(songs)
	result := Result{JobID: job.ID, Total: total}
	sendProgress(job.Progress, pendingUpdate(job.ID, total, len(job.Songs)))
	logger.Info("download started", "songs", total, "requested", len(job.Songs))

	folder := o.Folder(job.Source, job.Playlist.Title)
	if total > 0 {
		if err := os.MkdirAll(folder, 0755); err != nil {
			logger.Error("failed to create download folder", "folder", folder, "error", err)
		}
	}

	send := func(data models.AnswerType) {
		if result.Detached || job.Out == nil {
			return
		}
		if err := job.Out.Send(ctx, models.NewAnswer(job.Source, data)); err != nil {
			logger.Info("client gone, job continues detached", "error", err)
			result.Detached = true
		}
	}

	units := make(chan models.Song, total)
	results := make(chan unitResult, total)

	workers := min(o.workers, total)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go o.worker(ctx, &wg, job.Resolver, folder, units, results)
	}

	for _, song := range songs {
		units <- song
	}
	close(units)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			result.Failed++
			logger.Warn("song download failed", "song", res.song.String(), "error", res.err)
			sendProgress(job.Progress, unitFailedUpdate(job.ID, completed, total, res.song, res.err))
		} else {
			result.Succeeded = append(result.Succeeded, res.song)
			logger.Debug("song downloaded", "song", res.song.String(), "path", res.song.URL)
			sendProgress(job.Progress, unitDoneUpdate(job.ID, completed, total, res.song))
		}
		send(models.DownloadProgressAnswer(job.Playlist, uint64(completed), uint64(total)))
	}

	if err := o.cache.UpdateSongs(result.Succeeded, job.Source); err != nil {
		logger.Error("failed to persist downloaded songs", "count", len(result.Succeeded), "error", err)
	}

	send(models.DownloadFinishAnswer(job.Playlist))
	sendProgress(job.Progress, completedUpdate(job.ID, len(result.Succeeded), total))
	logger.Info("download finished", "succeeded", len(result.Succeeded), "failed", result.Failed, "detached", result.Detached)

	if job.Done != nil {
		job.Done(result)
	}
	return result
}

// worker processes units until the channel closes.
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, resolver Resolver, folder string, units <-chan models.Song, results chan<- unitResult) {
	defer wg.Done()

	for song := range units {
		unit := Unit{Song: song, Locator: resolver.Resolve(ctx, song), Folder: folder}

		path, err := o.downloader.Fetch(ctx, unit)
		if err == nil && path == "" {
			err = fmt.Errorf("%w: no output file reported", shared.ErrDownloadFailed)
		}
		if err != nil {
			results <- unitResult{song: song, err: err}
			continue
		}

		song.URL = path
		song.Downloaded = true
		results <- unitResult{song: song}
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Package tasks runs playlist download jobs with bounded parallelism and streamed progress.
//
// # Job Lifecycle
//
// Every [Job] passes through three phases:
//
//  1. [Pending] : the cache filters out songs that already have a valid local copy
//  2. [InFlight] : a worker pool hands each remaining song to the [Downloader]
//  3. [Completed] : successful songs are written back to the cache and a single finish answer is sent
//
// Each unit, successful or not, produces one DownloadProgress answer with a monotonically increasing count.
// Failed units are logged and left out of the cache update so that the next download request retries them.
// Nothing is retried within a job.
//
// # Progress Reporting
//
// Answers go to the job's [AnswerSender]. Once a send fails (the client connection is gone) the job is
// detached: it keeps downloading and persisting, but stops sending. Local observers may also pass a
// [ProgressUpdate] channel; updates use select with default so they never block the job.
//
// # Implementation
//
// [Orchestrator] owns the worker count, the cache and the downloader. [YTDLP] implements [Downloader]
// on top of the yt-dlp binary.
package tasks

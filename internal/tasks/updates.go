package tasks

import (
	"fmt"

	"github.com/desertthunder/yauma/internal/models"
)

// ProgressUpdate represents a progress event during a download job.
//
// Used by local observers (logs, CLI) in addition to the answers sent to the client.
type ProgressUpdate struct {
	JobID   string // Job the update belongs to
	Phase   Phase  // Job phase
	Step    int    // Completed units so far
	Total   int    // Units in this job
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, such as the finished song
}

// Job phase enumeration
type Phase int

const (
	Pending Phase = iota
	InFlight
	Completed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case InFlight:
		return "in_flight"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

func pendingUpdate(jobID string, total, requested int) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   Pending,
		Total:   total,
		Message: fmt.Sprintf("%d of %d songs need downloading", total, requested),
	}
}

func unitDoneUpdate(jobID string, step, total int, song models.Song) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   InFlight,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Downloaded %s", song.Title),
		Data:    song,
	}
}

func unitFailedUpdate(jobID string, step, total int, song models.Song, err error) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   InFlight,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Failed %s: %v", song.Title, err),
		Data:    song,
	}
}

func completedUpdate(jobID string, succeeded, total int) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   Completed,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("%d of %d songs downloaded", succeeded, total),
	}
}

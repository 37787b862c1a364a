package logging

import (
	"sync/atomic"
	"time"

	"github.com/forter/s3-compare/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// ProgressTracker tracks progress of a fixed-size set of items.
// It is safe for concurrent use.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	startTime time.Time
	log       zerolog.Logger
	phase     string
}

// NewProgressTracker creates a tracker for total items under the given phase.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
		log:       log,
		phase:     phase,
	}
}

// RecordCompletion records one completed item and returns the completed count.
func (pt *ProgressTracker) RecordCompletion() int64 {
	return pt.completed.Add(1)
}

// Completed returns the completed count.
func (pt *ProgressTracker) Completed() int64 {
	return pt.completed.Load()
}

// Total returns the total count.
func (pt *ProgressTracker) Total() int64 {
	return pt.total
}

// ProgressPct returns the progress percentage (0-100).
func (pt *ProgressTracker) ProgressPct() float64 {
	if pt.total == 0 {
		return 100.0
	}
	return float64(pt.completed.Load()) * 100.0 / float64(pt.total)
}

// ETA estimates time remaining from the overall completion rate.
func (pt *ProgressTracker) ETA() time.Duration {
	completed := pt.completed.Load()
	if completed == 0 {
		return 0
	}
	remaining := pt.total - completed
	if remaining <= 0 {
		return 0
	}
	avg := time.Since(pt.startTime) / time.Duration(completed)
	return avg * time.Duration(remaining)
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// LogProgress emits a progress event at debug level.
func (pt *ProgressTracker) LogProgress(msg string) {
	e := pt.log.Debug().
		Str("event", "progress").
		Str("phase", pt.phase).
		Int64("completed", pt.completed.Load()).
		Int64("total", pt.total).
		Float64("progress_pct", pt.ProgressPct())

	if eta := pt.ETA(); eta > 0 {
		e = e.Int64("eta_ms", eta.Milliseconds())
		if IsPrettyMode() {
			e = e.Str("eta_h", humanfmt.Duration(eta))
		}
	}

	e.Msg(msg)
}

// LogComplete emits a phase completion event at info level.
func (pt *ProgressTracker) LogComplete(msg string) {
	elapsed := pt.Elapsed()
	e := pt.log.Info().
		Str("event", "phase_completed").
		Str("phase", pt.phase).
		Int64("completed", pt.completed.Load()).
		Int64("duration_ms", elapsed.Milliseconds())

	if IsPrettyMode() {
		e = e.Str("completed_h", humanfmt.Count(pt.completed.Load())).
			Str("duration_h", humanfmt.Duration(elapsed))
	}

	e.Msg(msg)
}

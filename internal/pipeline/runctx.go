// Package pipeline drives a scoring run: login, problem catalog, sequential
// score collection and ranking.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"
)

// ProgressFunc receives the number of finished fetches out of the total.
type ProgressFunc func(done, total int)

// RunContext carries the per-run cancellation flag, progress sink and logger.
// Build one per run and drop it when the run ends.
type RunContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	progress ProgressFunc
	log      zerolog.Logger
}

// NewRunContext derives a cancellable run context from parent.
func NewRunContext(parent context.Context, log zerolog.Logger, progress ProgressFunc) *RunContext {
	ctx, cancel := context.WithCancel(parent)
	return &RunContext{ctx: ctx, cancel: cancel, progress: progress, log: log}
}

// Context returns the context used for network requests.
func (rc *RunContext) Context() context.Context {
	return rc.ctx
}

// IsCancelled reports whether the run was asked to stop.
func (rc *RunContext) IsCancelled() bool {
	return rc.ctx.Err() != nil
}

// Cancel requests a cooperative stop. Safe to call from another goroutine.
func (rc *RunContext) Cancel() {
	rc.cancel()
}

// ReportProgress forwards progress to the sink, if any.
func (rc *RunContext) ReportProgress(done, total int) {
	if rc.progress != nil {
		rc.progress(done, total)
	}
}

// Logger returns the run logger.
func (rc *RunContext) Logger() *zerolog.Logger {
	return &rc.log
}

// Close releases the context resources.
func (rc *RunContext) Close() {
	rc.cancel()
}

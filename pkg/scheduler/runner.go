package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.uber.org/atomic"

	"github.com/teslashibe/go-sightguide/pkg/perception"
)

// ProcessFunc handles one admitted frame on the worker goroutine.
// It must not release the frame; the runner does.
type ProcessFunc func(ctx context.Context, frame perception.Frame)

// Runner hosts the single processing worker. Frames arriving while the worker
// is busy are released and dropped immediately; nothing is queued or retried.
type Runner struct {
	gate    Gate
	work    chan perception.Frame
	done    chan struct{}
	stopped atomic.Bool
	process ProcessFunc
	logger  *slog.Logger

	submitted atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	panics    atomic.Uint64
}

// RunnerStats summarizes admission activity.
type RunnerStats struct {
	Submitted uint64 `json:"submitted"`
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Panics    uint64 `json:"panics"`
}

// NewRunner creates a runner that hands frames to process.
func NewRunner(process ProcessFunc, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		work:    make(chan perception.Frame, 1),
		done:    make(chan struct{}),
		process: process,
		logger:  logger.With("component", "runner"),
	}
}

// Submit offers frame to the worker. It returns false, after releasing the
// frame, when the worker is busy or stopped.
func (r *Runner) Submit(frame perception.Frame) bool {
	r.submitted.Inc()

	if r.stopped.Load() || !r.gate.TryAcquire() {
		frame.Release()
		r.dropped.Inc()
		return false
	}

	select {
	case r.work <- frame:
	case <-r.done:
		frame.Release()
		r.gate.Release()
		r.dropped.Inc()
		return false
	}

	// Run may have drained work before the send landed. The stopped flag is
	// set before that drain, so a frame still buffered here is never handled.
	if r.stopped.Load() {
		select {
		case f := <-r.work:
			f.Release()
			r.gate.Release()
			r.dropped.Inc()
			return false
		default:
		}
	}
	return true
}

// Run processes admitted frames until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Debug("worker started")
	defer func() {
		r.stopped.Store(true)
		close(r.done)
		select {
		case f := <-r.work:
			f.Release()
			r.gate.Release()
			r.dropped.Inc()
		default:
		}
		r.logger.Debug("worker stopped", "processed", r.processed.Load(), "dropped", r.dropped.Load())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-r.work:
			r.handle(ctx, f)
		}
	}
}

// handle processes f, then releases the frame, then the gate.
func (r *Runner) handle(ctx context.Context, f perception.Frame) {
	defer r.gate.Release()
	defer f.Release()
	defer func() {
		if v := recover(); v != nil {
			r.panics.Inc()
			r.logger.Error("frame processing panicked",
				"panic", fmt.Sprint(v),
				"stack", string(debug.Stack()))
		}
	}()

	r.process(ctx, f)
	r.processed.Inc()
}

// Busy reports whether a frame is in flight.
func (r *Runner) Busy() bool {
	return r.gate.Busy()
}

// Stats returns admission counters.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Submitted: r.submitted.Load(),
		Processed: r.processed.Load(),
		Dropped:   r.dropped.Load(),
		Panics:    r.panics.Load(),
	}
}

package service

import (
	"context"
	"errors"
	"sync"

	"github.com/timmy/fitetl/internal/logger"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// PipelineFactory builds a fresh pipeline, and with it a fresh batch id, per run.
type PipelineFactory func() (*Pipeline, error)

// Runner serializes pipeline runs triggered from outside the CLI.
type Runner struct {
	factory PipelineFactory

	mu      sync.Mutex
	current *Pipeline
	last    *RunSummary
	lastErr error
	done    chan struct{}
}

// NewRunner creates a runner using factory for every run.
func NewRunner(factory PipelineFactory) *Runner {
	return &Runner{factory: factory}
}

// RunStatus is a snapshot of the runner.
type RunStatus struct {
	Running     bool        `json:"running"`
	BatchID     string      `json:"batch_id,omitempty"`
	State       RunState    `json:"state,omitempty"`
	LastSummary *RunSummary `json:"last_summary,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
}

// Start launches a run in the background and returns its batch id.
// The run is detached from ctx cancellation but keeps its logger.
func (r *Runner) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return "", ErrRunInProgress
	}
	p, err := r.factory()
	if err != nil {
		return "", err
	}
	r.current = p
	r.done = make(chan struct{})

	runCtx := context.Background()
	if logger.HasLogger(ctx) {
		runCtx = logger.FromContext(ctx).WithContext(runCtx)
	}
	go r.run(runCtx, p, r.done)
	return p.BatchID(), nil
}

func (r *Runner) run(ctx context.Context, p *Pipeline, done chan struct{}) {
	defer close(done)

	summary, err := p.Run(ctx)

	r.mu.Lock()
	r.current = nil
	r.last = summary
	r.lastErr = err
	r.mu.Unlock()
}

// Wait blocks until the active run, if any, finishes.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns the current run state and the last completed summary.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := RunStatus{LastSummary: r.last}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	if r.current != nil {
		st.Running = true
		st.BatchID = r.current.BatchID()
		st.State = r.current.State()
	}
	return st
}

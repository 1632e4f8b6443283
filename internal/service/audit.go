package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/repository"
)

// JobLogStore persists job log entries. *repository.JobLogRepository implements it.
type JobLogStore interface {
	Create(ctx context.Context, job *domain.ETLJobLog) error
	Complete(ctx context.Context, jobID string, c repository.JobCompletion) error
}

// JobSpec describes a job when it starts.
type JobSpec struct {
	JobName      string
	JobType      string
	SourceSystem string
	TargetTable  string
}

// JobOutcome describes a job when it ends.
type JobOutcome struct {
	Status           domain.JobStatus
	RecordsProcessed int
	RecordsInserted  int
	RecordsUpdated   int
	RecordsRejected  int
	ErrorMessage     string
}

// AuditResult reports whether an audit write reached the job log.
// Audit failures never change the outcome of the load they describe.
type AuditResult struct {
	JobID   string
	Skipped bool  // EndJob without an active job
	Err     error // write failure, already logged
}

// OK reports whether the write happened and succeeded.
func (r AuditResult) OK() bool {
	return !r.Skipped && r.Err == nil
}

// JobAuditLogger records the RUNNING → terminal lifecycle of load jobs.
// It tracks one active job at a time.
type JobAuditLogger struct {
	store  JobLogStore
	logger *logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	activeID string
}

// NewJobAuditLogger creates an audit logger writing to store.
func NewJobAuditLogger(store JobLogStore, log *logger.Logger) *JobAuditLogger {
	return &JobAuditLogger{store: store, logger: log, now: time.Now}
}

func (a *JobAuditLogger) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, a.logger)
}

// ActiveJobID returns the ID of the started, not yet ended job.
func (a *JobAuditLogger) ActiveJobID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeID
}

// StartJob inserts a RUNNING entry and makes it the active job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - spec: job name, type, source system and target table.
// Returns:
//   - string: generated job ID, empty when the insert failed.
//   - AuditResult: write outcome.
func (a *JobAuditLogger) StartJob(ctx context.Context, spec JobSpec) (string, AuditResult) {
	jobID := uuid.New().String()
	if spec.JobType == "" {
		spec.JobType = domain.JobTypeLoad
	}

	entry := &domain.ETLJobLog{
		JobID:        jobID,
		JobName:      spec.JobName,
		JobType:      spec.JobType,
		SourceSystem: spec.SourceSystem,
		TargetTable:  spec.TargetTable,
		StartTime:    a.now(),
		Status:       domain.JobStatusRunning,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.activeID != "" {
		a.log(ctx).Warnf("Job %s was never ended; replacing it with %s", a.activeID, spec.JobName)
		a.activeID = ""
	}

	if err := a.store.Create(ctx, entry); err != nil {
		err = fmt.Errorf("failed to start job %s: %w", spec.JobName, err)
		a.log(ctx).WithError(err).Error("Audit write failed")
		return "", AuditResult{Err: err}
	}

	a.activeID = jobID
	a.log(ctx).WithField(logger.FieldJobID, jobID).Infof("Started job: %s", spec.JobName)
	return jobID, AuditResult{JobID: jobID}
}

// EndJob moves the active job to a terminal status and clears it.
// Without an active job nothing is written and the result is Skipped.
func (a *JobAuditLogger) EndJob(ctx context.Context, out JobOutcome) AuditResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.activeID == "" {
		a.log(ctx).Warn("No active job to end")
		return AuditResult{Skipped: true, Err: domain.ErrNoActiveJob}
	}
	jobID := a.activeID
	a.activeID = ""

	c := repository.JobCompletion{
		EndTime:          a.now(),
		Status:           out.Status,
		RecordsProcessed: out.RecordsProcessed,
		RecordsInserted:  out.RecordsInserted,
		RecordsUpdated:   out.RecordsUpdated,
		RecordsRejected:  out.RecordsRejected,
	}
	if out.ErrorMessage != "" {
		msg := out.ErrorMessage
		c.ErrorMessage = &msg
	}

	if err := a.store.Complete(ctx, jobID, c); err != nil {
		err = fmt.Errorf("failed to end job %s: %w", jobID, err)
		a.log(ctx).WithError(err).Error("Audit write failed")
		return AuditResult{JobID: jobID, Err: err}
	}

	a.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:  jobID,
		logger.FieldStatus: out.Status,
	}).Infof("Ended job %s with status: %s", jobID, out.Status)
	return AuditResult{JobID: jobID}
}

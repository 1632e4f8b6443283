package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/repository"
	"github.com/timmy/fitetl/internal/source"
)

// RunState is the orchestrator's position in a run.
type RunState string

const (
	StateNotConnected RunState = "NOT_CONNECTED"
	StateConnected    RunState = "CONNECTED"
	StateSummarized   RunState = "SUMMARIZED"
	StateClosed       RunState = "CLOSED"
)

// Pipeline stages, reported as the failed stage of a dataset.
const (
	StageExtract   = "extract"
	StageQuality   = "quality"
	StageTransform = "transform"
	StageLoad      = "load"
	StageArchive   = "archive"
)

// DatasetStatus is the outcome of one dataset kind in a run.
type DatasetStatus string

const (
	DatasetSucceeded    DatasetStatus = "SUCCESS"
	DatasetFailed       DatasetStatus = "FAILED"
	DatasetNotAttempted DatasetStatus = "NOT_ATTEMPTED"
)

// DatasetResult records what happened to one dataset kind.
type DatasetResult struct {
	Kind        domain.Kind           `json:"kind"`
	Table       string                `json:"table"`
	Status      DatasetStatus         `json:"status"`
	FailedStage string                `json:"failed_stage,omitempty"`
	RowsRead    int                   `json:"rows_read"`
	RowsLoaded  int                   `json:"rows_loaded"`
	Quality     *domain.QualityReport `json:"quality,omitempty"`
	JobID       string                `json:"job_id,omitempty"`
	ArchiveKey  string                `json:"archive_key,omitempty"`
	Error       string                `json:"error,omitempty"`
	AuditError  string                `json:"audit_error,omitempty"`

	Err error `json:"-"`
}

// Failed reports whether the kind counts as a failure.
func (r DatasetResult) Failed() bool {
	return r.Status != DatasetSucceeded
}

// RunSummary is the end-of-run report.
type RunSummary struct {
	BatchID      string          `json:"batch_id"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Connected    bool            `json:"connected"`
	Results      []DatasetResult `json:"results"`
	SuccessCount int             `json:"success_count"`
	FailCount    int             `json:"fail_count"`
	Error        string          `json:"error,omitempty"`
}

// Succeeded reports overall success: connected and no kind failed.
func (s *RunSummary) Succeeded() bool {
	return s.Connected && s.FailCount == 0
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithArchiver enables archiving of load-ready datasets.
func WithArchiver(a *Archiver) PipelineOption {
	return func(p *Pipeline) { p.archiver = a }
}

// WithAuditStore replaces the job log store built from the warehouse connection.
func WithAuditStore(f func(WarehouseStore) JobLogStore) PipelineOption {
	return func(p *Pipeline) { p.newAuditStore = f }
}

// WithClock sets the clock used for the batch id and load timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline loads every dataset kind from a source into the raw layer.
// One Pipeline is one batch: build a new one per run.
type Pipeline struct {
	cfg           *config.Config
	store         WarehouseStore
	source        source.TabularSource
	logger        *logger.Logger
	archiver      *Archiver
	newAuditStore func(WarehouseStore) JobLogStore
	now           func() time.Time

	batchID     string
	checker     *QualityChecker
	transformer *Transformer
	loader      *WarehouseLoader
	mode        domain.LoadMode

	mu    sync.Mutex
	state RunState
}

// NewPipeline creates a pipeline and fixes its batch id.
// Parameters:
//   - cfg: validated configuration.
//   - store: warehouse connection, opened by Run.
//   - src: raw dataset source.
//   - log: base logger.
//   - opts: optional archiver, audit store or clock.
// Returns:
//   - *Pipeline: pipeline in state NOT_CONNECTED.
func NewPipeline(cfg *config.Config, store WarehouseStore, src source.TabularSource, log *logger.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		store:  store,
		source: src,
		logger: log,
		now:    time.Now,
		state:  StateNotConnected,
	}
	p.newAuditStore = func(s WarehouseStore) JobLogStore {
		return repository.NewJobLogRepository(s.DB(), repository.JobLogTable(s.Driver(), cfg.Layers.Metadata.Schema))
	}
	for _, opt := range opts {
		opt(p)
	}

	p.batchID = NewBatchID(p.now())
	p.checker = NewQualityChecker(cfg.Quality, log)
	p.transformer = NewTransformer(NewMetadataEnricher(p.now), p.batchID)
	p.loader = NewWarehouseLoader(store, log)
	p.mode, _ = domain.ParseLoadMode(cfg.ETL.LoadMode)
	if p.mode == "" {
		p.mode = domain.LoadModeAppend
	}
	return p
}

// BatchID returns the identifier stamped on every record of this run.
func (p *Pipeline) BatchID() string {
	return p.batchID
}

// State returns the current run state.
func (p *Pipeline) State() RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s RunState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run processes every dataset kind in order. A failing kind is recorded and the
// next one runs; only a warehouse connection failure stops the run. The
// connection is always closed before returning.
// Returns:
//   - *RunSummary: per-kind results and counts, also on error.
//   - error: wraps domain.ErrConnection when the warehouse was unreachable.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	if !logger.HasLogger(ctx) && p.logger != nil {
		ctx = p.logger.WithContext(ctx)
	}
	ctx = logger.SetBatchID(logger.SetComponent(ctx, "pipeline"), p.batchID)
	log := logger.FromContext(ctx)

	summary := &RunSummary{BatchID: p.batchID, StartedAt: p.now()}

	log.Info("Starting fitness ETL pipeline")

	defer func() {
		if err := p.store.Close(); err != nil {
			log.WithError(err).Warn("Failed to close warehouse connection")
		}
		p.setState(StateClosed)
	}()

	if err := p.store.Connect(ctx); err != nil {
		err = fmt.Errorf("failed to connect to warehouse: %w", err)
		log.WithError(err).Error("Aborting pipeline")
		summary.Error = err.Error()
		p.finish(ctx, summary)
		return summary, err
	}
	summary.Connected = true
	p.setState(StateConnected)

	audit := NewJobAuditLogger(p.newAuditStore(p.store), p.logger)

	var abort error
	for _, kind := range domain.AllKinds {
		var res DatasetResult
		if abort != nil {
			res = DatasetResult{
				Kind:   kind,
				Table:  p.cfg.RawTable(kind).String(),
				Status: DatasetNotAttempted,
				Err:    abort,
				Error:  abort.Error(),
			}
		} else {
			res = p.processKind(ctx, kind, audit)
			if errors.Is(res.Err, domain.ErrConnection) {
				abort = res.Err
				log.WithError(abort).Error("Lost warehouse connection, skipping remaining datasets")
			}
		}
		summary.Results = append(summary.Results, res)
	}

	p.finish(ctx, summary)
	if abort != nil {
		summary.Error = abort.Error()
		return summary, abort
	}
	return summary, nil
}

func (p *Pipeline) finish(ctx context.Context, summary *RunSummary) {
	summary.SuccessCount, summary.FailCount = 0, 0
	for _, r := range summary.Results {
		if r.Failed() {
			summary.FailCount++
		} else {
			summary.SuccessCount++
		}
	}
	summary.FinishedAt = p.now()
	p.setState(StateSummarized)

	logger.With(logger.Fields{
		"total":      len(domain.AllKinds),
		"successful": summary.SuccessCount,
		"failed":     summary.FailCount,
	}).WithDuration(summary.StartedAt).Info(ctx, "ETL pipeline summary for batch %s", summary.BatchID)

	for _, r := range summary.Results {
		entry := logger.With(logger.Fields{
			logger.FieldDataset: r.Kind,
			logger.FieldStatus:  r.Status,
			logger.FieldRows:    r.RowsLoaded,
		})
		if r.Failed() {
			entry.With(logger.Fields{logger.FieldStage: r.FailedStage, "error": r.Error}).Warn(ctx, "Dataset %s failed", r.Kind)
		} else {
			entry.Info(ctx, "Dataset %s loaded", r.Kind)
		}
		if r.AuditError != "" {
			entry.Warn(ctx, "Audit write failed for %s: %s", r.Kind, r.AuditError)
		}
	}
}

// processKind runs extract, quality, transform, load and audit for one kind.
func (p *Pipeline) processKind(ctx context.Context, kind domain.Kind, audit *JobAuditLogger) DatasetResult {
	ctx = logger.SetDataset(ctx, string(kind))
	ref := p.cfg.RawTable(kind)
	res := DatasetResult{Kind: kind, Table: ref.String()}

	fail := func(stage string, err error) DatasetResult {
		res.Status = DatasetFailed
		res.FailedStage = stage
		res.Err = err
		res.Error = err.Error()
		logger.FromContext(ctx).WithError(err).Errorf("Error processing %s", kind)
		return res
	}

	logger.CtxInfo(ctx, "Processing %s", kind)

	raw, err := p.source.Read(logger.SetStage(ctx, StageExtract), kind)
	if err != nil {
		return fail(StageExtract, err)
	}
	res.RowsRead = raw.Len()

	if p.cfg.ETL.EnableDataQualityChecks {
		dsCfg, _ := p.cfg.Dataset(kind)
		report := p.checker.RunAllChecks(logger.SetStage(ctx, StageQuality), raw, string(kind), dsCfg.DuplicateKeys...)
		res.Quality = &report
		if !report.Passed {
			logger.CtxWarn(ctx, "Data quality issues detected for %s, proceeding with caution", kind)
		}
	}

	ready, err := p.transformer.Transform(logger.SetStage(ctx, StageTransform), raw)
	if err != nil {
		return fail(StageTransform, err)
	}

	loadCtx := logger.SetStage(ctx, StageLoad)
	jobID, started := audit.StartJob(loadCtx, JobSpec{
		JobName:      "Load_" + ref.Table,
		JobType:      domain.JobTypeLoad,
		SourceSystem: kind.SourceSystem(),
		TargetTable:  ref.String(),
	})
	res.JobID = jobID
	noteAudit(&res, started)
	if jobID != "" {
		loadCtx = logger.SetJobID(loadCtx, jobID)
	}

	load, err := p.loader.Load(loadCtx, ready, ref, p.mode)
	if err != nil {
		noteAudit(&res, audit.EndJob(loadCtx, JobOutcome{
			Status:           domain.JobStatusFailed,
			RecordsProcessed: ready.Len(),
			ErrorMessage:     err.Error(),
		}))
		return fail(StageLoad, err)
	}
	if !load.Success() {
		noteAudit(&res, audit.EndJob(loadCtx, JobOutcome{
			Status:           domain.JobStatusFailed,
			RecordsProcessed: ready.Len(),
			ErrorMessage:     load.Cause.Error(),
		}))
		return fail(StageLoad, load.Cause)
	}

	res.RowsLoaded = load.Rows
	outcome := JobOutcome{
		Status:           domain.JobStatusSuccess,
		RecordsProcessed: ready.Len(),
		RecordsInserted:  load.Rows,
	}
	if load.Rows < ready.Len() {
		outcome.Status = domain.JobStatusPartial
		outcome.RecordsRejected = ready.Len() - load.Rows
	}
	noteAudit(&res, audit.EndJob(loadCtx, outcome))

	if p.archiver != nil {
		key, err := p.archiver.Archive(logger.SetStage(ctx, StageArchive), p.batchID, ready)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warnf("Failed to archive %s", kind)
		} else {
			res.ArchiveKey = key
		}
	}

	res.Status = DatasetSucceeded
	logger.CtxInfo(ctx, "Successfully processed %s", kind)
	return res
}

// noteAudit keeps the first audit write failure of a dataset.
func noteAudit(res *DatasetResult, a AuditResult) {
	if a.Err != nil && !a.Skipped && res.AuditError == "" {
		res.AuditError = a.Err.Error()
	}
}

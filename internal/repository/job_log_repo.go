package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/fitetl/internal/domain"
	"gorm.io/gorm"
)

// JobLogRepository persists ETL job audit entries.
type JobLogRepository struct {
	db    *gorm.DB
	table string
}

// NewJobLogRepository creates a new JobLogRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//   - table: qualified audit table name; empty uses domain.ETLJobLog's own name.
// Returns:
//   - *JobLogRepository: repository instance bound to db.
func NewJobLogRepository(db *gorm.DB, table string) *JobLogRepository {
	if table == "" {
		table = domain.ETLJobLog{}.TableName()
	}
	return &JobLogRepository{db: db, table: table}
}

// JobLogTable returns the audit table name for a driver and metadata schema.
// SQLite has no schemas, so the schema is dropped there.
func JobLogTable(driver, schema string) string {
	name := domain.ETLJobLog{}.TableName()
	if driver == "postgres" && schema != "" {
		return schema + "." + name
	}
	return name
}

// Migrate creates the audit table if it does not exist.
func (r *JobLogRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).Table(r.table).AutoMigrate(&domain.ETLJobLog{})
}

// Create inserts a new job log entry.
func (r *JobLogRepository) Create(ctx context.Context, job *domain.ETLJobLog) error {
	return r.db.WithContext(ctx).Table(r.table).Create(job).Error
}

// JobCompletion holds the terminal fields written when a job ends.
type JobCompletion struct {
	EndTime          time.Time
	Status           domain.JobStatus
	RecordsProcessed int
	RecordsInserted  int
	RecordsUpdated   int
	RecordsRejected  int
	ErrorMessage     *string
}

// Complete moves a RUNNING job to its terminal state.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: ID returned when the job was created.
//   - c: terminal values.
// Returns:
//   - error: non-nil if the update fails or no running job matches jobID.
func (r *JobLogRepository) Complete(ctx context.Context, jobID string, c JobCompletion) error {
	if !c.Status.Terminal() {
		return fmt.Errorf("status %s is not terminal", c.Status)
	}
	res := r.db.WithContext(ctx).Table(r.table).
		Where("job_id = ? AND status = ?", jobID, domain.JobStatusRunning).
		Updates(map[string]interface{}{
			"end_time":          c.EndTime,
			"status":            c.Status,
			"records_processed": c.RecordsProcessed,
			"records_inserted":  c.RecordsInserted,
			"records_updated":   c.RecordsUpdated,
			"records_rejected":  c.RecordsRejected,
			"error_message":     c.ErrorMessage,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no running job %s", jobID)
	}
	return nil
}

// GetByID retrieves a job log entry by its ID.
func (r *JobLogRepository) GetByID(ctx context.Context, jobID string) (*domain.ETLJobLog, error) {
	var job domain.ETLJobLog
	if err := r.db.WithContext(ctx).Table(r.table).First(&job, "job_id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// JobLogFilter narrows List results. Zero values match everything.
type JobLogFilter struct {
	Status      domain.JobStatus
	TargetTable string
	Limit       int
	Offset      int
}

// List returns job log entries, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: status/table filter and paging.
// Returns:
//   - []domain.ETLJobLog: matching entries.
//   - int64: total matches ignoring paging.
//   - error: non-nil if the query fails.
func (r *JobLogRepository) List(ctx context.Context, filter JobLogFilter) ([]domain.ETLJobLog, int64, error) {
	filtered := func() *gorm.DB {
		query := r.db.WithContext(ctx).Table(r.table)
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.TargetTable != "" {
			query = query.Where("target_table = ?", filter.TargetTable)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var jobs []domain.ETLJobLog
	err := filtered().Order("start_time DESC").Limit(limit).Offset(filter.Offset).Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

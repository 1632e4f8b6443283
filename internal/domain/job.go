package domain

import "time"

// JobStatus represents the lifecycle state of an ETL job log entry.
// A job starts as JobStatusRunning and moves exactly once to a terminal state.
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
	JobStatusPartial JobStatus = "PARTIAL"
)

// Terminal reports whether the status ends a job.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusFailed, JobStatusPartial:
		return true
	}
	return false
}

// JobTypeLoad is the only job type written by the pipeline.
const JobTypeLoad = "LOAD"

// ETLJobLog is one audited load attempt.
type ETLJobLog struct {
	JobID            string     `gorm:"column:job_id;type:text;primaryKey" json:"job_id"`
	JobName          string     `gorm:"column:job_name;type:text;not null" json:"job_name"`
	JobType          string     `gorm:"column:job_type;type:text;not null" json:"job_type"`
	SourceSystem     string     `gorm:"column:source_system;type:text" json:"source_system"`
	TargetTable      string     `gorm:"column:target_table;type:text" json:"target_table"`
	StartTime        time.Time  `gorm:"column:start_time;not null;index" json:"start_time"`
	EndTime          *time.Time `gorm:"column:end_time" json:"end_time,omitempty"`
	Status           JobStatus  `gorm:"column:status;type:text;not null;index" json:"status"`
	RecordsProcessed int        `gorm:"column:records_processed;default:0" json:"records_processed"`
	RecordsInserted  int        `gorm:"column:records_inserted;default:0" json:"records_inserted"`
	RecordsUpdated   int        `gorm:"column:records_updated;default:0" json:"records_updated"`
	RecordsRejected  int        `gorm:"column:records_rejected;default:0" json:"records_rejected"`
	ErrorMessage     *string    `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
}

// TableName returns the database table name for ETLJobLog.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ETLJobLog) TableName() string {
	return "etl_job_log"
}

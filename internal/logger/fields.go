package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a run.
const (
	// FieldBatchID identifies one pipeline run (YYYYMMDD_HHMMSS)
	FieldBatchID = "batch_id"

	// FieldDataset is the dataset kind being processed
	FieldDataset = "dataset"

	// FieldJobID is the audit log job ID
	FieldJobID = "job_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldStage is the pipeline stage: extract, transform, quality, load, audit
	FieldStage = "stage"

	// FieldRequestID is the HTTP request ID
	FieldRequestID = "request_id"
)

// Metric fields, attached per entry.
const (
	FieldDurationMs = "duration_ms"
	FieldRows       = "rows"
	FieldTable      = "table"
	FieldStatus     = "status"
)

package service

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/fitetl/internal/domain"
)

// BatchIDLayout formats the timestamp a batch id is derived from.
const BatchIDLayout = "20060102_150405"

// NewBatchID returns the batch identifier for a run started at t.
func NewBatchID(t time.Time) string {
	return t.Format(BatchIDLayout)
}

// MetadataEnricher appends lineage columns to load-ready datasets.
type MetadataEnricher struct {
	now func() time.Time
}

// NewMetadataEnricher creates an enricher. A nil clock uses time.Now.
func NewMetadataEnricher(now func() time.Time) *MetadataEnricher {
	if now == nil {
		now = time.Now
	}
	return &MetadataEnricher{now: now}
}

// AddMetadata returns a copy of ds with source_system, load_timestamp, batch_id and
// record_hash appended to every row. ds itself is left untouched. The hash covers
// the original values only, in column order, so reordering columns changes it.
// Parameters:
//   - ds: dataset to enrich.
//   - sourceSystem: lineage tag of the dataset kind.
//   - batchID: identifier of the current run.
// Returns:
//   - *domain.Dataset: new dataset with four extra columns.
func (m *MetadataEnricher) AddMetadata(ds *domain.Dataset, sourceSystem, batchID string) *domain.Dataset {
	loadedAt := m.now()

	columns := make([]string, 0, ds.Width()+len(domain.MetadataColumns))
	columns = append(columns, ds.Columns...)
	columns = append(columns, domain.MetadataColumns...)

	out := domain.NewDataset(ds.Kind, columns)
	out.Rows = make([][]any, len(ds.Rows))
	for i, row := range ds.Rows {
		r := make([]any, 0, len(columns))
		r = append(r, row...)
		r = append(r, sourceSystem, loadedAt, batchID, RecordHash(row))
		out.Rows[i] = r
	}
	return out
}

// RecordHash returns the hex MD5 of the row's values joined with "|".
func RecordHash(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = FormatValue(v)
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// FormatValue renders a cell the way it is hashed and archived.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case domain.Date:
		return val.String()
	case domain.TimeOfDay:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

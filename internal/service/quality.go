package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
)

// Check names, in the order they run.
const (
	CheckRecordCount = "record_count"
	CheckNulls       = "nulls"
	CheckDuplicates  = "duplicates"
)

// QualityChecker validates datasets against the configured thresholds.
// It holds no per-call state; every call returns its own report.
type QualityChecker struct {
	thresholds config.QualityConfig
	logger     *logger.Logger
}

// NewQualityChecker creates a checker bound to fixed thresholds.
func NewQualityChecker(thresholds config.QualityConfig, log *logger.Logger) *QualityChecker {
	return &QualityChecker{thresholds: thresholds, logger: log}
}

func (q *QualityChecker) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, q.logger)
}

// RunAllChecks runs the record-count, null and duplicate checks. All three always
// run; the report passes only when each of them does.
// Parameters:
//   - ctx: carries the logger.
//   - ds: dataset to inspect.
//   - name: dataset name used in issue strings.
//   - duplicateKeys: optional column subset defining a duplicate row.
// Returns:
//   - domain.QualityReport: measurements, per-check results and overall verdict.
func (q *QualityChecker) RunAllChecks(ctx context.Context, ds *domain.Dataset, name string, duplicateKeys ...string) domain.QualityReport {
	q.log(ctx).Infof("Running data quality checks for %s", name)

	report := domain.QualityReport{Name: name}

	countCheck := q.CheckRecordCount(ds, name)
	report.RecordCount = ds.Len()

	nullCheck := q.CheckNulls(ds, name)
	report.NullPercentage = nullCheck.Value

	dupCheck := q.CheckDuplicates(ds, name, duplicateKeys...)
	report.DuplicatePercentage = dupCheck.Value

	report.Checks = []domain.CheckResult{countCheck, nullCheck, dupCheck}
	report.Passed = countCheck.Passed && nullCheck.Passed && dupCheck.Passed

	entry := q.log(ctx).WithFields(logger.Fields{
		"record_count":         report.RecordCount,
		"null_percentage":      report.NullPercentage,
		"duplicate_percentage": report.DuplicatePercentage,
	})
	if report.Passed {
		entry.Infof("All quality checks passed for %s", name)
	} else {
		for _, issue := range report.Issues() {
			entry.Warn(issue)
		}
	}
	return report
}

// CheckRecordCount fails when the dataset has fewer rows than the minimum.
func (q *QualityChecker) CheckRecordCount(ds *domain.Dataset, name string) domain.CheckResult {
	n := ds.Len()
	res := domain.CheckResult{Name: CheckRecordCount, Passed: true, Value: float64(n)}
	if n < q.thresholds.MinRecordCount {
		res.Passed = false
		res.Issue = fmt.Sprintf("Insufficient records in %s: %d", name, n)
	}
	return res
}

// CheckNulls computes nulls / (rows × columns) × 100 and fails above the threshold.
// An empty dataset has 0% nulls.
func (q *QualityChecker) CheckNulls(ds *domain.Dataset, name string) domain.CheckResult {
	pct := NullPercentage(ds)
	res := domain.CheckResult{Name: CheckNulls, Passed: true, Value: pct}
	if pct > q.thresholds.NullPercentageThreshold {
		res.Passed = false
		res.Issue = fmt.Sprintf("Excessive nulls in %s: %.2f%%", name, pct)
	}
	return res
}

// CheckDuplicates computes duplicate rows / rows × 100 and fails above the threshold.
// The first occurrence of a row is not a duplicate. A key column missing from the
// dataset fails the check.
func (q *QualityChecker) CheckDuplicates(ds *domain.Dataset, name string, keys ...string) domain.CheckResult {
	res := domain.CheckResult{Name: CheckDuplicates, Passed: true}

	dups, err := DuplicateCount(ds, keys...)
	if err != nil {
		res.Passed = false
		res.Issue = fmt.Sprintf("Cannot check duplicates in %s: %v", name, err)
		return res
	}
	if ds.Len() > 0 {
		res.Value = float64(dups) / float64(ds.Len()) * 100
	}
	if res.Value > q.thresholds.DuplicatePercentageThreshold {
		res.Passed = false
		res.Issue = fmt.Sprintf("Excessive duplicates in %s: %.2f%%", name, res.Value)
	}
	return res
}

// NullPercentage returns the share of nil cells in ds, in percent.
func NullPercentage(ds *domain.Dataset) float64 {
	total := ds.Len() * ds.Width()
	if total == 0 {
		return 0
	}
	nulls := 0
	for _, row := range ds.Rows {
		for _, v := range row {
			if v == nil {
				nulls++
			}
		}
	}
	return float64(nulls) / float64(total) * 100
}

// DuplicateCount returns how many rows repeat an earlier row, comparing either
// every column or only the given key columns.
func DuplicateCount(ds *domain.Dataset, keys ...string) (int, error) {
	idx := make([]int, 0, ds.Width())
	if len(keys) == 0 {
		for i := range ds.Columns {
			idx = append(idx, i)
		}
	} else {
		for _, k := range keys {
			i := ds.ColumnIndex(k)
			if i < 0 {
				return 0, fmt.Errorf("unknown key column %q", k)
			}
			idx = append(idx, i)
		}
	}

	// Rows are bucketed by a 128-bit murmur3 digest; keys within a bucket are
	// compared in full.
	seen := make(map[[2]uint64][]string, ds.Len())
	dups := 0
	var b strings.Builder
	for _, row := range ds.Rows {
		b.Reset()
		for _, i := range idx {
			writeKeyCell(&b, row[i])
		}
		key := b.String()
		h1, h2 := murmur3.Sum128([]byte(key))
		bucket := [2]uint64{h1, h2}

		found := false
		for _, k := range seen[bucket] {
			if k == key {
				found = true
				break
			}
		}
		if found {
			dups++
			continue
		}
		seen[bucket] = append(seen[bucket], key)
	}
	return dups, nil
}

// writeKeyCell writes an unambiguous encoding of v: nulls and empty strings differ,
// and separators cannot occur inside a value's length-prefixed text.
func writeKeyCell(b *strings.Builder, v any) {
	if v == nil {
		b.WriteString("N;")
		return
	}
	s := FormatValue(v)
	fmt.Fprintf(b, "%d:%s;", len(s), s)
}

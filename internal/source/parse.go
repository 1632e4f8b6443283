package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/timmy/fitetl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Parse decodes a delimited (.csv) or spreadsheet (.xlsx) file into a dataset of kind.
// The header must contain every source column of the kind's descriptor; other
// columns are dropped and returned in ignored.
// Parameters:
//   - kind: dataset kind, selects the descriptor.
//   - name: file name, its extension selects the format.
//   - r: file contents.
// Returns:
//   - *domain.Dataset: string cells, nil for empty ones.
//   - []string: header columns not in the descriptor.
//   - error: *domain.SchemaError for missing columns, or a decode error.
func Parse(kind domain.Kind, name string, r io.Reader) (*domain.Dataset, []string, error) {
	schema, ok := domain.SchemaFor(kind)
	if !ok {
		return nil, nil, fmt.Errorf("unknown dataset kind %q", kind)
	}

	var records [][]string
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", "":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	default:
		return nil, nil, fmt.Errorf("unsupported file type: %s", name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s has no header row", name)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	positions := make([]int, len(schema.Columns))
	var missing []string
	for i, c := range schema.Columns {
		pos, ok := index[c.Source]
		if !ok {
			missing = append(missing, c.Source)
		}
		positions[i] = pos
	}
	known := make(map[string]bool, len(schema.Columns))
	for _, c := range schema.Columns {
		known[c.Source] = true
	}
	var ignored []string
	for _, h := range header {
		if h = strings.TrimSpace(h); !known[h] {
			ignored = append(ignored, h)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &domain.SchemaError{Kind: kind, Missing: missing, Extra: ignored}
	}

	ds := domain.NewDataset(kind, schema.SourceColumns())
	ds.Rows = make([][]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]any, len(positions))
		for i, pos := range positions {
			if pos < len(rec) && rec[pos] != "" {
				row[i] = rec[pos]
			}
		}
		ds.Append(row)
	}
	return ds, ignored, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// readXLSX reads the first sheet of a workbook.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

package source

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/timmy/fitetl/internal/domain"
)

// WriteCSV writes ds as a header row followed by one row per record.
// Nil cells are written as empty fields, which Parse reads back as nil.
func WriteCSV(w io.Writer, ds *domain.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	rec := make([]string, ds.Width())
	for _, row := range ds.Rows {
		for i, v := range row {
			if v == nil {
				rec[i] = ""
			} else {
				rec[i] = fmt.Sprint(v)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package domain

// Dataset is an in-memory table: an ordered column list and rows of cells
// aligned with it. A nil cell is a null.
type Dataset struct {
	Kind    Kind
	Columns []string
	Rows    [][]any
}

// NewDataset creates an empty dataset with the given columns.
// Parameters:
//   - kind: dataset kind the rows belong to.
//   - columns: ordered column names.
// Returns:
//   - *Dataset: dataset with no rows.
func NewDataset(kind Kind, columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Kind: kind, Columns: cols}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	return len(d.Columns)
}

// ColumnIndex returns the position of a column, or -1 when absent.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every value of the named column, or nil when absent.
func (d *Dataset) Column(name string) []any {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out
}

// Append adds a row. The row must have exactly Width cells.
func (d *Dataset) Append(row []any) {
	d.Rows = append(d.Rows, row)
}

// Clone returns a deep copy of the column list and row slices.
// Cell values are immutable scalars and are shared.
func (d *Dataset) Clone() *Dataset {
	out := NewDataset(d.Kind, d.Columns)
	out.Rows = make([][]any, len(d.Rows))
	for i, row := range d.Rows {
		r := make([]any, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Record returns row i as a column→value map.
func (d *Dataset) Record(i int) map[string]any {
	rec := make(map[string]any, len(d.Columns))
	for j, c := range d.Columns {
		rec[c] = d.Rows[i][j]
	}
	return rec
}

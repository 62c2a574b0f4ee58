package headlines

import (
	"fmt"
	"slices"
)

// Schema is the canonical, ordered set of headline columns. Every normalized table and
// every emitted CSV uses exactly these names in exactly this order.
var Schema = []string{
	"news_source_id",
	"news_source_name",
	"news_author",
	"news_title",
	"news_description",
	"news_url",
	"news_image_url",
	"news_publication_date",
	"news_content",
}

// Table is a column-oriented table of string scalars. All columns have the same length.
type Table struct {
	names  []string
	values [][]string
}

// NewTable creates an empty table with the given column names.
func NewTable(names ...string) *Table {
	return &Table{
		names:  slices.Clone(names),
		values: make([][]string, len(names)),
	}
}

// NewHeadlineTable creates an empty table with the canonical headline schema.
func NewHeadlineTable() *Table {
	return NewTable(Schema...)
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.names)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.values) == 0 {
		return 0
	}
	return len(t.values[0])
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	idx := slices.Index(t.names, name)
	if idx < 0 {
		return nil, false
	}
	return t.values[idx], true
}

// Row returns the i-th row in column order.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.names))
	for c := range t.names {
		row[c] = t.values[c][i]
	}
	return row
}

// AppendRow adds a single row. The row must have one value per column.
func (t *Table) AppendRow(row []string) error {
	if len(row) != len(t.names) {
		return fmt.Errorf("%w: row has %d values, table has %d columns", ErrDataFormat, len(row), len(t.names))
	}
	for c, v := range row {
		t.values[c] = append(t.values[c], v)
	}
	return nil
}

// Append concatenates the rows of other after the rows of t, preserving order.
// Both tables must share the same column names in the same order.
func (t *Table) Append(other *Table) error {
	if other == nil {
		return nil
	}
	if !slices.Equal(t.names, other.names) {
		return fmt.Errorf("%w: cannot append table with columns %v to %v", ErrDataFormat, other.names, t.names)
	}
	for c := range t.names {
		t.values[c] = append(t.values[c], other.values[c]...)
	}
	return nil
}

// setColumn replaces the values of column c. Used while building a table.
func (t *Table) setColumn(c int, values []string) {
	t.values[c] = values
}

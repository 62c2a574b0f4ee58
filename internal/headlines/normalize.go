package headlines

import "fmt"

// Normalizer turns extracted columns into a table with the canonical headline schema.
type Normalizer interface {
	Normalize(cols *ExtractedColumns) (*Table, error)
}

// PositionalNormalizer renames the i-th extracted field to the i-th canonical column.
// Field names are ignored; only their order matters.
type PositionalNormalizer struct{}

// NewPositionalNormalizer creates a PositionalNormalizer.
func NewPositionalNormalizer() *PositionalNormalizer {
	return &PositionalNormalizer{}
}

// Normalize implements Normalizer.
func (n *PositionalNormalizer) Normalize(cols *ExtractedColumns) (*Table, error) {
	if cols.Len() == 0 {
		return nil, fmt.Errorf("%w: news data argument cannot be empty", ErrEmptyData)
	}

	fields := cols.Fields()
	if len(fields) > len(Schema) {
		return nil, fmt.Errorf("%w: %d extracted fields exceed the %d-column schema", ErrDataFormat, len(fields), len(Schema))
	}

	rows := cols.Rows()
	table := NewHeadlineTable()
	for c := range Schema {
		values := make([]string, rows)
		if c < len(fields) {
			copy(values, cols.Values(fields[c]))
		}
		table.setColumn(c, values)
	}
	return table, nil
}

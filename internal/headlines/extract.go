package headlines

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// ExtractedColumns is the column-oriented output of extraction: field name to values,
// with fields kept in the order they were added.
type ExtractedColumns struct {
	fields []string
	values map[string][]string
}

// NewExtractedColumns creates an empty column set.
func NewExtractedColumns() *ExtractedColumns {
	return &ExtractedColumns{values: make(map[string][]string)}
}

// Add appends a field. Adding an existing field replaces its values in place.
func (e *ExtractedColumns) Add(field string, values []string) {
	if _, ok := e.values[field]; !ok {
		e.fields = append(e.fields, field)
	}
	e.values[field] = values
}

// Fields returns the field names in insertion order.
func (e *ExtractedColumns) Fields() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.fields)
}

// Values returns the values of field.
func (e *ExtractedColumns) Values(field string) []string {
	if e == nil {
		return nil
	}
	return e.values[field]
}

// Len returns the number of fields.
func (e *ExtractedColumns) Len() int {
	if e == nil {
		return 0
	}
	return len(e.fields)
}

// Rows returns the length of the shortest column.
func (e *ExtractedColumns) Rows() int {
	if e.Len() == 0 {
		return 0
	}
	rows := -1
	for _, f := range e.fields {
		if n := len(e.values[f]); rows < 0 || n < rows {
			rows = n
		}
	}
	return rows
}

// Extractor pulls headline fields out of a raw source document.
type Extractor interface {
	Extract(doc *RawDocument) (*ExtractedColumns, error)
}

// articleField maps one News API article attribute onto an extracted column.
type articleField struct {
	column  string
	path    []string   // nested lookup, e.g. source.id
	aliases [][]string // alternative paths used by some sources
}

// articleFields is the fixed extraction order for article listings.
var articleFields = []articleField{
	{column: "source_id", path: []string{"source", "id"}, aliases: [][]string{{"source_id"}}},
	{column: "source_name", path: []string{"source", "name"}, aliases: [][]string{{"source_name"}}},
	{column: "author", path: []string{"author"}},
	{column: "title", path: []string{"title"}},
	{column: "description", path: []string{"description"}},
	{column: "url", path: []string{"url"}},
	{column: "url_to_image", path: []string{"urlToImage"}, aliases: [][]string{{"image_url"}}},
	{column: "published_at", path: []string{"publishedAt"}, aliases: [][]string{{"published_at"}}},
	{column: "content", path: []string{"content"}},
}

// NewsExtractor extracts headline columns from News API listings. It accepts either an
// object carrying an "articles" array, or a column-oriented object whose values are
// index-aligned arrays.
type NewsExtractor struct{}

// NewNewsExtractor creates a NewsExtractor.
func NewNewsExtractor() *NewsExtractor {
	return &NewsExtractor{}
}

// Extract implements Extractor.
func (x *NewsExtractor) Extract(doc *RawDocument) (*ExtractedColumns, error) {
	if doc == nil || doc.Len() == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrDataFormat)
	}

	if err := checkAPIStatus(doc); err != nil {
		return nil, err
	}

	if raw, ok := doc.Field("articles"); ok {
		return extractArticles(raw)
	}
	return extractColumns(doc)
}

// checkAPIStatus rejects News API error envelopes ({"status":"error","code":...}).
func checkAPIStatus(doc *RawDocument) error {
	raw, ok := doc.Field("status")
	if !ok {
		return nil
	}
	var status string
	if err := json.Unmarshal(raw, &status); err != nil || status != "error" {
		return nil
	}

	var code, message string
	if v, ok := doc.Field("code"); ok {
		_ = json.Unmarshal(v, &code)
	}
	if v, ok := doc.Field("message"); ok {
		_ = json.Unmarshal(v, &message)
	}
	return fmt.Errorf("%w: news api error response (code=%q): %s", ErrDataFormat, code, message)
}

func extractArticles(raw json.RawMessage) (*ExtractedColumns, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: 'articles' is not an array: %v", ErrDataFormat, err)
	}

	columns := make([][]string, len(articleFields))
	for c := range columns {
		columns[c] = make([]string, 0, len(items))
	}

	for i, item := range items {
		v, err := decodeValue(item)
		if err != nil {
			return nil, fmt.Errorf("%w: article %d: %v", ErrDataFormat, i, err)
		}
		article, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: article %d is %T, want object", ErrDataFormat, i, v)
		}
		for c, f := range articleFields {
			columns[c] = append(columns[c], scalarString(lookupArticle(article, f)))
		}
	}

	out := NewExtractedColumns()
	for c, f := range articleFields {
		out.Add(f.column, columns[c])
	}
	return out, nil
}

func lookupArticle(article map[string]any, f articleField) any {
	if v, ok := lookupPath(article, f.path); ok {
		return v
	}
	for _, alias := range f.aliases {
		if v, ok := lookupPath(article, alias); ok {
			return v
		}
	}
	return nil
}

func lookupPath(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// extractColumns handles column-oriented documents: every top-level value is an array,
// and all arrays have the same length.
func extractColumns(doc *RawDocument) (*ExtractedColumns, error) {
	out := NewExtractedColumns()
	rows := -1

	for _, key := range doc.Keys() {
		raw, _ := doc.Field(key)
		v, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrDataFormat, key, err)
		}
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: field %q is %T, want array (no 'articles' listing found)", ErrDataFormat, key, v)
		}
		if rows >= 0 && len(list) != rows {
			return nil, fmt.Errorf("%w: field %q has %d values, expected %d (misaligned columns)", ErrDataFormat, key, len(list), rows)
		}
		rows = len(list)

		values := make([]string, len(list))
		for i, item := range list {
			values[i] = scalarString(item)
		}
		out.Add(key, values)
	}
	return out, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

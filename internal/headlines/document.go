package headlines

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RawDocument is one decoded JSON object. Top-level keys are kept in the order they
// appear in the source so that positional column mapping stays stable.
type RawDocument struct {
	keys   []string
	fields map[string]json.RawMessage
}

// NewRawDocument creates an empty document.
func NewRawDocument() *RawDocument {
	return &RawDocument{fields: make(map[string]json.RawMessage)}
}

// Set stores a field. A repeated key keeps its first position and takes the latest value,
// which mirrors how encoding/json resolves duplicates.
func (d *RawDocument) Set(key string, value json.RawMessage) {
	if _, ok := d.fields[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.fields[key] = value
}

// Keys returns the top-level keys in document order.
func (d *RawDocument) Keys() []string {
	return d.keys
}

// Field returns the raw JSON value for key.
func (d *RawDocument) Field(key string) (json.RawMessage, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// Len returns the number of top-level keys.
func (d *RawDocument) Len() int {
	return len(d.keys)
}

// ParseDocuments decodes one or more concatenated JSON objects (JSON Lines included)
// from r, in order.
func ParseDocuments(r io.Reader) ([]*RawDocument, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var docs []*RawDocument
	for {
		doc, err := decodeObject(dec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %v", ErrDataFormat, len(docs)+1, err)
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no json document found", ErrDataFormat)
	}
	return docs, nil
}

// ParseDocumentBytes is ParseDocuments over an in-memory payload.
func ParseDocumentBytes(data []byte) ([]*RawDocument, error) {
	return ParseDocuments(bytes.NewReader(data))
}

func decodeObject(dec *json.Decoder) (*RawDocument, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected json object, got %v", tok)
	}

	doc := NewRawDocument()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, unexpectedEOF(err))
		}
		doc.Set(key, raw)
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, unexpectedEOF(err)
	}
	return doc, nil
}

// unexpectedEOF keeps a truncated object from being mistaken for the end of input.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// scalarString renders a decoded JSON value as a CSV cell.
func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		var buf strings.Builder
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return fmt.Sprint(val)
		}
		return strings.TrimRight(buf.String(), "\n")
	}
}

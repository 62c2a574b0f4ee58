package headlines

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CSVWriter writes a table to a CSV file at an exact path.
type CSVWriter interface {
	// Write returns true only once the file is confirmed on disk. A non-nil error
	// always comes with false.
	Write(table *Table, path string) (bool, error)
}

// FileCSVWriter writes tables to the local filesystem. It never creates directories.
type FileCSVWriter struct{}

// NewFileCSVWriter creates a FileCSVWriter.
func NewFileCSVWriter() *FileCSVWriter {
	return &FileCSVWriter{}
}

// Write implements CSVWriter.
func (w *FileCSVWriter) Write(table *Table, path string) (bool, error) {
	if table == nil {
		return false, fmt.Errorf("%w: nil table for %s", ErrIOWrite, path)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return false, fmt.Errorf("%w: destination directory %s: %v", ErrIOWrite, dir, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%w: destination %s is not a directory", ErrIOWrite, dir)
	}

	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("%w: create %s: %v", ErrIOWrite, path, err)
	}

	if err := WriteTable(f, table); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("%w: %s: %v", ErrIOWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("%w: close %s: %v", ErrIOWrite, path, err)
	}

	if _, err := os.Stat(path); err != nil {
		return false, fmt.Errorf("%w: %s not found after write: %v", ErrIOWrite, path, err)
	}
	return true, nil
}

// WriteTable encodes table as CSV: one header record, then one record per row.
func WriteTable(out io.Writer, table *Table) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(table.Columns()); err != nil {
		return err
	}
	for i := 0; i < table.Len(); i++ {
		if err := cw.Write(table.Row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a CSV file written by FileCSVWriter back into a table.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadTable(f)
}

// ReadTable decodes CSV with a header record into a table. Quoted values are
// kept byte for byte, so a "\r\n" inside a value reads back unchanged.
func ReadTable(in io.Reader) (*Table, error) {
	rr := newRecordReader(in)

	header, err := rr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv has no header", ErrDataFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFormat, err)
	}

	table := NewTable(header...)
	for {
		record, err := rr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataFormat, err)
		}
		if err := table.AppendRow(record); err != nil {
			return nil, fmt.Errorf("line %d: %w", rr.line, err)
		}
	}
	return table, nil
}

// recordReader splits RFC 4180 input into records. encoding/csv rewrites
// "\r\n" to "\n" even inside quotes, which breaks write/read round trips.
type recordReader struct {
	r    *bufio.Reader
	line int
}

func newRecordReader(in io.Reader) *recordReader {
	return &recordReader{r: bufio.NewReader(in), line: 1}
}

// Read returns the next record, or io.EOF once the input is exhausted.
// Blank lines between records are skipped.
func (rr *recordReader) Read() ([]string, error) {
	var (
		record    []string
		field     strings.Builder
		inQuotes  bool
		wasQuoted bool
		started   bool
	)
	start := rr.line

	for {
		b, err := rr.r.ReadByte()
		if errors.Is(err, io.EOF) {
			if inQuotes {
				return nil, fmt.Errorf("line %d: unterminated quoted field", start)
			}
			if !started {
				return nil, io.EOF
			}
			return append(record, field.String()), nil
		}
		if err != nil {
			return nil, err
		}

		if inQuotes {
			if b == '"' {
				if next, err := rr.r.Peek(1); err == nil && next[0] == '"' {
					_, _ = rr.r.ReadByte()
					field.WriteByte('"')
					continue
				}
				inQuotes = false
				continue
			}
			if b == '\n' {
				rr.line++
			}
			field.WriteByte(b)
			continue
		}

		switch b {
		case '\r':
			if next, err := rr.r.Peek(1); err == nil && next[0] == '\n' {
				continue
			}
			started = true
			field.WriteByte(b)
		case '\n':
			rr.line++
			if !started {
				start = rr.line
				continue
			}
			return append(record, field.String()), nil
		case ',':
			started = true
			record = append(record, field.String())
			field.Reset()
			wasQuoted = false
		case '"':
			if wasQuoted || field.Len() > 0 {
				return nil, fmt.Errorf("line %d: bare quote in unquoted field", rr.line)
			}
			started = true
			inQuotes = true
			wasQuoted = true
		default:
			if wasQuoted {
				return nil, fmt.Errorf("line %d: unexpected %q after quoted field", rr.line, b)
			}
			started = true
			field.WriteByte(b)
		}
	}
}

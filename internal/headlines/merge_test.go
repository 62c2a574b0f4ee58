package headlines

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFileReader serves file contents from memory.
type MockFileReader struct {
	Files map[string][]byte
	Reads []string
}

func (m *MockFileReader) ReadFile(path string) ([]byte, error) {
	m.Reads = append(m.Reads, path)
	data, ok := m.Files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return data, nil
}

// MockExtractor delegates to ExtractFunc.
type MockExtractor struct {
	ExtractFunc func(doc *RawDocument) (*ExtractedColumns, error)
}

func (m *MockExtractor) Extract(doc *RawDocument) (*ExtractedColumns, error) {
	return m.ExtractFunc(doc)
}

func TestMerger_MergeAll_PreservesRowCountAndOrder(t *testing.T) {
	counts := []int{3, 0, 2, 5}
	reader := &MockFileReader{Files: map[string][]byte{}}
	var paths []string
	for i, n := range counts {
		path := fmt.Sprintf("/headlines/f%d.json", i)
		reader.Files[path] = listing(fmt.Sprintf("f%d", i), n)
		paths = append(paths, path)
	}

	m := NewMerger(reader, NewNewsExtractor(), NewPositionalNormalizer())
	merged, err := m.MergeAll(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, 10, merged.Len())
	assert.Equal(t, Schema, merged.Columns())
	assert.Equal(t, paths, reader.Reads)

	titles, _ := merged.Column("news_title")
	offset := 0
	for i, n := range counts {
		for r := 0; r < n; r++ {
			assert.Equal(t, fmt.Sprintf("f%d title %d", i, r), titles[offset+r])
		}
		offset += n
	}
}

func TestMerger_MergeAll_NoFiles(t *testing.T) {
	merged, err := DefaultMerger().MergeAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoInputFiles)
	assert.Nil(t, merged)
}

func TestMerger_MergeAll_BadFileAbortsWithoutPartialResult(t *testing.T) {
	reader := &MockFileReader{Files: map[string][]byte{
		"/h/a.json": listing("a", 2),
		"/h/b.json": []byte(`{"articles": [`),
		"/h/c.json": listing("c", 1),
	}}

	m := NewMerger(reader, NewNewsExtractor(), NewPositionalNormalizer())
	merged, err := m.MergeAll(context.Background(), []string{"/h/a.json", "/h/b.json", "/h/c.json"})

	require.Error(t, err)
	assert.Nil(t, merged)
	assert.ErrorIs(t, err, ErrDataFormat)
	assert.Contains(t, err.Error(), "/h/b.json")
	assert.NotContains(t, reader.Reads, "/h/c.json")
}

func TestMerger_MergeAll_MissingFile(t *testing.T) {
	m := NewMerger(&MockFileReader{}, NewNewsExtractor(), NewPositionalNormalizer())
	_, err := m.MergeAll(context.Background(), []string{"/h/missing.json"})
	assert.ErrorIs(t, err, ErrDataFormat)
	assert.Contains(t, err.Error(), "/h/missing.json")
}

func TestMerger_MergeAll_ExtractorFailure(t *testing.T) {
	boom := errors.New("boom")
	reader := &MockFileReader{Files: map[string][]byte{"/h/a.json": listing("a", 1)}}
	extractor := &MockExtractor{ExtractFunc: func(*RawDocument) (*ExtractedColumns, error) {
		return nil, boom
	}}

	m := NewMerger(reader, extractor, NewPositionalNormalizer())
	_, err := m.MergeAll(context.Background(), []string{"/h/a.json"})
	assert.ErrorIs(t, err, boom)
}

func TestMerger_MergeAll_EmptyExtraction(t *testing.T) {
	reader := &MockFileReader{Files: map[string][]byte{"/h/a.json": listing("a", 1)}}
	extractor := &MockExtractor{ExtractFunc: func(*RawDocument) (*ExtractedColumns, error) {
		return NewExtractedColumns(), nil
	}}

	m := NewMerger(reader, extractor, NewPositionalNormalizer())
	_, err := m.MergeAll(context.Background(), []string{"/h/a.json"})
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestMerger_MergeAll_CancelledContext(t *testing.T) {
	reader := &MockFileReader{Files: map[string][]byte{"/h/a.json": listing("a", 1)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMerger(reader, NewNewsExtractor(), NewPositionalNormalizer())
	_, err := m.MergeAll(ctx, []string{"/h/a.json"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reader.Reads)
}

func TestMerger_MergeAll_RunsAreIndependent(t *testing.T) {
	reader := &MockFileReader{Files: map[string][]byte{"/h/a.json": listing("a", 2)}}
	m := NewMerger(reader, NewNewsExtractor(), NewPositionalNormalizer())

	first, err := m.MergeAll(context.Background(), []string{"/h/a.json"})
	require.NoError(t, err)
	second, err := m.MergeAll(context.Background(), []string{"/h/a.json"})
	require.NoError(t, err)

	assert.Equal(t, 2, first.Len())
	assert.Equal(t, 2, second.Len())
}

func TestMerger_TransformFile_JSONLines(t *testing.T) {
	data := append(append(listing("a", 2), '\n'), listing("b", 1)...)
	reader := &MockFileReader{Files: map[string][]byte{"/h/a.json": data}}

	table, err := NewMerger(reader, NewNewsExtractor(), NewPositionalNormalizer()).
		TransformFile(context.Background(), "/h/a.json")
	require.NoError(t, err)

	titles, _ := table.Column("news_title")
	assert.Equal(t, []string{"a title 0", "a title 1", "b title 0"}, titles)
}

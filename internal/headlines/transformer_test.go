package headlines

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/headlines-etl/internal/logger"
)

const testTS = "2018-04-03"

// MockCSVWriter delegates to WriteFunc and records the requested paths.
type MockCSVWriter struct {
	WriteFunc func(table *Table, path string) (bool, error)
	Paths     []string
}

func (m *MockCSVWriter) Write(table *Table, path string) (bool, error) {
	m.Paths = append(m.Paths, path)
	return m.WriteFunc(table, path)
}

func newTestTransformer() *Transformer {
	return NewTransformer(DefaultPipelines(), DefaultMerger(), NewFileCSVWriter())
}

func dirs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	news := filepath.Join(root, "headlines")
	out := filepath.Join(root, "csv")
	require.NoError(t, os.Mkdir(news, 0o755))
	require.NoError(t, os.Mkdir(out, 0o755))
	return news, out
}

func csvFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestPipelines_ModeFor(t *testing.T) {
	p := DefaultPipelines()

	mode, err := p.ModeFor("tempus_challenge_dag")
	require.NoError(t, err)
	assert.Equal(t, ModeSingleMerge, mode)

	mode, err = p.ModeFor("tempus_bonus_challenge_dag")
	require.NoError(t, err)
	assert.Equal(t, ModeKeyword, mode)

	for _, name := range []string{"", "foo_dag", "TEMPUS_CHALLENGE_DAG"} {
		_, err := p.ModeFor(name)
		assert.ErrorIs(t, err, ErrUnknownPipeline, name)
	}
}

func TestTransform_SingleMerge(t *testing.T) {
	news, out := dirs(t)
	writeFile(t, news, "a.json", listing("a", 3))
	writeFile(t, news, "b.json", listing("b", 2))

	result, err := newTestTransformer().Transform(context.Background(), Request{
		Pipeline:           DefaultSingleMergePipeline,
		ExecutionTimestamp: testTS,
		HeadlinesDir:       news,
		CSVDir:             out,
	})
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, ModeSingleMerge, result.Mode)
	assert.Equal(t, 5, result.Rows())
	assert.Equal(t, 2, result.Files())

	path := filepath.Join(out, "2018-04-03_top_headlines.csv")
	assert.Equal(t, []string{path}, result.WrittenPaths())
	assert.Equal(t, []string{"2018-04-03_top_headlines.csv"}, csvFiles(t, out))

	lines := readLines(t, path)
	require.Len(t, lines, 6)
	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, Schema, tbl.Columns())
	titles, _ := tbl.Column("news_title")
	assert.Equal(t, []string{"a title 0", "a title 1", "a title 2", "b title 0", "b title 1"}, titles)
}

func TestTransform_SingleFileMatchesMergeOfOne(t *testing.T) {
	news, out := dirs(t)
	file := writeFile(t, news, "only.json", listing("only", 4))

	result, err := newTestTransformer().Transform(context.Background(), Request{
		Pipeline:           DefaultSingleMergePipeline,
		ExecutionTimestamp: testTS,
		HeadlinesDir:       news,
		CSVDir:             out,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(result.WrittenPaths()[0])
	require.NoError(t, err)

	merged, err := DefaultMerger().MergeAll(context.Background(), []string{file})
	require.NoError(t, err)
	var want bytes.Buffer
	require.NoError(t, WriteTable(&want, merged))

	assert.Equal(t, want.String(), string(got))
}

func TestTransform_Keyword(t *testing.T) {
	news, out := dirs(t)
	writeFile(t, news, testTS+"_Cancer_headlines.json", listing("cancer", 2))
	writeFile(t, news, testTS+"_Immunotherapy_headlines.json", listing("immuno", 3))

	result, err := newTestTransformer().Transform(context.Background(), Request{
		Pipeline:           DefaultKeywordPipeline,
		ExecutionTimestamp: testTS,
		HeadlinesDir:       news,
		CSVDir:             out,
	})
	require.NoError(t, err)
	require.True(t, result.OK())
	require.Len(t, result.Outputs, 2)
	assert.Equal(t, ModeKeyword, result.Mode)

	assert.ElementsMatch(t, []string{
		"2018-04-03_Cancer_top_headlines.csv",
		"2018-04-03_Immunotherapy_top_headlines.csv",
	}, csvFiles(t, out))

	cancer, err := ReadCSV(filepath.Join(out, "2018-04-03_Cancer_top_headlines.csv"))
	require.NoError(t, err)
	titles, _ := cancer.Column("news_title")
	assert.Equal(t, []string{"cancer title 0", "cancer title 1"}, titles)

	immuno, err := ReadCSV(filepath.Join(out, "2018-04-03_Immunotherapy_top_headlines.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, immuno.Len())
}

func TestTransform_KeywordFailureIsIsolated(t *testing.T) {
	news, out := dirs(t)
	writeFile(t, news, testTS+"_Broken_headlines.json", []byte(`{"articles": [`))
	writeFile(t, news, testTS+"_Cancer_headlines.json", listing("cancer", 2))

	result, err := newTestTransformer().Transform(context.Background(), Request{
		Pipeline:           DefaultKeywordPipeline,
		ExecutionTimestamp: testTS,
		HeadlinesDir:       news,
		CSVDir:             out,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataFormat)
	assert.Contains(t, err.Error(), "keyword Broken")

	require.NotNil(t, result)
	assert.False(t, result.OK())
	assert.Equal(t, []string{"2018-04-03_Cancer_top_headlines.csv"}, csvFiles(t, out))
	assert.Equal(t, []string{filepath.Join(out, "2018-04-03_Cancer_top_headlines.csv")}, result.WrittenPaths())
}

func TestTransform_UnknownPipelineTouchesNothing(t *testing.T) {
	writer := &MockCSVWriter{WriteFunc: func(*Table, string) (bool, error) { return true, nil }}
	tr := NewTransformer(DefaultPipelines(), DefaultMerger(), writer)

	result, err := tr.Transform(context.Background(), Request{
		Pipeline:     "foo_dag",
		HeadlinesDir: filepath.Join(t.TempDir(), "does-not-exist"),
		CSVDir:       t.TempDir(),
	})
	assert.ErrorIs(t, err, ErrUnknownPipeline)
	assert.Nil(t, result)
	assert.Empty(t, writer.Paths)
}

func TestTransform_NoInputFiles(t *testing.T) {
	news, out := dirs(t)
	writeFile(t, news, "readme.txt", []byte("not json"))

	for _, pipeline := range []string{DefaultSingleMergePipeline, DefaultKeywordPipeline} {
		result, err := newTestTransformer().Transform(context.Background(), Request{
			Pipeline:           pipeline,
			ExecutionTimestamp: testTS,
			HeadlinesDir:       news,
			CSVDir:             out,
		})
		assert.ErrorIs(t, err, ErrNoInputFiles, pipeline)
		assert.Nil(t, result)
	}
	assert.Empty(t, csvFiles(t, out))
}

func TestTransform_SingleMergeBadFileWritesNothing(t *testing.T) {
	news, out := dirs(t)
	writeFile(t, news, "a.json", listing("a", 1))
	writeFile(t, news, "b.json", []byte(`{"status": "ok"}`))

	result, err := newTestTransformer().Transform(context.Background(), Request{
		Pipeline:           DefaultSingleMergePipeline,
		ExecutionTimestamp: testTS,
		HeadlinesDir:       news,
		CSVDir:             out,
	})
	assert.ErrorIs(t, err, ErrDataFormat)
	require.NotNil(t, result)
	assert.False(t, result.OK())
	assert.Empty(t, csvFiles(t, out))
}

func TestTransform_WriterReportsNotWritten(t *testing.T) {
	news, out := dirs(t)
	writeFile(t, news, "a.json", listing("a", 1))

	writer := &MockCSVWriter{WriteFunc: func(*Table, string) (bool, error) { return false, nil }}
	tr := NewTransformer(DefaultPipelines(), DefaultMerger(), writer)

	result, err := tr.Transform(context.Background(), Request{
		Pipeline:           DefaultSingleMergePipeline,
		ExecutionTimestamp: testTS,
		HeadlinesDir:       news,
		CSVDir:             out,
	})
	assert.ErrorIs(t, err, ErrIOWrite)
	assert.False(t, result.OK())
	assert.Empty(t, result.WrittenPaths())
	assert.Equal(t, []string{filepath.Join(out, "2018-04-03_top_headlines.csv")}, writer.Paths)
}

func TestTransform_MissingCSVDir(t *testing.T) {
	news, _ := dirs(t)
	writeFile(t, news, "a.json", listing("a", 1))

	_, err := newTestTransformer().Transform(context.Background(), Request{
		Pipeline:           DefaultSingleMergePipeline,
		ExecutionTimestamp: testTS,
		HeadlinesDir:       news,
		CSVDir:             filepath.Join(t.TempDir(), "nope"),
	})
	assert.ErrorIs(t, err, ErrIOWrite)
}

func TestTransform_DefaultTimestamp(t *testing.T) {
	news, out := dirs(t)
	writeFile(t, news, "a.json", listing("a", 1))

	tr := newTestTransformer()
	tr.now = func() time.Time { return time.Date(2018, 4, 3, 12, 0, 0, 0, time.UTC) }

	result, err := tr.Transform(context.Background(), Request{
		Pipeline:     DefaultSingleMergePipeline,
		HeadlinesDir: news,
		CSVDir:       out,
	})
	require.NoError(t, err)
	assert.Equal(t, "2018-04-03T12:00:00Z", result.Timestamp)
	assert.Equal(t, []string{"2018-04-03T12:00:00Z_top_headlines.csv"}, csvFiles(t, out))
}

func TestTransform_LogsSavedCSV(t *testing.T) {
	news, out := dirs(t)
	writeFile(t, news, "2018-04-03_Cancer_headlines.json", listing("c", 2))

	var logs bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&logs))
	_, err := newTestTransformer().Transform(ctx, Request{
		Pipeline:           DefaultKeywordPipeline,
		ExecutionTimestamp: testTS,
		HeadlinesDir:       news,
		CSVDir:             out,
	})
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "Headlines csv saved")
	assert.Contains(t, logs.String(), `"keyword":"Cancer"`)
	assert.Contains(t, logs.String(), `"rows":2`)
}

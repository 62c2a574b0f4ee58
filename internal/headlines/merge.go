package headlines

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/headlines-etl/internal/logger"
)

// FileReader reads a headline file from local storage.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSFileReader reads files with os.ReadFile.
type OSFileReader struct{}

// ReadFile implements FileReader.
func (OSFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Merger turns headline JSON files into tables and merges them pairwise into one
// accumulator. The accumulator belongs to a single MergeAll call.
type Merger struct {
	reader     FileReader
	extractor  Extractor
	normalizer Normalizer
}

// NewMerger creates a Merger from its collaborators.
func NewMerger(reader FileReader, extractor Extractor, normalizer Normalizer) *Merger {
	return &Merger{
		reader:     reader,
		extractor:  extractor,
		normalizer: normalizer,
	}
}

// DefaultMerger reads from disk and uses NewsExtractor with PositionalNormalizer.
func DefaultMerger() *Merger {
	return NewMerger(OSFileReader{}, NewNewsExtractor(), NewPositionalNormalizer())
}

// TransformFile reads one headline file and normalizes every document it contains into
// a single table, in document order.
func (m *Merger) TransformFile(ctx context.Context, path string) (*Table, error) {
	log := logger.FromContext(ctx)

	data, err := m.reader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDataFormat, path, err)
	}

	docs, err := ParseDocumentBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	table := NewHeadlineTable()
	for _, doc := range docs {
		cols, err := m.extractor.Extract(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t, err := m.normalizer.Normalize(cols)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := table.Append(t); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	log.Debug().
		Str("file", path).
		Int("documents", len(docs)).
		Int("rows", table.Len()).
		Msg("Transformed headline file")

	return table, nil
}

// MergeAll transforms paths in order and concatenates their rows into one table. Only
// the accumulator and the current file's table are alive at any point. On any failure
// the whole merge is abandoned and no table is returned.
func (m *Merger) MergeAll(ctx context.Context, paths []string) (*Table, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputFiles
	}

	log := logger.FromContext(ctx)
	merged := NewHeadlineTable()

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, err := m.TransformFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("merging file %d of %d: %w", i+1, len(paths), err)
		}

		if err := merged.Append(current); err != nil {
			return nil, fmt.Errorf("merging %s: %w", path, err)
		}

		log.Info().
			Str("file", path).
			Int("file_rows", current.Len()).
			Int("merged_rows", merged.Len()).
			Msg("Merged headline file")
	}

	return merged, nil
}

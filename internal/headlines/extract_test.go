package headlines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsExtractor_Articles(t *testing.T) {
	doc := parseOne(t, string(listing("bbc", 3)))

	cols, err := NewNewsExtractor().Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"source_id", "source_name", "author", "title", "description",
		"url", "url_to_image", "published_at", "content",
	}, cols.Fields())
	assert.Equal(t, 3, cols.Rows())
	assert.Equal(t, []string{"bbc-src-0", "bbc-src-1", "bbc-src-2"}, cols.Values("source_id"))
	assert.Equal(t, "https://example.com/bbc/1.jpg", cols.Values("url_to_image")[1])
}

func TestNewsExtractor_ArticleAliasesAndNulls(t *testing.T) {
	doc := parseOne(t, `{
		"articles": [
			{"source": {"id": null, "name": "Reuters"}, "author": null, "title": "T",
			 "image_url": "https://img", "published_at": "2018-04-03", "url": "https://u"}
		]
	}`)

	cols, err := NewNewsExtractor().Extract(doc)
	require.NoError(t, err)
	require.Equal(t, 1, cols.Rows())

	assert.Equal(t, "", cols.Values("source_id")[0])
	assert.Equal(t, "Reuters", cols.Values("source_name")[0])
	assert.Equal(t, "", cols.Values("author")[0])
	assert.Equal(t, "https://img", cols.Values("url_to_image")[0])
	assert.Equal(t, "2018-04-03", cols.Values("published_at")[0])
	assert.Equal(t, "", cols.Values("content")[0])
}

func TestNewsExtractor_EmptyListing(t *testing.T) {
	doc := parseOne(t, `{"status": "ok", "totalResults": 0, "articles": []}`)

	cols, err := NewNewsExtractor().Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, 9, cols.Len())
	assert.Equal(t, 0, cols.Rows())
}

func TestNewsExtractor_ColumnOriented(t *testing.T) {
	doc := parseOne(t, `{"id": ["a", "b"], "name": ["A", "B"], "writer": ["x", null]}`)

	cols, err := NewNewsExtractor().Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "writer"}, cols.Fields())
	assert.Equal(t, []string{"x", ""}, cols.Values("writer"))
}

func TestNewsExtractor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{name: "empty object", input: `{}`, wantMsg: "document is empty"},
		{name: "articles not an array", input: `{"articles": {"a": 1}}`, wantMsg: "not an array"},
		{name: "article not an object", input: `{"articles": ["oops"]}`, wantMsg: "want object"},
		{name: "misaligned columns", input: `{"a": [1, 2], "b": [1]}`, wantMsg: "misaligned"},
		{name: "missing sub-structure", input: `{"status": "ok", "totalResults": 3}`, wantMsg: "want array"},
		{name: "api error envelope", input: `{"status": "error", "code": "apiKeyInvalid", "message": "bad key"}`, wantMsg: "apiKeyInvalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseOne(t, tt.input)

			cols, err := NewNewsExtractor().Extract(doc)
			require.Error(t, err)
			assert.Nil(t, cols)
			assert.ErrorIs(t, err, ErrDataFormat)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNewsExtractor_NilDocument(t *testing.T) {
	_, err := NewNewsExtractor().Extract(nil)
	assert.ErrorIs(t, err, ErrDataFormat)
}

func TestExtractedColumns_AddReplacesInPlace(t *testing.T) {
	cols := NewExtractedColumns()
	cols.Add("a", []string{"1"})
	cols.Add("b", []string{"2", "3"})
	cols.Add("a", []string{"4", "5"})

	assert.Equal(t, []string{"a", "b"}, cols.Fields())
	assert.Equal(t, []string{"4", "5"}, cols.Values("a"))
	assert.Equal(t, 2, cols.Rows())
}

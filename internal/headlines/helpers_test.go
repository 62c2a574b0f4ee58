package headlines

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// listing builds a News API top-headlines payload with n articles tagged by prefix.
func listing(prefix string, n int) []byte {
	articles := make([]map[string]any, n)
	for i := range articles {
		articles[i] = map[string]any{
			"source":      map[string]any{"id": fmt.Sprintf("%s-src-%d", prefix, i), "name": prefix + " News"},
			"author":      fmt.Sprintf("%s author %d", prefix, i),
			"title":       fmt.Sprintf("%s title %d", prefix, i),
			"description": fmt.Sprintf("%s description %d", prefix, i),
			"url":         fmt.Sprintf("https://example.com/%s/%d", prefix, i),
			"urlToImage":  fmt.Sprintf("https://example.com/%s/%d.jpg", prefix, i),
			"publishedAt": "2018-04-03T10:00:00Z",
			"content":     fmt.Sprintf("%s content %d", prefix, i),
		}
	}
	data, err := json.Marshal(map[string]any{
		"status":       "ok",
		"totalResults": n,
		"articles":     articles,
	})
	if err != nil {
		panic(err)
	}
	return data
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	lines := []string{fmt.Sprint(tbl.Columns())}
	for i := 0; i < tbl.Len(); i++ {
		lines = append(lines, fmt.Sprint(tbl.Row(i)))
	}
	return lines
}

func parseOne(t *testing.T, data string) *RawDocument {
	t.Helper()
	docs, err := ParseDocumentBytes([]byte(data))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

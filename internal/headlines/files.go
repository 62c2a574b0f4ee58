package headlines

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	jsonExt        = ".json"
	headlineSuffix = "_top_headlines.csv"
)

// OutputFilename is the CSV name of a single-merge run.
func OutputFilename(timestamp string) string {
	return timestamp + headlineSuffix
}

// KeywordOutputFilename is the CSV name of one keyword in a per-keyword run.
func KeywordOutputFilename(timestamp, keyword string) string {
	return timestamp + "_" + keyword + headlineSuffix
}

// KeywordFromFilename returns the second underscore-delimited token of a headline file
// name, e.g. "2018-04-03_Cancer_headlines.json" -> "Cancer".
func KeywordFromFilename(name string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(name), jsonExt)
	parts := strings.Split(base, "_")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("%w: cannot derive keyword from file name %q", ErrDataFormat, filepath.Base(name))
	}
	return parts[1], nil
}

// ListJSONFiles returns the *.json regular files in dir, sorted by name.
// Symlinks are followed; links to directories and dangling links are skipped.
func ListJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing headlines directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if e.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		} else if !e.Type().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

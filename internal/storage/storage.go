// Package storage manages the local datastore each pipeline reads from and writes to.
//
// Every pipeline owns a directory tree under a shared root:
//
//	<root>/<pipeline>/news       raw news source listings
//	<root>/<pipeline>/headlines  headline JSON files consumed by the transformer
//	<root>/<pipeline>/csv        CSV files produced by the transformer
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store names.
const (
	NewsStore      = "news"
	HeadlinesStore = "headlines"
	CSVStore       = "csv"
)

// DefaultRootName is the directory under $HOME used when no root is configured.
const DefaultRootName = "tempdata"

const (
	defaultJSONName   = "sample"
	createDateLayout  = "20060102-150405"
	storePermissions  = 0o755
	objectPermissions = 0o644
)

var (
	// ErrStoreMissing is returned when a target directory does not exist.
	ErrStoreMissing = errors.New("datastore directory does not exist")
	// ErrInvalidJSON is returned when data handed to WriteJSON does not parse.
	ErrInvalidJSON = errors.New("data is not valid json")
)

// Stores lists the per-pipeline stores in creation order.
var Stores = []string{NewsStore, HeadlinesStore, CSVStore}

// Layout resolves datastore paths below Root.
type Layout struct {
	Root string
}

// NewLayout creates a Layout. An empty root falls back to DefaultRoot.
func NewLayout(root string) (Layout, error) {
	if root == "" {
		def, err := DefaultRoot()
		if err != nil {
			return Layout{}, err
		}
		root = def
	}
	return Layout{Root: root}, nil
}

// DefaultRoot returns $HOME/tempdata.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("DefaultRoot: resolving home directory: %w", err)
	}
	return filepath.Join(home, DefaultRootName), nil
}

// Dir returns the path of a store for a pipeline.
func (l Layout) Dir(pipeline, store string) string {
	return filepath.Join(l.Root, pipeline, store)
}

// NewsDir returns the raw news store of a pipeline.
func (l Layout) NewsDir(pipeline string) string {
	return l.Dir(pipeline, NewsStore)
}

// HeadlinesDir returns the headlines store of a pipeline.
func (l Layout) HeadlinesDir(pipeline string) string {
	return l.Dir(pipeline, HeadlinesStore)
}

// CSVDir returns the CSV store of a pipeline.
func (l Layout) CSVDir(pipeline string) string {
	return l.Dir(pipeline, CSVStore)
}

// CreateStores creates every store of a pipeline. Existing directories are left alone.
// It returns the directories in Stores order.
func (l Layout) CreateStores(pipeline string) ([]string, error) {
	if strings.TrimSpace(pipeline) == "" {
		return nil, errors.New("CreateStores: pipeline is required")
	}

	dirs := make([]string, 0, len(Stores))
	for _, store := range Stores {
		dir := l.Dir(pipeline, store)
		if err := os.MkdirAll(dir, storePermissions); err != nil {
			return nil, fmt.Errorf("CreateStores: creating %s: %w", dir, err)
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// WriteJSON validates data as JSON and writes it to <dir>/<createDate>_<name>.json.
// An empty createDate uses the current local time, an empty name uses "sample".
// The directory must already exist.
func WriteJSON(dir, createDate, name string, data []byte) (string, error) {
	return writeJSON(dir, createDate, name, data, time.Now)
}

func writeJSON(dir, createDate, name string, data []byte, now func() time.Time) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("WriteJSON: %w: %s", ErrStoreMissing, dir)
	}

	if !json.Valid(data) {
		return "", fmt.Errorf("WriteJSON: %w", ErrInvalidJSON)
	}

	if createDate == "" {
		createDate = now().Format(createDateLayout)
	}
	if name == "" {
		name = defaultJSONName
	}

	path := filepath.Join(dir, JSONFilename(createDate, name))
	if err := os.WriteFile(path, data, objectPermissions); err != nil {
		return "", fmt.Errorf("WriteJSON: writing %s: %w", path, err)
	}
	return path, nil
}

// JSONFilename is the name WriteJSON gives a payload.
func JSONFilename(createDate, name string) string {
	return createDate + "_" + name + ".json"
}

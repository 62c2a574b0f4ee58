package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	uriScheme     = "gs://"
	uploadTimeout = 2 * time.Minute
)

// ErrInvalidURI is returned for storage URIs that are not gs://bucket/object.
var ErrInvalidURI = errors.New("invalid GCS URI")

// UploadFileWithClient uploads a local file to a GCS bucket under the given object name
// using the provided storage client.
func UploadFileWithClient(ctx context.Context, client *storage.Client, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = ContentType(filePath)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadFile: copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}

	return nil
}

// FetchFromGCSWithClient downloads the object bytes at gcsURI using the provided client.
func FetchFromGCSWithClient(ctx context.Context, client *storage.Client, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}

	return data, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object path.
func ParseGCSURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, uriScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w (no object path): %s", ErrInvalidURI, uri)
	}

	return parts[0], parts[1], nil
}

// GCSURI renders the URI of an object.
func GCSURI(bucketName, objectName string) string {
	return uriScheme + bucketName + "/" + objectName
}

// ObjectName returns <prefix>/<pipeline>/<base name of filePath>. Empty segments are dropped.
func ObjectName(prefix, pipeline, filePath string) string {
	var segments []string
	for _, s := range []string{strings.Trim(prefix, "/"), pipeline, filepath.Base(filePath)} {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return path.Join(segments...)
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.csv" → "file.csv"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, uriScheme)

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}

// ContentType picks the object content type from the file extension.
func ContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

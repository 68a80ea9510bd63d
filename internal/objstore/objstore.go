// Package objstore fetches and archives statement files in Google
// Cloud Storage.
package objstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Service provides an interface for cloud storage operations. The
// interface enables mocking in tests.
type Service interface {
	// Fetch downloads file bytes from the given gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)

	// Archive uploads a local file to a bucket under the given object name.
	Archive(ctx context.Context, bucketName, objectName, filePath string) error
}

// GCS is the concrete Service backed by Google Cloud Storage. It
// assumes Application Default Credentials are configured.
type GCS struct{}

// NewGCS creates a new GCS service.
func NewGCS() *GCS {
	return &GCS{}
}

// Fetch implements Service.
func (s *GCS) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucketName, objectPath, err := splitURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: creating storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: opening object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object: %w", err)
	}
	return data, nil
}

// Archive implements Service.
func (s *GCS) Archive(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("Archive: opening file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Archive: creating storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("Archive: copying file to writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Archive: finalizing upload: %w", err)
	}
	return nil
}

// Filename extracts the file name from a gs:// URI, or returns the
// input unchanged when it is not a URI.
func Filename(uri string) string {
	if _, objectPath, err := splitURI(uri); err == nil {
		return path.Base(objectPath)
	}
	return uri
}

func splitURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid storage URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid storage URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

var _ Service = (*GCS)(nil)

// Package storage keeps uploaded PDFs and generated artifacts. Artifact IDs
// handed to the document lifecycle are storage keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mindspero/mindspero/internal/config"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for keys that escape the store root
var ErrInvalidKey = errors.New("storage: invalid key")

// Store is a flat key/value blob store
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Backend() string
}

// Content types
const (
	ContentTypePDF      = "application/pdf"
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeMP3      = "audio/mpeg"
)

// DocumentKey is where the uploaded PDF for a document lives
func DocumentKey(documentID string) string {
	return "documents/" + documentID + ".pdf"
}

// SummaryKey is where a document's summary artifact lives
func SummaryKey(documentID string) string {
	return "summaries/" + documentID + ".md"
}

// AudioKey is where a document's narrated summary lives
func AudioKey(documentID string) string {
	return "audio/" + documentID + ".mp3"
}

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocal(cfg.LocalDir)
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.Prefix, cfg.GCSCredentials)
	case "s3":
		return NewS3(ctx, S3Options{
			Bucket:       cfg.Bucket,
			Prefix:       cfg.Prefix,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	}
	return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
}

// cleanKey normalizes key and rejects anything that would leave the root
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func prefixed(prefix, key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return k, nil
	}
	return strings.TrimSuffix(prefix, "/") + "/" + k, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS connects with the service account JSON, or application default credentials when empty
func NewGCS(ctx context.Context, bucket, prefix, credentialsJSON string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) Backend() string { return "gcs" }

func (g *GCS) object(key string) (*storage.ObjectHandle, error) {
	name, err := prefixed(g.prefix, key)
	if err != nil {
		return nil, err
	}
	return g.client.Bucket(g.bucket).Object(name), nil
}

func (g *GCS) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	obj, err := g.object(key)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := g.object(key)
	if err != nil {
		return nil, err
	}
	rc, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", key, err)
	}
	return rc, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	obj, err := g.object(key)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client
func (g *GCS) Close() error {
	return g.client.Close()
}

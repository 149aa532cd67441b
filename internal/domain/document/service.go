package document

import (
	"context"
	"io"
)

// Upload carries a new PDF into the store
type Upload struct {
	OwnerID     string
	DisplayName string
	SizeBytes   int64
	Content     io.Reader
}

// Service defines the interface for the document store
type Service interface {
	Create(ctx context.Context, upload Upload) (*Document, error)
	Get(ctx context.Context, id string) (*Document, error)
	Advance(ctx context.Context, id string, target Stage, artifactID string) (*Document, error)
	MarkFailed(ctx context.Context, id string, reason string) (*Document, error)
	Retry(ctx context.Context, id string) (*Document, error)
	Delete(ctx context.Context, id string, requesterID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*Document, error)
}

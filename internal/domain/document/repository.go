package document

import (
	"context"
	"time"
)

// Repository defines the interface for document data access
type Repository interface {
	// Create creates a new document
	Create(ctx context.Context, doc *Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id string) (*Document, error)

	// UpdateStage persists doc only if the stored stage still equals expected.
	// A stale writer gets ErrInvalidTransition.
	UpdateStage(ctx context.Context, doc *Document, expected Stage) error

	// Claim takes a worker lease on a document still in stage. It returns false
	// when the stage moved or another lease newer than staleBefore is held.
	// Stage updates release the lease.
	Claim(ctx context.Context, id string, stage Stage, now, staleBefore time.Time) (bool, error)

	// Delete permanently removes a document
	Delete(ctx context.Context, id string) error

	// ListByOwner retrieves an owner's documents, newest upload first
	ListByOwner(ctx context.Context, ownerID string) ([]*Document, error)

	// ListByStage retrieves up to limit documents in stage last updated before cutoff
	ListByStage(ctx context.Context, stage Stage, updatedBefore time.Time, limit int) ([]*Document, error)

	// CountByOwner returns the number of documents per owner
	CountByOwner(ctx context.Context) (map[string]int, error)

	// CountByStage returns the number of documents per stage
	CountByStage(ctx context.Context) (map[Stage]int, error)
}

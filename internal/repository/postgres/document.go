package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/pkg/errors"
)

// DocumentRepository implements document.Repository
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB) document.Repository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, owner_id, display_name, size_bytes, storage_key, stage,
	summary_artifact_id, audio_artifact_id, failure_reason, uploaded_at, updated_at`

func scanDocument(row rowScanner) (*document.Document, error) {
	var d document.Document
	var stage string
	var summaryID, audioID, failure sql.NullString
	var uploadedAt, updatedAt int64

	err := row.Scan(&d.ID, &d.OwnerID, &d.DisplayName, &d.SizeBytes, &d.StorageKey, &stage,
		&summaryID, &audioID, &failure, &uploadedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.Stage = document.Stage(stage)
	d.SummaryArtifactID = summaryID.String
	d.AudioArtifactID = audioID.String
	d.FailureReason = failure.String
	d.UploadedAt = fromUnix(uploadedAt)
	d.UpdatedAt = fromUnix(updatedAt)
	return &d, nil
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, d *document.Document) error {
	stamp(&d.UploadedAt, time.Now())
	d.UpdatedAt = d.UploadedAt

	query := `
		INSERT INTO documents (id, owner_id, display_name, size_bytes, storage_key, stage,
			summary_artifact_id, audio_artifact_id, failure_reason, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.OwnerID, d.DisplayName, d.SizeBytes, d.StorageKey, string(d.Stage),
		nullString(d.SummaryArtifactID), nullString(d.AudioArtifactID), nullString(d.FailureReason),
		d.UploadedAt.Unix(), d.UpdatedAt.Unix(),
	)
	if err != nil {
		return errors.DatabaseError("Failed to create document", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	d, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Document")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get document", err)
	}
	return d, nil
}

// UpdateStage writes the lifecycle fields of d only if the stored stage is
// still expected. Losing the race yields document.ErrInvalidTransition.
// d.UpdatedAt is written as given; a zero value means now.
func (r *DocumentRepository) UpdateStage(ctx context.Context, d *document.Document, expected document.Stage) error {
	stamp(&d.UpdatedAt, time.Now())

	query := `
		UPDATE documents
		SET stage = $1, summary_artifact_id = $2, audio_artifact_id = $3, failure_reason = $4, updated_at = $5, claimed_at = NULL
		WHERE id = $6 AND stage = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		string(d.Stage), nullString(d.SummaryArtifactID), nullString(d.AudioArtifactID), nullString(d.FailureReason),
		d.UpdatedAt.Unix(), d.ID, string(expected),
	)
	if err != nil {
		return errors.DatabaseError("Failed to update document", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		current, err := r.GetByID(ctx, d.ID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: document moved to %s concurrently", document.ErrInvalidTransition, current.Stage)
	}
	return nil
}

// Claim sets claimed_at when the document is in stage and unclaimed or
// holding a lease older than staleBefore
func (r *DocumentRepository) Claim(ctx context.Context, id string, stage document.Stage, now, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE documents
		SET claimed_at = $1
		WHERE id = $2 AND stage = $3 AND (claimed_at IS NULL OR claimed_at < $4)
	`

	result, err := r.db.ExecContext(ctx, query, now.Unix(), id, string(stage), staleBefore.Unix())
	if err != nil {
		return false, errors.DatabaseError("Failed to claim document", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return rows == 1, nil
}

// Delete permanently removes a document
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return errors.DatabaseError("Failed to delete document", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Document")
	}
	return nil
}

// ListByOwner retrieves an owner's documents, newest upload first
func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1 ORDER BY uploaded_at DESC, id DESC`
	return r.query(ctx, query, ownerID)
}

// ListByStage retrieves documents waiting in stage, oldest update first
func (r *DocumentRepository) ListByStage(ctx context.Context, stage document.Stage, updatedBefore time.Time, limit int) ([]*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE stage = $1 AND updated_at <= $2
		ORDER BY updated_at, id
		LIMIT $3`
	return r.query(ctx, query, string(stage), updatedBefore.Unix(), limit)
}

// CountByOwner returns the number of documents per owner
func (r *DocumentRepository) CountByOwner(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT owner_id, COUNT(*) FROM documents GROUP BY owner_id`)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count documents", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var owner string
		var n int
		if err := rows.Scan(&owner, &n); err != nil {
			return nil, errors.DatabaseError("Failed to scan document count", err)
		}
		counts[owner] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to count documents", err)
	}
	return counts, nil
}

// CountByStage returns the number of documents per stage
func (r *DocumentRepository) CountByStage(ctx context.Context) (map[document.Stage]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM documents GROUP BY stage`)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count documents", err)
	}
	defer rows.Close()

	counts := make(map[document.Stage]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, errors.DatabaseError("Failed to scan document count", err)
		}
		counts[document.Stage(stage)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to count documents", err)
	}
	return counts, nil
}

func (r *DocumentRepository) query(ctx context.Context, query string, args ...interface{}) ([]*document.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list documents", err)
	}
	defer rows.Close()

	docs := []*document.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan document", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list documents", err)
	}
	return docs, nil
}

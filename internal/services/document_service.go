package services

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/metrics"
	"github.com/mindspero/mindspero/internal/storage"
)

// DocumentService implements document.Service
type DocumentService struct {
	repo   document.Repository
	store  storage.Store
	clock  clock.Clock
	logger *logger.Logger

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewDocumentService creates a new document service
func NewDocumentService(repo document.Repository, store storage.Store, clk clock.Clock, log *logger.Logger) *DocumentService {
	return &DocumentService{
		repo:    repo,
		store:   store,
		clock:   clk,
		logger:  log,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *DocumentService) newID(now time.Time) (string, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create stores the PDF bytes and records the document at stage uploaded
func (s *DocumentService) Create(ctx context.Context, upload document.Upload) (*document.Document, error) {
	name := strings.TrimSpace(upload.DisplayName)
	if upload.OwnerID == "" || name == "" {
		return nil, errors.BadRequest("Owner and display name are required")
	}
	if upload.SizeBytes <= 0 || upload.Content == nil {
		return nil, errors.BadRequest("Document is empty")
	}

	now := s.clock.Now()
	id, err := s.newID(now)
	if err != nil {
		return nil, errors.Internal("Failed to allocate document ID", err)
	}

	key := storage.DocumentKey(id)
	if err := s.store.Put(ctx, key, upload.Content, storage.ContentTypePDF); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store uploaded document")
		return nil, errors.StorageError("Failed to store document", err)
	}

	doc := &document.Document{
		ID:          id,
		OwnerID:     upload.OwnerID,
		DisplayName: name,
		SizeBytes:   upload.SizeBytes,
		StorageKey:  key,
		Stage:       document.StageUploaded,
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		s.deleteBlobs(ctx, key)
		return nil, err
	}

	metrics.RecordStageTransition(string(document.StageUploaded), nil)
	s.logger.WithFields(map[string]interface{}{
		"document_id": doc.ID,
		"owner_id":    doc.OwnerID,
		"size_bytes":  doc.SizeBytes,
	}).Info("Document uploaded")

	return doc, nil
}

// Get retrieves a document by ID
func (s *DocumentService) Get(ctx context.Context, id string) (*document.Document, error) {
	return s.repo.GetByID(ctx, id)
}

// Advance moves a document forward to target
func (s *DocumentService) Advance(ctx context.Context, id string, target document.Stage, artifactID string) (*document.Document, error) {
	if target == document.StageFailed {
		return s.MarkFailed(ctx, id, document.ReasonUnspecified)
	}
	return s.transition(ctx, id, string(target), func(doc *document.Document) error {
		return doc.Advance(target, artifactID)
	})
}

// MarkFailed moves a non-terminal document to failed. Repeating the same
// reason is a no-op.
func (s *DocumentService) MarkFailed(ctx context.Context, id string, reason string) (*document.Document, error) {
	return s.transition(ctx, id, string(document.StageFailed), func(doc *document.Document) error {
		return doc.MarkFailed(reason)
	})
}

// Retry puts a failed document back to uploaded
func (s *DocumentService) Retry(ctx context.Context, id string) (*document.Document, error) {
	return s.transition(ctx, id, "retry", func(doc *document.Document) error {
		return doc.Retry()
	})
}

func (s *DocumentService) transition(ctx context.Context, id, label string, apply func(*document.Document) error) (*document.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := *doc
	if err := apply(doc); err != nil {
		metrics.RecordStageTransition(label, err)
		return nil, err
	}
	if doc.Stage == before.Stage && doc.FailureReason == before.FailureReason {
		return doc, nil
	}

	doc.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateStage(ctx, doc, before.Stage); err != nil {
		metrics.RecordStageTransition(label, err)
		return nil, err
	}

	// artifacts dropped by the transition are no longer reachable
	var orphans []string
	if before.SummaryArtifactID != "" && doc.SummaryArtifactID == "" {
		orphans = append(orphans, before.SummaryArtifactID)
	}
	if before.AudioArtifactID != "" && doc.AudioArtifactID == "" {
		orphans = append(orphans, before.AudioArtifactID)
	}
	s.deleteBlobs(ctx, orphans...)

	metrics.RecordStageTransition(string(doc.Stage), nil)
	fields := map[string]interface{}{
		"document_id": doc.ID,
		"from":        before.Stage,
		"to":          doc.Stage,
	}
	if doc.FailureReason != "" {
		fields["reason"] = doc.FailureReason
	}
	s.logger.WithFields(fields).Info("Document stage advanced")

	return doc, nil
}

// Delete removes a document owned by requesterID along with its stored blobs
func (s *DocumentService) Delete(ctx context.Context, id string, requesterID string) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != requesterID {
		return document.ErrNotOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.deleteBlobs(ctx, doc.StorageKey, doc.SummaryArtifactID, doc.AudioArtifactID)

	s.logger.WithFields(map[string]interface{}{
		"document_id": id,
		"owner_id":    doc.OwnerID,
	}).Info("Document deleted")

	return nil
}

// ListByOwner returns a snapshot of an owner's documents, newest first
func (s *DocumentService) ListByOwner(ctx context.Context, ownerID string) ([]*document.Document, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// deleteBlobs removes stored objects; failures are logged, never returned
func (s *DocumentService) deleteBlobs(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.WithFields(map[string]interface{}{"key": key}).WithError(err).Warn("Failed to delete stored artifact")
		}
	}
}

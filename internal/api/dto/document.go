package dto

import (
	"time"

	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/entitlement"
)

// DocumentDTO represents a document in API responses. Artifact keys stay
// server side; clients fetch artifacts through the gated endpoints.
type DocumentDTO struct {
	ID            string         `json:"id"`
	DisplayName   string         `json:"display_name"`
	SizeBytes     int64          `json:"size_bytes"`
	Stage         document.Stage `json:"stage"`
	HasSummary    bool           `json:"has_summary"`
	HasAudio      bool           `json:"has_audio"`
	FailureReason string         `json:"failure_reason,omitempty"`
	UploadedAt    time.Time      `json:"uploaded_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// FromDocument converts a domain document
func FromDocument(d *document.Document) DocumentDTO {
	return DocumentDTO{
		ID:            d.ID,
		DisplayName:   d.DisplayName,
		SizeBytes:     d.SizeBytes,
		Stage:         d.Stage,
		HasSummary:    d.Stage.HasSummary(),
		HasAudio:      d.Stage == document.StageAudioReady,
		FailureReason: d.FailureReason,
		UploadedAt:    d.UploadedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// FromDocuments converts a list of documents
func FromDocuments(docs []*document.Document) []DocumentDTO {
	out := make([]DocumentDTO, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(d))
	}
	return out
}

// SummaryResponse carries a document summary
type SummaryResponse struct {
	DocumentID string `json:"document_id"`
	Summary    string `json:"summary"`
}

// EntitlementsResponse lists every gate decision for one document
type EntitlementsResponse struct {
	DocumentID string                                            `json:"document_id"`
	Decisions  map[entitlement.Capability]entitlement.Decision `json:"decisions"`
}

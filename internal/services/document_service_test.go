package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/storage"
	"github.com/mindspero/mindspero/internal/testutil"
)

func newDocumentFixture() (*DocumentService, *testutil.MockDocumentRepository, *testutil.MockStore, *clock.Fixed) {
	repo := testutil.NewMockDocumentRepository()
	store := testutil.NewMockStore()
	clk := clock.NewFixed(epoch)
	return NewDocumentService(repo, store, clk, testutil.NewTestLogger()), repo, store, clk
}

func uploadPDF(t *testing.T, svc *DocumentService, owner, name string) *document.Document {
	t.Helper()
	content := []byte("%PDF-1.4 lecture notes")
	doc, err := svc.Create(context.Background(), document.Upload{
		OwnerID:     owner,
		DisplayName: name,
		SizeBytes:   int64(len(content)),
		Content:     bytes.NewReader(content),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return doc
}

func TestDocumentService_Create(t *testing.T) {
	svc, _, store, _ := newDocumentFixture()

	doc := uploadPDF(t, svc, "user-1", " biology.pdf ")
	if doc.Stage != document.StageUploaded {
		t.Errorf("Stage = %s, want uploaded", doc.Stage)
	}
	if doc.DisplayName != "biology.pdf" {
		t.Errorf("DisplayName = %q, want trimmed", doc.DisplayName)
	}
	if len(doc.ID) != 26 {
		t.Errorf("ID = %q, want a ULID", doc.ID)
	}
	if !store.Has(storage.DocumentKey(doc.ID)) {
		t.Error("PDF bytes were not stored")
	}
	if !doc.UploadedAt.Equal(epoch) {
		t.Errorf("UploadedAt = %v, want %v", doc.UploadedAt, epoch)
	}

	tests := []struct {
		name   string
		upload document.Upload
	}{
		{"missing owner", document.Upload{DisplayName: "a.pdf", SizeBytes: 1, Content: strings.NewReader("x")}},
		{"missing name", document.Upload{OwnerID: "user-1", SizeBytes: 1, Content: strings.NewReader("x")}},
		{"empty file", document.Upload{OwnerID: "user-1", DisplayName: "a.pdf", Content: strings.NewReader("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.upload); err == nil {
				t.Error("Create() expected an error")
			}
		})
	}
}

func TestDocumentService_CreateStorageFailure(t *testing.T) {
	svc, repo, store, _ := newDocumentFixture()
	store.PutError = errors.New("bucket unavailable")

	_, err := svc.Create(context.Background(), document.Upload{
		OwnerID: "user-1", DisplayName: "a.pdf", SizeBytes: 1, Content: strings.NewReader("x"),
	})
	if err == nil {
		t.Fatal("Create() expected a storage error")
	}
	if len(repo.Docs) != 0 {
		t.Error("document row written without stored bytes")
	}
}

func TestDocumentService_Lifecycle(t *testing.T) {
	svc, _, _, clk := newDocumentFixture()
	ctx := context.Background()
	doc := uploadPDF(t, svc, "user-1", "notes.pdf")

	steps := []struct {
		name     string
		target   document.Stage
		artifact string
		wantErr  error
	}{
		{"audio before summary", document.StageAudioPending, "", document.ErrInvalidTransition},
		{"summarizing", document.StageSummarizing, "", nil},
		{"summarized without artifact", document.StageSummarized, "", document.ErrArtifactRequired},
		{"summarized", document.StageSummarized, storage.SummaryKey(doc.ID), nil},
		{"regress to uploaded", document.StageUploaded, "", document.ErrInvalidTransition},
		{"audio pending", document.StageAudioPending, "", nil},
		{"audio ready", document.StageAudioReady, storage.AudioKey(doc.ID), nil},
	}

	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			clk.Advance(time.Minute)
			got, err := svc.Advance(ctx, doc.ID, st.target, st.artifact)
			if st.wantErr != nil {
				if !errors.Is(err, st.wantErr) {
					t.Errorf("Advance() error = %v, want %v", err, st.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Advance() error = %v", err)
			}
			if got.Stage != st.target {
				t.Errorf("Stage = %s, want %s", got.Stage, st.target)
			}
			if !got.UpdatedAt.Equal(clk.Now()) {
				t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, clk.Now())
			}
		})
	}

	if _, err := svc.MarkFailed(ctx, doc.ID, "timeout"); !errors.Is(err, document.ErrInvalidTransition) {
		t.Errorf("MarkFailed() on audio_ready error = %v, want ErrInvalidTransition", err)
	}
}

func TestDocumentService_MarkFailedAndRetry(t *testing.T) {
	svc, repo, store, clk := newDocumentFixture()
	ctx := context.Background()
	doc := uploadPDF(t, svc, "user-1", "notes.pdf")

	summaryKey := storage.SummaryKey(doc.ID)
	_ = store.Put(ctx, summaryKey, strings.NewReader("# summary"), storage.ContentTypeMarkdown)
	if _, err := svc.Advance(ctx, doc.ID, document.StageSummarizing, ""); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if _, err := svc.Advance(ctx, doc.ID, document.StageSummarized, summaryKey); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	failed, err := svc.MarkFailed(ctx, doc.ID, "narrator unavailable")
	if err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if failed.SummaryArtifactID != "" || failed.FailureReason != "narrator unavailable" {
		t.Errorf("MarkFailed() = %+v", failed)
	}
	if store.Has(summaryKey) {
		t.Error("orphaned summary artifact was not deleted")
	}

	stamp := repo.Docs[doc.ID].UpdatedAt
	clk.Advance(time.Hour)
	if _, err := svc.MarkFailed(ctx, doc.ID, "narrator unavailable"); err != nil {
		t.Errorf("repeated MarkFailed() error = %v", err)
	}
	if !repo.Docs[doc.ID].UpdatedAt.Equal(stamp) {
		t.Error("idempotent MarkFailed() rewrote the row")
	}
	if _, err := svc.MarkFailed(ctx, doc.ID, "other"); !errors.Is(err, document.ErrAlreadyFailed) {
		t.Errorf("MarkFailed() with new reason error = %v, want ErrAlreadyFailed", err)
	}

	retried, err := svc.Retry(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if retried.Stage != document.StageUploaded || retried.FailureReason != "" {
		t.Errorf("Retry() = %+v", retried)
	}
	if _, err := svc.Retry(ctx, doc.ID); !errors.Is(err, document.ErrInvalidTransition) {
		t.Errorf("Retry() from uploaded error = %v, want ErrInvalidTransition", err)
	}
}

func TestDocumentService_AdvanceToFailed(t *testing.T) {
	svc, _, _, _ := newDocumentFixture()
	doc := uploadPDF(t, svc, "user-1", "notes.pdf")

	got, err := svc.Advance(context.Background(), doc.ID, document.StageFailed, "ignored")
	if err != nil {
		t.Fatalf("Advance(failed) error = %v", err)
	}
	if got.FailureReason != document.ReasonUnspecified {
		t.Errorf("FailureReason = %q, want %q", got.FailureReason, document.ReasonUnspecified)
	}
}

func TestDocumentService_Delete(t *testing.T) {
	svc, repo, store, _ := newDocumentFixture()
	ctx := context.Background()
	doc := uploadPDF(t, svc, "user-1", "notes.pdf")

	if err := svc.Delete(ctx, doc.ID, "user-2"); !errors.Is(err, document.ErrNotOwner) {
		t.Errorf("Delete() by stranger error = %v, want ErrNotOwner", err)
	}

	store.DeleteError = errors.New("transient")
	if err := svc.Delete(ctx, doc.ID, "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := repo.Docs[doc.ID]; ok {
		t.Error("document row survived Delete()")
	}
	if _, err := svc.Get(ctx, doc.ID); err == nil {
		t.Error("Get() after Delete() should fail")
	}
}

func TestDocumentService_ListByOwner(t *testing.T) {
	svc, _, _, clk := newDocumentFixture()
	ctx := context.Background()

	first := uploadPDF(t, svc, "user-1", "first.pdf")
	clk.Advance(time.Hour)
	second := uploadPDF(t, svc, "user-1", "second.pdf")
	uploadPDF(t, svc, "user-2", "other.pdf")

	docs, err := svc.ListByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(docs) != 2 || docs[0].ID != second.ID || docs[1].ID != first.ID {
		t.Errorf("ListByOwner() order wrong")
	}

	// the returned slice is a snapshot
	docs[0].Stage = document.StageFailed
	again, _ := svc.ListByOwner(ctx, "user-1")
	if again[0].Stage != document.StageUploaded {
		t.Error("mutating a listed document changed the store")
	}
}

package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/services"
	"github.com/mindspero/mindspero/internal/storage"
	"github.com/mindspero/mindspero/internal/testutil"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, r)
	return f.text, nil
}

type fakeSummarizer struct {
	err error
}

func (f fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "# Summary\n" + text, nil
}

type fakeNarrator struct {
	err error
}

func (f fakeNarrator) Narrate(ctx context.Context, text string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader("ID3" + text)), nil
}

type fixture struct {
	proc  *Processor
	docs  *services.DocumentService
	repo  *testutil.MockDocumentRepository
	store *testutil.MockStore
	clock *clock.Fixed
}

func newFixture(extractor TextExtractor, summarizer Summarizer, narrator Narrator) *fixture {
	log := testutil.NewTestLogger()
	clk := clock.NewFixed(epoch)
	repo := testutil.NewMockDocumentRepository()
	store := testutil.NewMockStore()
	docs := services.NewDocumentService(repo, store, clk, log)
	cfg := config.WorkerConfig{BatchSize: 5, Concurrency: 2, StageTimeout: 10 * time.Minute}
	return &fixture{
		proc:  NewProcessor(docs, repo, store, extractor, summarizer, narrator, clk, cfg, log),
		docs:  docs,
		repo:  repo,
		store: store,
		clock: clk,
	}
}

func (f *fixture) upload(t *testing.T) *document.Document {
	t.Helper()
	content := []byte("%PDF-1.4 cell biology")
	doc, err := f.docs.Create(context.Background(), document.Upload{
		OwnerID:     "student",
		DisplayName: "biology.pdf",
		SizeBytes:   int64(len(content)),
		Content:     bytes.NewReader(content),
	})
	require.NoError(t, err)
	return doc
}

func TestProcessor_SummarizesUploaded(t *testing.T) {
	f := newFixture(fakeExtractor{text: "mitochondria"}, fakeSummarizer{}, fakeNarrator{})
	doc := f.upload(t)

	report, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summarized)

	got, err := f.docs.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StageSummarized, got.Stage)
	assert.Equal(t, storage.SummaryKey(doc.ID), got.SummaryArtifactID)
	assert.Equal(t, "# Summary\nmitochondria", string(f.store.Objects[got.SummaryArtifactID]))

	// nothing left to do
	report, err = f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
}

func TestProcessor_NarratesPending(t *testing.T) {
	f := newFixture(fakeExtractor{text: "mitochondria"}, fakeSummarizer{}, fakeNarrator{})
	doc := f.upload(t)
	_, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)

	_, err = f.docs.Advance(context.Background(), doc.ID, document.StageAudioPending, "")
	require.NoError(t, err)

	report, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Narrated)

	got, _ := f.docs.Get(context.Background(), doc.ID)
	assert.Equal(t, document.StageAudioReady, got.Stage)
	assert.True(t, f.store.Has(storage.AudioKey(doc.ID)))
	assert.NotEmpty(t, got.SummaryArtifactID)
}

// blockingNarrator holds every call until release is closed
type blockingNarrator struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (n *blockingNarrator) Narrate(ctx context.Context, text string) (io.ReadCloser, error) {
	n.calls.Add(1)
	n.entered <- struct{}{}
	<-n.release
	return io.NopCloser(strings.NewReader("ID3" + text)), nil
}

func TestProcessor_NarratesOnceAcrossReplicas(t *testing.T) {
	narrator := &blockingNarrator{entered: make(chan struct{}, 2), release: make(chan struct{})}
	f := newFixture(fakeExtractor{text: "mitochondria"}, fakeSummarizer{}, narrator)
	doc := f.upload(t)
	_, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	_, err = f.docs.Advance(context.Background(), doc.ID, document.StageAudioPending, "")
	require.NoError(t, err)

	replica := NewProcessor(f.docs, f.repo, f.store, fakeExtractor{}, fakeSummarizer{}, narrator, f.clock,
		config.WorkerConfig{BatchSize: 5, Concurrency: 2, StageTimeout: 10 * time.Minute}, testutil.NewTestLogger())

	first := make(chan Report, 1)
	go func() {
		r, _ := f.proc.RunOnce(context.Background())
		first <- r
	}()
	<-narrator.entered

	// the document is still audio_pending while the first replica narrates
	second, err := replica.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, second)

	close(narrator.release)
	r := <-first
	assert.Equal(t, 1, r.Narrated)
	assert.Equal(t, int32(1), narrator.calls.Load())

	got, _ := f.docs.Get(context.Background(), doc.ID)
	assert.Equal(t, document.StageAudioReady, got.Stage)
	assert.NotContains(t, f.repo.Claims, doc.ID)
}

func TestProcessor_StaleNarrationClaimIsTakenOver(t *testing.T) {
	f := newFixture(fakeExtractor{text: "notes"}, fakeSummarizer{}, fakeNarrator{})
	doc := f.upload(t)
	_, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)

	// the summary is already there; audio was requested a while ago and a
	// worker that claimed it died
	f.clock.Advance(30 * time.Minute)
	_, err = f.docs.Advance(context.Background(), doc.ID, document.StageAudioPending, "")
	require.NoError(t, err)
	ok, err := f.repo.Claim(context.Background(), doc.ID, document.StageAudioPending, epoch, epoch)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Narrated)
}

func TestProcessor_Failures(t *testing.T) {
	tests := []struct {
		name       string
		extractor  TextExtractor
		summarizer Summarizer
		wantReason string
	}{
		{"unreadable pdf", fakeExtractor{err: errors.New("no text")}, fakeSummarizer{}, ReasonExtractFailed},
		{"summarizer down", fakeExtractor{text: "notes"}, fakeSummarizer{err: errors.New("503")}, ReasonSummarizeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.extractor, tt.summarizer, fakeNarrator{})
			doc := f.upload(t)

			report, err := f.proc.RunOnce(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, report.Failed)

			got, _ := f.docs.Get(context.Background(), doc.ID)
			assert.Equal(t, document.StageFailed, got.Stage)
			assert.Equal(t, tt.wantReason, got.FailureReason)
		})
	}
}

func TestProcessor_NarratorFailure(t *testing.T) {
	f := newFixture(fakeExtractor{text: "notes"}, fakeSummarizer{}, fakeNarrator{err: errors.New("quota")})
	doc := f.upload(t)
	_, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	_, err = f.docs.Advance(context.Background(), doc.ID, document.StageAudioPending, "")
	require.NoError(t, err)

	report, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	got, _ := f.docs.Get(context.Background(), doc.ID)
	assert.Equal(t, document.StageFailed, got.Stage)
	assert.Equal(t, ReasonNarrateFailed, got.FailureReason)
	assert.Empty(t, got.SummaryArtifactID)
}

func TestProcessor_TimesOutStuckDocuments(t *testing.T) {
	f := newFixture(fakeExtractor{text: "notes"}, fakeSummarizer{}, fakeNarrator{})
	doc := f.upload(t)

	// a previous worker claimed the document and died
	_, err := f.docs.Advance(context.Background(), doc.ID, document.StageSummarizing, "")
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	report, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TimedOut)

	f.clock.Advance(6 * time.Minute)
	report, err = f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TimedOut)

	got, _ := f.docs.Get(context.Background(), doc.ID)
	assert.Equal(t, document.StageFailed, got.Stage)
	assert.Equal(t, ReasonTimeout, got.FailureReason)

	// a retried document is picked up again
	_, err = f.docs.Retry(context.Background(), doc.ID)
	require.NoError(t, err)
	report, err = f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summarized)
}

func TestProcessor_ConcurrentBatch(t *testing.T) {
	f := newFixture(fakeExtractor{text: "notes"}, fakeSummarizer{}, fakeNarrator{})
	for i := 0; i < 4; i++ {
		f.upload(t)
	}

	report, err := f.proc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Summarized)

	counts, _ := f.repo.CountByStage(context.Background())
	assert.Equal(t, 4, counts[document.StageSummarized])
}

func configForTest() config.WorkerConfig {
	return config.WorkerConfig{
		PollSchedule:           "@every 1h",
		MetricsRefreshSchedule: "@every 1h",
		BatchSize:              5,
		Concurrency:            2,
		StageTimeout:           10 * time.Minute,
	}
}

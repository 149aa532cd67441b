// Package worker runs document processing in the background: it summarizes
// uploaded PDFs, narrates summaries for documents whose audio was requested,
// and fails documents that sit in a working stage past the stage timeout.
package worker

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/metrics"
	"github.com/mindspero/mindspero/internal/storage"
)

// Failure reasons recorded on documents
const (
	ReasonTimeout         = "timeout"
	ReasonExtractFailed   = "extract_failed"
	ReasonSummarizeFailed = "summarize_failed"
	ReasonNarrateFailed   = "narrate_failed"
	ReasonStorageFailed   = "storage_failed"
)

// TextExtractor pulls plain text out of a PDF
type TextExtractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// Summarizer turns document text into a markdown summary
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Narrator turns a summary into MP3 audio
type Narrator interface {
	Narrate(ctx context.Context, text string) (io.ReadCloser, error)
}

// Report counts what one pass did
type Report struct {
	Summarized int
	Narrated   int
	Failed     int
	TimedOut   int
	Skipped    int
}

// Processor promotes documents through the processing stages
type Processor struct {
	docs       document.Service
	repo       document.Repository
	store      storage.Store
	extractor  TextExtractor
	summarizer Summarizer
	narrator   Narrator
	clock      clock.Clock
	cfg        config.WorkerConfig
	logger     *logger.Logger
}

// NewProcessor creates a processor. Transitions go through docs so they share
// the conditional stage update; repo is only used to find and claim work.
func NewProcessor(
	docs document.Service,
	repo document.Repository,
	store storage.Store,
	extractor TextExtractor,
	summarizer Summarizer,
	narrator Narrator,
	clk clock.Clock,
	cfg config.WorkerConfig,
	log *logger.Logger,
) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 10 * time.Minute
	}
	return &Processor{
		docs:       docs,
		repo:       repo,
		store:      store,
		extractor:  extractor,
		summarizer: summarizer,
		narrator:   narrator,
		clock:      clk,
		cfg:        cfg,
		logger:     log,
	}
}

type counters struct {
	summarized, narrated, failed, timedOut, skipped atomic.Int64
}

func (c *counters) report() Report {
	return Report{
		Summarized: int(c.summarized.Load()),
		Narrated:   int(c.narrated.Load()),
		Failed:     int(c.failed.Load()),
		TimedOut:   int(c.timedOut.Load()),
		Skipped:    int(c.skipped.Load()),
	}
}

// RunOnce sweeps stuck documents, then processes one batch of uploaded and
// one batch of audio_pending documents
func (p *Processor) RunOnce(ctx context.Context) (Report, error) {
	var c counters

	if err := p.sweep(ctx, &c); err != nil {
		return c.report(), err
	}

	now := p.clock.Now()
	uploaded, err := p.repo.ListByStage(ctx, document.StageUploaded, now, p.cfg.BatchSize)
	if err != nil {
		return c.report(), err
	}
	pending, err := p.repo.ListByStage(ctx, document.StageAudioPending, now, p.cfg.BatchSize)
	if err != nil {
		return c.report(), err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, doc := range uploaded {
		g.Go(func() error {
			p.summarize(gctx, doc, &c)
			return nil
		})
	}
	for _, doc := range pending {
		g.Go(func() error {
			p.narrate(gctx, doc, &c)
			return nil
		})
	}
	err = g.Wait()

	r := c.report()
	if r != (Report{}) {
		p.logger.WithFields(map[string]interface{}{
			"summarized": r.Summarized,
			"narrated":   r.Narrated,
			"failed":     r.Failed,
			"timed_out":  r.TimedOut,
			"skipped":    r.Skipped,
		}).Info("Processing pass finished")
	}
	return r, err
}

// sweep fails documents left in a working stage longer than the stage timeout
func (p *Processor) sweep(ctx context.Context, c *counters) error {
	cutoff := p.clock.Now().Add(-p.cfg.StageTimeout)
	for _, stage := range []document.Stage{document.StageSummarizing, document.StageAudioPending} {
		stuck, err := p.repo.ListByStage(ctx, stage, cutoff, p.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, doc := range stuck {
			if _, err := p.docs.MarkFailed(ctx, doc.ID, ReasonTimeout); err != nil {
				if stderrors.Is(err, document.ErrInvalidTransition) || stderrors.Is(err, document.ErrAlreadyFailed) {
					c.skipped.Add(1)
					continue
				}
				return err
			}
			c.timedOut.Add(1)
			p.logger.WithFields(map[string]interface{}{
				"document_id": doc.ID,
				"stage":       stage,
			}).Warn("Document timed out")
		}
	}
	return nil
}

func (p *Processor) summarize(ctx context.Context, doc *document.Document, c *counters) {
	start := time.Now()
	defer func() { metrics.RecordProcessing("summarize", time.Since(start)) }()

	// claiming the document; losing the race means another worker has it
	if _, err := p.docs.Advance(ctx, doc.ID, document.StageSummarizing, ""); err != nil {
		c.skipped.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	text, reason, err := p.extract(ctx, doc)
	if err == nil {
		var summary string
		summary, err = p.summarizer.Summarize(ctx, text)
		if err != nil {
			reason = ReasonSummarizeFailed
		} else {
			key := storage.SummaryKey(doc.ID)
			if err = p.store.Put(ctx, key, strings.NewReader(summary), storage.ContentTypeMarkdown); err != nil {
				reason = ReasonStorageFailed
			} else if _, err = p.docs.Advance(ctx, doc.ID, document.StageSummarized, key); err != nil {
				// the sweep or a user got there first
				c.skipped.Add(1)
				return
			}
		}
	}

	if err != nil {
		p.fail(ctx, doc.ID, reason, err, c)
		return
	}
	c.summarized.Add(1)
}

func (p *Processor) extract(ctx context.Context, doc *document.Document) (string, string, error) {
	rc, err := p.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return "", ReasonStorageFailed, err
	}
	defer rc.Close()

	text, err := p.extractor.Extract(ctx, rc)
	if err != nil {
		return "", ReasonExtractFailed, err
	}
	return text, "", nil
}

func (p *Processor) narrate(ctx context.Context, doc *document.Document, c *counters) {
	start := time.Now()
	defer func() { metrics.RecordProcessing("narrate", time.Since(start)) }()

	// audio_pending stays put while narrating, so the lease is what keeps
	// other workers off the document
	now := p.clock.Now()
	claimed, err := p.repo.Claim(ctx, doc.ID, document.StageAudioPending, now, now.Add(-p.cfg.StageTimeout))
	if err != nil {
		p.logger.WithFields(map[string]interface{}{"document_id": doc.ID}).WithError(err).Error("Failed to claim document")
		c.skipped.Add(1)
		return
	}
	if !claimed {
		c.skipped.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	summary, err := p.readArtifact(ctx, doc.SummaryArtifactID)
	if err != nil {
		p.fail(ctx, doc.ID, ReasonStorageFailed, err, c)
		return
	}

	audio, err := p.narrator.Narrate(ctx, summary)
	if err != nil {
		p.fail(ctx, doc.ID, ReasonNarrateFailed, err, c)
		return
	}
	defer audio.Close()

	key := storage.AudioKey(doc.ID)
	if err := p.store.Put(ctx, key, audio, storage.ContentTypeMP3); err != nil {
		p.fail(ctx, doc.ID, ReasonStorageFailed, err, c)
		return
	}
	if _, err := p.docs.Advance(ctx, doc.ID, document.StageAudioReady, key); err != nil {
		c.skipped.Add(1)
		return
	}
	c.narrated.Add(1)
}

func (p *Processor) readArtifact(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty artifact key", storage.ErrNotFound)
	}
	rc, err := p.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *Processor) fail(ctx context.Context, id, reason string, cause error, c *counters) {
	p.logger.WithFields(map[string]interface{}{
		"document_id": id,
		"reason":      reason,
	}).WithError(cause).Warn("Document processing failed")

	// the processing context may already be past its deadline
	if ctx.Err() != nil {
		reason = ReasonTimeout
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
	}

	if _, err := p.docs.MarkFailed(ctx, id, reason); err != nil {
		p.logger.WithFields(map[string]interface{}{"document_id": id}).WithError(err).Error("Failed to mark document failed")
		c.skipped.Add(1)
		return
	}
	c.failed.Add(1)
}

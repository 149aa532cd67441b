package document

import (
	"fmt"
	"time"
)

// Stage is the processing position of an uploaded PDF
type Stage string

const (
	StageUploaded     Stage = "uploaded"
	StageSummarizing  Stage = "summarizing"
	StageSummarized   Stage = "summarized"
	StageAudioPending Stage = "audio_pending"
	StageAudioReady   Stage = "audio_ready"
	StageFailed       Stage = "failed"
)

// ReasonUnspecified is recorded when a collaborator fails a document without a reason
const ReasonUnspecified = "unspecified"

var stageOrder = map[Stage]int{
	StageUploaded:     0,
	StageSummarizing:  1,
	StageSummarized:   2,
	StageAudioPending: 3,
	StageAudioReady:   4,
}

// IsValid reports whether s is a known stage
func (s Stage) IsValid() bool {
	_, ok := stageOrder[s]
	return ok || s == StageFailed
}

// IsTerminal reports whether no forward transition leaves s
func (s Stage) IsTerminal() bool {
	return s == StageAudioReady || s == StageFailed
}

// HasSummary reports whether a document in s carries a summary artifact
func (s Stage) HasSummary() bool {
	switch s {
	case StageSummarized, StageAudioPending, StageAudioReady:
		return true
	}
	return false
}

// Before reports whether s strictly precedes other in the processing order.
// Failed is outside the order and never precedes anything.
func (s Stage) Before(other Stage) bool {
	a, okA := stageOrder[s]
	b, okB := stageOrder[other]
	return okA && okB && a < b
}

// Stages lists the ordered processing stages followed by failed
func Stages() []Stage {
	return []Stage{StageUploaded, StageSummarizing, StageSummarized, StageAudioPending, StageAudioReady, StageFailed}
}

// Document is one uploaded PDF and its processing state
type Document struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	DisplayName       string    `json:"display_name"`
	SizeBytes         int64     `json:"size_bytes"`
	StorageKey        string    `json:"-"`
	Stage             Stage     `json:"stage"`
	SummaryArtifactID string    `json:"summary_artifact_id,omitempty"`
	AudioArtifactID   string    `json:"audio_artifact_id,omitempty"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	UploadedAt        time.Time `json:"uploaded_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Advance moves the document forward to target. Moving to failed is always
// allowed from a non-terminal stage and is handled by MarkFailed.
func (d *Document) Advance(target Stage, artifactID string) error {
	if target == StageFailed {
		return d.MarkFailed(ReasonUnspecified)
	}
	if !target.IsValid() {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, target)
	}
	if d.Stage == StageFailed || !d.Stage.Before(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Stage, target)
	}

	switch target {
	case StageSummarized:
		if artifactID == "" {
			return fmt.Errorf("%w: summarized needs a summary artifact", ErrArtifactRequired)
		}
		d.SummaryArtifactID = artifactID
	case StageAudioPending:
		if !d.Stage.HasSummary() {
			return fmt.Errorf("%w: %s -> %s requires a summary", ErrInvalidTransition, d.Stage, target)
		}
	case StageAudioReady:
		if !d.Stage.HasSummary() {
			return fmt.Errorf("%w: %s -> %s requires a summary", ErrInvalidTransition, d.Stage, target)
		}
		if artifactID == "" {
			return fmt.Errorf("%w: audio_ready needs an audio artifact", ErrArtifactRequired)
		}
		d.AudioArtifactID = artifactID
	}

	d.Stage = target
	return nil
}

// MarkFailed records a processing failure. Repeating the same reason is a
// no-op; a different reason is rejected so the first diagnostic survives.
func (d *Document) MarkFailed(reason string) error {
	if reason == "" {
		reason = ReasonUnspecified
	}
	if d.Stage == StageFailed {
		if d.FailureReason == reason {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrAlreadyFailed, d.FailureReason)
	}
	if d.Stage.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, d.Stage)
	}

	d.Stage = StageFailed
	d.FailureReason = reason
	d.SummaryArtifactID = ""
	d.AudioArtifactID = ""
	return nil
}

// Retry resets a failed document so processing starts over
func (d *Document) Retry() error {
	if d.Stage != StageFailed {
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, d.Stage)
	}
	d.Stage = StageUploaded
	d.FailureReason = ""
	d.SummaryArtifactID = ""
	d.AudioArtifactID = ""
	return nil
}

// Package entitlement is the single authority for feature gating. Every
// function is pure: it reads the subscription and document it is given and
// the supplied instant, and returns a Decision. Denials are values, not errors.
package entitlement

import (
	"time"

	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/subscription"
)

// Reason explains a Decision
type Reason string

const (
	ReasonOK                   Reason = "ok"
	ReasonRequiresSubscription Reason = "requires_subscription"
	ReasonTrialExpired         Reason = "trial_expired"
	ReasonDocumentNotReady     Reason = "document_not_ready"
	ReasonNotOwner             Reason = "not_owner"
)

// Decision is the outcome of a gate check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

// Capability names a gated action
type Capability string

const (
	CapabilitySummary         Capability = "summary"
	CapabilityAudio           Capability = "audio"
	CapabilityAudioGeneration Capability = "audio_generation"
	CapabilityDownload        Capability = "download"
)

// Capabilities lists every document-scoped capability
func Capabilities() []Capability {
	return []Capability{CapabilitySummary, CapabilityAudio, CapabilityAudioGeneration, CapabilityDownload}
}

// Feature names something a tier unlocks
type Feature string

const (
	FeatureSummaries       Feature = "summaries"
	FeatureAudio           Feature = "audio_explanations"
	FeatureDownloads       Feature = "downloads"
	FeaturePrioritySupport Feature = "priority_support"
)

func allow() Decision { return Decision{Allowed: true, Reason: ReasonOK} }

func deny(r Reason) Decision { return Decision{Allowed: false, Reason: r} }

// CanAccessSummary gates reading a document summary. Summaries are free on
// every tier once the document has one.
func CanAccessSummary(sub *subscription.Subscription, doc *document.Document, now time.Time) Decision {
	if d, ok := checkOwner(sub, doc); !ok {
		return d
	}
	if !doc.Stage.HasSummary() {
		return deny(ReasonDocumentNotReady)
	}
	return allow()
}

// CanAccessAudio gates listening to a document's audio explanation
func CanAccessAudio(sub *subscription.Subscription, doc *document.Document, now time.Time) Decision {
	if d, ok := checkOwner(sub, doc); !ok {
		return d
	}
	if doc.Stage != document.StageAudioReady {
		return deny(ReasonDocumentNotReady)
	}
	return checkTier(sub, now)
}

// CanTriggerAudioGeneration gates requesting narration of a summarized document
func CanTriggerAudioGeneration(sub *subscription.Subscription, doc *document.Document, now time.Time) Decision {
	if d, ok := checkOwner(sub, doc); !ok {
		return d
	}
	if doc.Stage != document.StageSummarized {
		return deny(ReasonDocumentNotReady)
	}
	return checkTier(sub, now)
}

// CanDownload gates downloading the generated audio. Downloads follow the audio rule.
func CanDownload(sub *subscription.Subscription, doc *document.Document, now time.Time) Decision {
	return CanAccessAudio(sub, doc, now)
}

// Check dispatches to the gate for capability. Unknown capabilities are denied.
func Check(capability Capability, sub *subscription.Subscription, doc *document.Document, now time.Time) Decision {
	switch capability {
	case CapabilitySummary:
		return CanAccessSummary(sub, doc, now)
	case CapabilityAudio:
		return CanAccessAudio(sub, doc, now)
	case CapabilityAudioGeneration:
		return CanTriggerAudioGeneration(sub, doc, now)
	case CapabilityDownload:
		return CanDownload(sub, doc, now)
	}
	return deny(ReasonRequiresSubscription)
}

// CheckAll evaluates every capability for one document
func CheckAll(sub *subscription.Subscription, doc *document.Document, now time.Time) map[Capability]Decision {
	out := make(map[Capability]Decision, len(Capabilities()))
	for _, c := range Capabilities() {
		out[c] = Check(c, sub, doc, now)
	}
	return out
}

// Features lists what the account's current tier unlocks
func Features(sub *subscription.Subscription, now time.Time) []Feature {
	features := []Feature{FeatureSummaries}
	if checkTier(sub, now).Allowed {
		features = append(features, FeatureAudio, FeatureDownloads)
	}
	if sub != nil && sub.Tier == subscription.TierActive && sub.CurrentTier(now) == subscription.TierActive {
		features = append(features, FeaturePrioritySupport)
	}
	return features
}

func checkOwner(sub *subscription.Subscription, doc *document.Document) (Decision, bool) {
	if doc == nil {
		return deny(ReasonDocumentNotReady), false
	}
	if sub != nil && doc.OwnerID != sub.UserID {
		return deny(ReasonNotOwner), false
	}
	return Decision{}, true
}

func checkTier(sub *subscription.Subscription, now time.Time) Decision {
	if sub == nil {
		return deny(ReasonRequiresSubscription)
	}
	if sub.TrialLapsed(now) {
		return deny(ReasonTrialExpired)
	}
	switch sub.CurrentTier(now) {
	case subscription.TierTrial, subscription.TierActive:
		return allow()
	}
	return deny(ReasonRequiresSubscription)
}

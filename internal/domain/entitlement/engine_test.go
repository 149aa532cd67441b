package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/subscription"
)

const day = 24 * time.Hour

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func subWithTier(t *testing.T, tier subscription.Tier) *subscription.Subscription {
	t.Helper()
	s := subscription.NewFree("user-1")
	switch tier {
	case subscription.TierTrial:
		require.NoError(t, s.StartTrial(t0, 30))
	case subscription.TierActive:
		require.NoError(t, s.RecordPayment(t0, 30, subscription.PlanMonthly))
	case subscription.TierCancelled:
		require.NoError(t, s.RecordPayment(t0, 30, subscription.PlanMonthly))
		require.NoError(t, s.Cancel(t0))
	case subscription.TierExpired:
		s.Tier = subscription.TierExpired
	}
	return s
}

func docAt(stage document.Stage) *document.Document {
	return &document.Document{ID: "doc-1", OwnerID: "user-1", Stage: stage}
}

func TestCanAccessSummary(t *testing.T) {
	tests := []struct {
		stage document.Stage
		want  Decision
	}{
		{document.StageUploaded, Decision{false, ReasonDocumentNotReady}},
		{document.StageSummarizing, Decision{false, ReasonDocumentNotReady}},
		{document.StageSummarized, Decision{true, ReasonOK}},
		{document.StageAudioPending, Decision{true, ReasonOK}},
		{document.StageAudioReady, Decision{true, ReasonOK}},
		{document.StageFailed, Decision{false, ReasonDocumentNotReady}},
	}

	tiers := []subscription.Tier{subscription.TierFree, subscription.TierTrial, subscription.TierActive, subscription.TierExpired, subscription.TierCancelled}
	for _, tt := range tests {
		for _, tier := range tiers {
			t.Run(string(tt.stage)+"/"+string(tier), func(t *testing.T) {
				got := CanAccessSummary(subWithTier(t, tier), docAt(tt.stage), t0.Add(day))
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestCanAccessSummary_NewUploadNotReady(t *testing.T) {
	doc := &document.Document{ID: "doc-1", OwnerID: "user-1", DisplayName: "notes.pdf", SizeBytes: 2_000_000, Stage: document.StageUploaded}

	got := CanAccessSummary(subWithTier(t, subscription.TierActive), doc, t0)

	assert.Equal(t, Decision{Allowed: false, Reason: ReasonDocumentNotReady}, got)
}

func TestCanAccessAudio(t *testing.T) {
	tests := []struct {
		name string
		tier subscription.Tier
		at   time.Time
		want Decision
	}{
		{name: "free", tier: subscription.TierFree, at: t0, want: Decision{false, ReasonRequiresSubscription}},
		{name: "trial", tier: subscription.TierTrial, at: t0.Add(10 * day), want: Decision{true, ReasonOK}},
		{name: "trial last day", tier: subscription.TierTrial, at: t0.Add(30*day - time.Hour), want: Decision{true, ReasonOK}},
		{name: "trial at end", tier: subscription.TierTrial, at: t0.Add(30 * day), want: Decision{false, ReasonTrialExpired}},
		{name: "trial lapsed", tier: subscription.TierTrial, at: t0.Add(31 * day), want: Decision{false, ReasonTrialExpired}},
		{name: "active", tier: subscription.TierActive, at: t0.Add(5 * day), want: Decision{true, ReasonOK}},
		{name: "cancelled before renewal", tier: subscription.TierCancelled, at: t0.Add(20 * day), want: Decision{true, ReasonOK}},
		{name: "cancelled after renewal", tier: subscription.TierCancelled, at: t0.Add(31 * day), want: Decision{false, ReasonRequiresSubscription}},
		{name: "expired", tier: subscription.TierExpired, at: t0, want: Decision{false, ReasonRequiresSubscription}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAccessAudio(subWithTier(t, tt.tier), docAt(document.StageAudioReady), tt.at)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanAccessAudio_SummarizedNeverReady(t *testing.T) {
	for _, tier := range []subscription.Tier{subscription.TierFree, subscription.TierTrial, subscription.TierActive, subscription.TierExpired, subscription.TierCancelled} {
		got := CanAccessAudio(subWithTier(t, tier), docAt(document.StageSummarized), t0.Add(day))
		assert.Equal(t, Decision{false, ReasonDocumentNotReady}, got, tier)
	}
}

func TestCanAccessAudio_TrialLapsedScenario(t *testing.T) {
	sub := subWithTier(t, subscription.TierTrial)
	now := t0.Add(31 * day)

	assert.Equal(t, subscription.TierExpired, sub.CurrentTier(now))
	assert.Equal(t, Decision{false, ReasonTrialExpired}, CanAccessAudio(sub, docAt(document.StageAudioReady), now))
}

func TestCanAccessAudio_PaidAfterTrial(t *testing.T) {
	sub := subWithTier(t, subscription.TierTrial)
	require.NoError(t, sub.RecordPayment(t0.Add(40*day), 30, subscription.PlanMonthly))

	got := CanAccessAudio(sub, docAt(document.StageAudioReady), t0.Add(45*day))

	assert.Equal(t, Decision{true, ReasonOK}, got)
}

func TestCanTriggerAudioGeneration(t *testing.T) {
	tests := []struct {
		name  string
		tier  subscription.Tier
		stage document.Stage
		want  Decision
	}{
		{name: "trial summarized", tier: subscription.TierTrial, stage: document.StageSummarized, want: Decision{true, ReasonOK}},
		{name: "active summarized", tier: subscription.TierActive, stage: document.StageSummarized, want: Decision{true, ReasonOK}},
		{name: "free summarized", tier: subscription.TierFree, stage: document.StageSummarized, want: Decision{false, ReasonRequiresSubscription}},
		{name: "free uploaded", tier: subscription.TierFree, stage: document.StageUploaded, want: Decision{false, ReasonDocumentNotReady}},
		{name: "active pending", tier: subscription.TierActive, stage: document.StageAudioPending, want: Decision{false, ReasonDocumentNotReady}},
		{name: "active ready", tier: subscription.TierActive, stage: document.StageAudioReady, want: Decision{false, ReasonDocumentNotReady}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanTriggerAudioGeneration(subWithTier(t, tt.tier), docAt(tt.stage), t0.Add(day))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotOwnerTakesPrecedence(t *testing.T) {
	sub := subWithTier(t, subscription.TierFree)
	doc := &document.Document{ID: "doc-1", OwnerID: "someone-else", Stage: document.StageUploaded}

	for _, c := range Capabilities() {
		assert.Equal(t, Decision{false, ReasonNotOwner}, Check(c, sub, doc, t0), c)
	}
}

func TestNilSubscriptionIsFree(t *testing.T) {
	doc := docAt(document.StageAudioReady)

	assert.Equal(t, Decision{true, ReasonOK}, CanAccessSummary(nil, doc, t0))
	assert.Equal(t, Decision{false, ReasonRequiresSubscription}, CanAccessAudio(nil, doc, t0))
	assert.Equal(t, []Feature{FeatureSummaries}, Features(nil, t0))
}

func TestCheck_UnknownCapability(t *testing.T) {
	got := Check(Capability("teleport"), subWithTier(t, subscription.TierActive), docAt(document.StageAudioReady), t0)
	assert.False(t, got.Allowed)
}

func TestCheckAll(t *testing.T) {
	got := CheckAll(subWithTier(t, subscription.TierTrial), docAt(document.StageSummarized), t0.Add(day))

	require.Len(t, got, len(Capabilities()))
	assert.True(t, got[CapabilitySummary].Allowed)
	assert.True(t, got[CapabilityAudioGeneration].Allowed)
	assert.Equal(t, ReasonDocumentNotReady, got[CapabilityAudio].Reason)
	assert.Equal(t, ReasonDocumentNotReady, got[CapabilityDownload].Reason)
}

func TestFeatures(t *testing.T) {
	tests := []struct {
		tier subscription.Tier
		want []Feature
	}{
		{subscription.TierFree, []Feature{FeatureSummaries}},
		{subscription.TierTrial, []Feature{FeatureSummaries, FeatureAudio, FeatureDownloads}},
		{subscription.TierActive, []Feature{FeatureSummaries, FeatureAudio, FeatureDownloads, FeaturePrioritySupport}},
		{subscription.TierCancelled, []Feature{FeatureSummaries, FeatureAudio, FeatureDownloads}},
		{subscription.TierExpired, []Feature{FeatureSummaries}},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			assert.Equal(t, tt.want, Features(subWithTier(t, tt.tier), t0.Add(day)))
		})
	}
}

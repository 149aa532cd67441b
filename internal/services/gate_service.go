package services

import (
	"context"

	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/entitlement"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/metrics"
)

// Evaluation is a gate decision together with the records it was made from
type Evaluation struct {
	Decision     entitlement.Decision
	Document     *document.Document
	Subscription *subscription.Subscription
}

// GateService loads the requester's subscription and the document, then asks
// the entitlement engine. It never turns a denial into an error.
type GateService struct {
	subs   subscription.Service
	docs   document.Repository
	clock  clock.Clock
	logger *logger.Logger
}

// NewGateService creates a new gate service
func NewGateService(subs subscription.Service, docs document.Repository, clk clock.Clock, log *logger.Logger) *GateService {
	return &GateService{subs: subs, docs: docs, clock: clk, logger: log}
}

// Check evaluates one capability for userID on documentID
func (g *GateService) Check(ctx context.Context, capability entitlement.Capability, userID, documentID string) (*Evaluation, error) {
	sub, doc, err := g.load(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	d := entitlement.Check(capability, sub, doc, g.clock.Now())
	metrics.RecordGateDecision(string(capability), string(d.Reason))
	if !d.Allowed {
		g.logger.WithFields(map[string]interface{}{
			"user_id":     userID,
			"document_id": documentID,
			"capability":  capability,
			"reason":      d.Reason,
		}).Debug("Gate denied")
	}
	return &Evaluation{Decision: d, Document: doc, Subscription: sub}, nil
}

// CheckAll evaluates every capability for userID on documentID
func (g *GateService) CheckAll(ctx context.Context, userID, documentID string) (map[entitlement.Capability]entitlement.Decision, error) {
	sub, doc, err := g.load(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	return entitlement.CheckAll(sub, doc, g.clock.Now()), nil
}

// Features lists what userID's current tier unlocks, with the status it was computed from
func (g *GateService) Features(ctx context.Context, userID string) ([]entitlement.Feature, *subscription.Status, error) {
	sub, err := g.subs.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	now := g.clock.Now()
	return entitlement.Features(sub, now), StatusAt(sub, now), nil
}

func (g *GateService) load(ctx context.Context, userID, documentID string) (*subscription.Subscription, *document.Document, error) {
	doc, err := g.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := g.subs.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return sub, doc, nil
}

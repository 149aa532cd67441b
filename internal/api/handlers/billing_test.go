package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mindspero/mindspero/internal/api/dto"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/services"
)

func (f *fixture) webhook(t *testing.T, event services.WebhookEvent, signature string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if signature == "" {
		signature = f.billing.Sign(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, signature)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestBillingHandler_Webhook(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "payer@example.com")

	event := services.WebhookEvent{
		Event: services.EventChargeSuccess,
		Data: services.WebhookEventData{
			Reference: "ref-1",
			Amount:    2499,
			Currency:  "usd",
			Metadata:  services.WebhookMetadata{UserID: u.ID, Plan: "monthly"},
		},
	}

	rr := f.webhook(t, event, "deadbeef")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature status = %d, want 401", rr.Code)
	}

	rr = f.webhook(t, event, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var result services.WebhookResult
	decode(t, rr, &result)
	if result.Status != services.WebhookProcessed {
		t.Errorf("Status = %s, want processed", result.Status)
	}

	rr = f.webhook(t, event, "")
	decode(t, rr, &result)
	if result.Status != services.WebhookDuplicate {
		t.Errorf("replay Status = %s, want duplicate", result.Status)
	}

	st, err := f.subs.Status(t.Context(), u.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.CurrentTier != subscription.TierActive {
		t.Errorf("CurrentTier = %s, want active", st.CurrentTier)
	}
	if len(f.payments.Payments) != 1 {
		t.Errorf("payments = %d, want 1", len(f.payments.Payments))
	}
}

func TestBillingHandler_Plans(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "payer@example.com")
	if _, err := f.subs.RecordPayment(t.Context(), u.ID, 365, "yearly"); err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}

	rr := f.do(t, http.MethodGet, "/billing/plans", u.ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp dto.PlansResponse
	decode(t, rr, &resp)
	if resp.TrialDays != 30 || len(resp.Plans) != 2 {
		t.Fatalf("plans = %+v", resp)
	}
	for _, p := range resp.Plans {
		if p.IsCurrent != (p.Name == "yearly") {
			t.Errorf("%s IsCurrent = %v", p.Name, p.IsCurrent)
		}
		if p.BonusDays != 30 {
			t.Errorf("%s BonusDays = %d, want 30", p.Name, p.BonusDays)
		}
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/payment"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	apperrors "github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/testutil"
)

type billingFixture struct {
	svc      *BillingService
	subs     *SubscriptionService
	subRepo  *testutil.MockSubscriptionRepository
	payments *testutil.MockPaymentRepository
	clock    *clock.Fixed
	user     *user.User
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	log := testutil.NewTestLogger()
	clk := clock.NewFixed(epoch)
	users := testutil.NewMockUserRepository()
	subRepo := testutil.NewMockSubscriptionRepository()
	payments := testutil.NewMockPaymentRepository()

	u := &user.User{ID: "user-1", Email: "payer@example.com", Role: user.RoleUser}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("Create user error = %v", err)
	}

	cfg := config.BillingConfig{
		TrialDays:     30,
		BonusDays:     30,
		Currency:      "USD",
		WebhookSecret: "whsec_test",
		Monthly:       config.Plan{Name: "monthly", PeriodDays: 30, AmountMinor: 2499, Currency: "USD"},
		Yearly:        config.Plan{Name: "yearly", PeriodDays: 365, AmountMinor: 24999, Currency: "USD"},
	}
	subs := NewSubscriptionService(subRepo, clk, cfg.TrialDays, log)
	return &billingFixture{
		svc:      NewBillingService(cfg, subs, payments, users, clk, log),
		subs:     subs,
		subRepo:  subRepo,
		payments: payments,
		clock:    clk,
		user:     u,
	}
}

func (f *billingFixture) deliver(t *testing.T, event WebhookEvent) (*WebhookResult, error) {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return f.svc.HandleWebhook(context.Background(), body, f.svc.Sign(body))
}

func charge(reference, userID, plan string, amount int64) WebhookEvent {
	return WebhookEvent{
		Event: EventChargeSuccess,
		Data: WebhookEventData{
			Reference: reference,
			Amount:    amount,
			Currency:  "usd",
			Metadata:  WebhookMetadata{UserID: userID, Plan: plan},
		},
	}
}

func TestBillingService_VerifySignature(t *testing.T) {
	f := newBillingFixture(t)
	body := []byte(`{"event":"charge.success"}`)

	tests := []struct {
		name      string
		signature string
		want      bool
	}{
		{"valid", f.svc.Sign(body), true},
		{"tampered", f.svc.Sign([]byte(`{"event":"other"}`)), false},
		{"not hex", "zz", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.svc.VerifySignature(body, tt.signature); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := f.svc.HandleWebhook(context.Background(), body, "deadbeef"); !apperrors.IsCode(err, apperrors.ErrCodeUnauthorized) {
		t.Errorf("HandleWebhook() with bad signature error = %v, want UNAUTHORIZED", err)
	}
}

func TestBillingService_ChargeSuccess(t *testing.T) {
	f := newBillingFixture(t)

	res, err := f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499))
	if err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}
	if res.Status != WebhookProcessed {
		t.Errorf("Status = %s, want processed", res.Status)
	}

	sub := f.subRepo.Subs[f.user.ID]
	if sub.Tier != subscription.TierActive {
		t.Errorf("Tier = %s, want active", sub.Tier)
	}
	// 30 paid days plus the 30 bonus days
	if want := epoch.Add(60 * 24 * time.Hour); !sub.RenewalAt.Equal(want) {
		t.Errorf("RenewalAt = %v, want %v", sub.RenewalAt, want)
	}
	if len(f.payments.Payments) != 1 || f.payments.Payments[0].Currency != "USD" {
		t.Errorf("payments = %+v", f.payments.Payments)
	}

	updates := f.subRepo.Updates
	res, err = f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499))
	if err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	if res.Status != WebhookDuplicate {
		t.Errorf("redelivery Status = %s, want duplicate", res.Status)
	}
	if f.subRepo.Updates != updates {
		t.Error("redelivery changed the subscription")
	}
}

func TestBillingService_ChargeStacksAndInfersPlan(t *testing.T) {
	f := newBillingFixture(t)

	if _, err := f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499)); err != nil {
		t.Fatalf("first charge error = %v", err)
	}
	f.clock.Advance(10 * 24 * time.Hour)

	event := charge("ref-2", "", "", 24999)
	event.Data.Customer.Email = "PAYER@example.com"
	if _, err := f.deliver(t, event); err != nil {
		t.Fatalf("second charge error = %v", err)
	}

	sub := f.subRepo.Subs[f.user.ID]
	if sub.Plan != "yearly" {
		t.Errorf("Plan = %s, want yearly", sub.Plan)
	}
	want := epoch.Add((30 + 30 + 365 + 30) * 24 * time.Hour)
	if !sub.RenewalAt.Equal(want) {
		t.Errorf("RenewalAt = %v, want %v", sub.RenewalAt, want)
	}
}

func TestBillingService_ConflictRetries(t *testing.T) {
	tests := []struct {
		name      string
		conflicts int
		wantErr   error
	}{
		{"recovers after two conflicts", 2, nil},
		{"gives up after three conflicts", 3, subscription.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBillingFixture(t)
			if _, err := f.subs.Get(context.Background(), f.user.ID); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			f.subRepo.ConflictsLeft = tt.conflicts

			_, err := f.deliver(t, charge("ref-c", f.user.ID, "monthly", 2499))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("HandleWebhook() error = %v", err)
				}
				if len(f.payments.Payments) != 1 {
					t.Errorf("payments = %d, want 1", len(f.payments.Payments))
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("HandleWebhook() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.payments.Payments) != 0 {
				t.Error("payment recorded although the subscription was not extended")
			}
		})
	}
}

func TestBillingService_Rejections(t *testing.T) {
	f := newBillingFixture(t)

	tests := []struct {
		name  string
		event WebhookEvent
	}{
		{"unknown plan", charge("ref-x", f.user.ID, "weekly", 500)},
		{"unmatched amount", charge("ref-y", f.user.ID, "", 1)},
		{"missing reference", charge("", f.user.ID, "monthly", 2499)},
		{"no customer", charge("ref-z", "", "monthly", 2499)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.deliver(t, tt.event); err == nil {
				t.Error("HandleWebhook() expected an error")
			}
		})
	}
}

func TestBillingService_SubscriptionDisable(t *testing.T) {
	f := newBillingFixture(t)
	disable := WebhookEvent{Event: EventSubscriptionDisable, Data: WebhookEventData{Metadata: WebhookMetadata{UserID: f.user.ID}}}

	res, err := f.deliver(t, disable)
	if err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}
	if res.Status != WebhookIgnored {
		t.Errorf("disable on free Status = %s, want ignored", res.Status)
	}

	if _, err := f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499)); err != nil {
		t.Fatalf("charge error = %v", err)
	}
	res, err = f.deliver(t, disable)
	if err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}
	if res.Status != WebhookProcessed || f.subRepo.Subs[f.user.ID].Tier != subscription.TierCancelled {
		t.Errorf("disable Status = %s, tier = %s", res.Status, f.subRepo.Subs[f.user.ID].Tier)
	}
}

func TestBillingService_UnknownEventIgnored(t *testing.T) {
	f := newBillingFixture(t)
	res, err := f.deliver(t, WebhookEvent{Event: "transfer.success"})
	if err != nil || res.Status != WebhookIgnored {
		t.Errorf("HandleWebhook() = %+v, %v", res, err)
	}
}

func TestBillingService_FailedInsertIsRetriedOnce(t *testing.T) {
	f := newBillingFixture(t)
	f.payments.CreateError = errors.New("db down")

	if _, err := f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499)); err == nil {
		t.Fatal("HandleWebhook() expected an error while payments are unavailable")
	}
	if f.subRepo.Updates != 0 {
		t.Errorf("subscription updated %d times before the payment was recorded", f.subRepo.Updates)
	}

	f.payments.CreateError = nil
	res, err := f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499))
	if err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	if res.Status != WebhookProcessed {
		t.Errorf("redelivery Status = %s, want processed", res.Status)
	}
	if len(f.payments.Payments) != 1 {
		t.Errorf("payments = %d, want 1", len(f.payments.Payments))
	}
	if want := epoch.Add(60 * 24 * time.Hour); !f.subRepo.Subs[f.user.ID].RenewalAt.Equal(want) {
		t.Errorf("RenewalAt = %v, want %v", f.subRepo.Subs[f.user.ID].RenewalAt, want)
	}
}

func TestBillingService_ReferenceClaimedElsewhere(t *testing.T) {
	f := newBillingFixture(t)
	// another process recorded the reference between this delivery's checks
	f.payments.Payments = append(f.payments.Payments, &payment.Payment{
		ID: "p-other", UserID: f.user.ID, Reference: "ref-1", Plan: "monthly", AmountMinor: 2499, Currency: "USD", PaidAt: epoch,
	})

	res, err := f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499))
	if err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}
	if res.Status != WebhookDuplicate {
		t.Errorf("Status = %s, want duplicate", res.Status)
	}
	if f.subRepo.Updates != 0 {
		t.Error("subscription extended for a reference already claimed")
	}
}

func TestBillingService_FailedPurchaseReleasesReference(t *testing.T) {
	f := newBillingFixture(t)
	f.subRepo.UpdateError = errors.New("db down")
	if _, err := f.subs.Get(context.Background(), f.user.ID); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if _, err := f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499)); err == nil {
		t.Fatal("HandleWebhook() expected an error")
	}
	if len(f.payments.Payments) != 0 {
		t.Fatalf("payments = %d, want the claim released", len(f.payments.Payments))
	}

	f.subRepo.UpdateError = nil
	res, err := f.deliver(t, charge("ref-1", f.user.ID, "monthly", 2499))
	if err != nil || res.Status != WebhookProcessed {
		t.Fatalf("redelivery = %+v, %v", res, err)
	}
	if f.subRepo.Subs[f.user.ID].Tier != subscription.TierActive {
		t.Errorf("Tier = %s, want active", f.subRepo.Subs[f.user.ID].Tier)
	}
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mindspero/mindspero/internal/api/dto"
	"github.com/mindspero/mindspero/internal/domain/admin"
	"github.com/mindspero/mindspero/internal/domain/payment"
	"github.com/mindspero/mindspero/internal/domain/subscription"
)

func TestAdminHandler_Users(t *testing.T) {
	f := newFixture(t)
	free := f.register(t, "free@example.com")
	trial := f.register(t, "trial@example.com")
	if _, err := f.subs.StartTrial(t.Context(), trial.ID); err != nil {
		t.Fatalf("StartTrial() error = %v", err)
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantTotal  int
	}{
		{"all by default", "", http.StatusOK, 2},
		{"trial", "?status=trial", http.StatusOK, 1},
		{"free", "?status=free", http.StatusOK, 1},
		{"unknown status", "?status=vip", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodGet, "/admin/users"+tt.query, free.ID, nil, "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp dto.AdminUsersResponse
			decode(t, rr, &resp)
			if resp.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", resp.Total, tt.wantTotal)
			}
		})
	}
}

func TestAdminHandler_Stats(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "free@example.com")

	rr := f.do(t, http.MethodGet, "/admin/stats/users", u.ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("users status = %d, want 200", rr.Code)
	}
	var stats admin.UserStats
	decode(t, rr, &stats)
	if stats.TotalUsers != 1 || stats.SubscribedUsers != 0 {
		t.Errorf("stats = %+v", stats)
	}

	rr = f.do(t, http.MethodGet, "/admin/stats/revenue/monthly?month=2025-13", u.ID, nil, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d, want 400", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/admin/stats/revenue/monthly?month=2025-01", u.ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Errorf("month status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	for _, path := range []string{"/admin/stats/revenue", "/admin/payments"} {
		if rr := f.do(t, http.MethodGet, path, u.ID, nil, ""); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestAdminHandler_ManageSubscription(t *testing.T) {
	f := newFixture(t)
	adminUser := f.register(t, "admin@example.com")
	u := f.register(t, "student@example.com")
	base := "/admin/users/" + u.ID + "/subscription/"

	status := func(t *testing.T, rr *httptest.ResponseRecorder) subscription.Status {
		t.Helper()
		var st subscription.Status
		decode(t, rr, &st)
		return st
	}

	rr := f.doJSON(t, http.MethodPost, base+"activate", adminUser.ID, dto.ActivateSubscriptionRequest{Plan: "weekly"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown plan status = %d, want 400", rr.Code)
	}
	rr = f.doJSON(t, http.MethodPost, "/admin/users/ghost/subscription/activate", adminUser.ID, dto.ActivateSubscriptionRequest{Plan: "monthly"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rr.Code)
	}

	rr = f.doJSON(t, http.MethodPost, base+"bonus", adminUser.ID, dto.GrantBonusRequest{Days: 5})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bonus on free status = %d, want 422", rr.Code)
	}

	rr = f.doJSON(t, http.MethodPost, base+"activate", adminUser.ID, dto.ActivateSubscriptionRequest{Plan: "monthly"})
	if rr.Code != http.StatusOK {
		t.Fatalf("activate status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	st := status(t, rr)
	if st.CurrentTier != subscription.TierActive || st.DaysRemaining == nil || *st.DaysRemaining != 30 {
		t.Errorf("after activate tier = %s, days = %v", st.CurrentTier, st.DaysRemaining)
	}
	if len(f.payments.Payments) != 0 {
		t.Error("manual activation recorded a payment")
	}

	rr = f.doJSON(t, http.MethodPost, base+"bonus", adminUser.ID, dto.GrantBonusRequest{Days: 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("bonus status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if st := status(t, rr); *st.DaysRemaining != 35 {
		t.Errorf("after bonus days = %d, want 35", *st.DaysRemaining)
	}

	rr = f.do(t, http.MethodPost, base+"deactivate", adminUser.ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if st := status(t, rr); st.Subscription.Tier != subscription.TierCancelled {
		t.Errorf("stored tier = %s, want cancelled", st.Subscription.Tier)
	}

	rr = f.do(t, http.MethodPost, base+"deactivate", adminUser.ID, nil, "")
	if rr.Code != http.StatusConflict {
		t.Errorf("second deactivate status = %d, want 409", rr.Code)
	}
}

func TestAdminHandler_UsersAndPayments(t *testing.T) {
	f := newFixture(t)
	adminUser := f.register(t, "admin@example.com")
	u := f.register(t, "payer@example.com")
	doc := f.upload(t, u.ID)

	for _, ref := range []string{"ref-1", "ref-2"} {
		if err := f.payments.Create(t.Context(), &payment.Payment{
			ID: ref, UserID: u.ID, Reference: ref, Plan: "monthly", AmountMinor: 2499, Currency: "USD", PaidAt: epoch,
		}); err != nil {
			t.Fatalf("Create payment error = %v", err)
		}
	}

	rr := f.do(t, http.MethodGet, "/admin/users/"+u.ID+"/payments", adminUser.ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("payments status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var payments []payment.Payment
	decode(t, rr, &payments)
	if len(payments) != 2 {
		t.Errorf("payments = %d, want 2", len(payments))
	}
	if rr := f.do(t, http.MethodGet, "/admin/users/"+adminUser.ID+"/payments", adminUser.ID, nil, ""); rr.Code != http.StatusOK {
		t.Errorf("empty payments status = %d, want 200", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/admin/stats/growth", adminUser.ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("growth status = %d, want 200", rr.Code)
	}
	var growth admin.Growth
	decode(t, rr, &growth)
	if growth.TotalUsers != 2 || len(growth.ByMonth) != 1 || growth.ByMonth[0].Signups != 2 {
		t.Errorf("growth = %+v", growth)
	}

	rr = f.do(t, http.MethodDelete, "/admin/users/"+adminUser.ID, adminUser.ID, nil, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("self delete status = %d, want 400", rr.Code)
	}

	rr = f.do(t, http.MethodDelete, "/admin/users/"+u.ID, adminUser.ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if _, ok := f.store.Objects[doc.StorageKey]; ok {
		t.Error("deleted user's upload left in storage")
	}
	rr = f.do(t, http.MethodDelete, "/admin/users/"+u.ID, adminUser.ID, nil, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", rr.Code)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mindspero/mindspero/internal/api/middleware"
	"github.com/mindspero/mindspero/internal/auth"
	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/validator"
	"github.com/mindspero/mindspero/internal/services"
	"github.com/mindspero/mindspero/internal/storage"
	"github.com/mindspero/mindspero/internal/testutil"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

const testUserHeader = "X-Test-User"

type fixture struct {
	cfg      *config.Config
	clock    *clock.Fixed
	store    *testutil.MockStore
	users    *services.UserService
	subs     *services.SubscriptionService
	docs     *services.DocumentService
	billing  *services.BillingService
	router   chi.Router
	payments *testutil.MockPaymentRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := testutil.NewTestLogger()
	clk := clock.NewFixed(epoch)

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test", MaxUploadBytes: 1 << 20},
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: time.Hour,
			BCryptCost:         4,
			AdminEmails:        []string{"admin@example.com"},
		},
		Billing: config.BillingConfig{
			TrialDays:     30,
			BonusDays:     30,
			Currency:      "USD",
			WebhookSecret: "whsec_test",
			Monthly:       config.Plan{Name: "monthly", PeriodDays: 30, AmountMinor: 2499, Currency: "USD"},
			Yearly:        config.Plan{Name: "yearly", PeriodDays: 365, AmountMinor: 24999, Currency: "USD"},
		},
	}

	userRepo := testutil.NewMockUserRepository()
	subRepo := testutil.NewMockSubscriptionRepository()
	docRepo := testutil.NewMockDocumentRepository()
	payments := testutil.NewMockPaymentRepository()
	store := testutil.NewMockStore()

	subs := services.NewSubscriptionService(subRepo, clk, cfg.Billing.TrialDays, log)
	users := services.NewUserService(userRepo, subRepo, clk, cfg.Auth, log)
	docs := services.NewDocumentService(docRepo, store, clk, log)
	gate := services.NewGateService(subs, docRepo, clk, log)
	billing := services.NewBillingService(cfg.Billing, subs, payments, userRepo, clk, log)
	adminSvc := services.NewAdminService(userRepo, subRepo, docRepo, payments, clk, log)
	accounts := services.NewAccountService(users, docs, log)
	val := validator.New()

	authH := NewAuthHandler(users, accounts, gate, cfg, clk, log, val)
	docH := NewDocumentHandler(docs, gate, store, cfg.Server.MaxUploadBytes, log)
	subH := NewSubscriptionHandler(subs, gate, log)
	billH := NewBillingHandler(billing, gate, cfg.Billing, log)
	adminH := NewAdminHandler(adminSvc, accounts, subs, cfg.Billing, val, log)

	r := chi.NewRouter()
	r.Post("/auth/register", authH.Register)
	r.Post("/auth/login", authH.Login)
	r.Post("/auth/refresh", authH.RefreshToken)
	r.Post("/billing/webhook", billH.Webhook)
	r.Group(func(r chi.Router) {
		r.Use(testIdentity)
		r.Get("/auth/me", authH.Me)
		r.Patch("/auth/me", authH.UpdateProfile)
		r.Delete("/auth/me", authH.DeleteAccount)
		r.Get("/billing/plans", billH.Plans)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Post("/{id}/retry", docH.Retry)
			r.Get("/{id}/summary", docH.Summary)
			r.Get("/{id}/audio", docH.Audio)
			r.Post("/{id}/audio", docH.GenerateAudio)
			r.Get("/{id}/entitlements", docH.Entitlements)
		})
		r.Get("/subscription", subH.Get)
		r.Post("/subscription/trial", subH.StartTrial)
		r.Post("/subscription/cancel", subH.Cancel)
		r.Get("/admin/users", adminH.Users)
		r.Get("/admin/stats/users", adminH.UserStats)
		r.Get("/admin/stats/revenue", adminH.Revenue)
		r.Get("/admin/stats/revenue/monthly", adminH.MonthlyRevenue)
		r.Get("/admin/payments", adminH.Payments)
		r.Get("/admin/stats/growth", adminH.Growth)
		r.Delete("/admin/users/{id}", adminH.DeleteUser)
		r.Get("/admin/users/{id}/payments", adminH.UserPayments)
		r.Post("/admin/users/{id}/subscription/activate", adminH.ActivateSubscription)
		r.Post("/admin/users/{id}/subscription/deactivate", adminH.DeactivateSubscription)
		r.Post("/admin/users/{id}/subscription/bonus", adminH.GrantBonus)
	})

	return &fixture{
		cfg:      cfg,
		clock:    clk,
		store:    store,
		users:    users,
		subs:     subs,
		docs:     docs,
		billing:  billing,
		router:   r,
		payments: payments,
	}
}

// testIdentity stands in for the JWT middleware
func testIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(testUserHeader); id != "" {
			r = r.WithContext(middleware.WithIdentity(r.Context(), auth.Identity{UserID: id, Role: user.RoleUser}))
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fixture) register(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), email, "correct-horse", "")
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return u
}

func (f *fixture) do(t *testing.T, method, path, userID string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) doJSON(t *testing.T, method, path, userID string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
	}
	return f.do(t, method, path, userID, body, "application/json")
}

// upload creates a document directly through the service
func (f *fixture) upload(t *testing.T, ownerID string) *document.Document {
	t.Helper()
	content := "%PDF-1.4 test"
	doc, err := f.docs.Create(context.Background(), document.Upload{
		OwnerID:     ownerID,
		DisplayName: "notes.pdf",
		SizeBytes:   int64(len(content)),
		Content:     strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return doc
}

// summarize walks a document to summarized with a stored summary
func (f *fixture) summarize(t *testing.T, doc *document.Document, text string) {
	t.Helper()
	ctx := context.Background()
	key := storage.SummaryKey(doc.ID)
	if err := f.store.Put(ctx, key, strings.NewReader(text), storage.ContentTypeMarkdown); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := f.docs.Advance(ctx, doc.ID, document.StageSummarizing, ""); err != nil {
		t.Fatalf("Advance(summarizing) error = %v", err)
	}
	if _, err := f.docs.Advance(ctx, doc.ID, document.StageSummarized, key); err != nil {
		t.Fatalf("Advance(summarized) error = %v", err)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return env
}

func multipartFile(t *testing.T, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write(content)
	mw.Close()
	return buf.Bytes(), mw.FormDataContentType()
}

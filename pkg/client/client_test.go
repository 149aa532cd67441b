package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": status < 400, "data": data})
}

func TestClient_LoginSetsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			writeEnvelope(w, http.StatusOK, AuthResponse{AccessToken: "tok", User: &User{ID: "u-1", Email: "a@example.com"}})
		case "/api/v1/subscription":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			days := 30
			writeEnvelope(w, http.StatusOK, Subscription{Tier: "trial", CurrentTier: "trial", DaysRemaining: &days})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"})
	resp, err := c.Login(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", resp.User.ID)
	assert.Equal(t, "tok", c.GetToken())

	sub, err := c.Subscription().Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "trial", sub.CurrentTier)
	require.NotNil(t, sub.DaysRemaining)
	assert.Equal(t, 30, *sub.DaysRemaining)
}

func TestClient_DeniedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"success":false,"error":{"code":"TRIAL_EXPIRED","message":"Your free trial has ended"}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Token: "tok"})
	_, err := c.Documents().GenerateAudio(context.Background(), "doc-1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "TRIAL_EXPIRED", apiErr.Code)
	assert.True(t, apiErr.IsDenied())
	assert.True(t, apiErr.IsForbidden())
}

func TestClient_UploadAndDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/documents":
			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			body, _ := io.ReadAll(file)
			writeEnvelope(w, http.StatusCreated, Document{ID: "doc-1", DisplayName: header.Filename, SizeBytes: int64(len(body)), Stage: StageUploaded})
		case r.URL.Path == "/api/v1/documents/doc-1/audio":
			assert.Equal(t, "true", r.URL.Query().Get("download"))
			w.Header().Set("Content-Type", "audio/mpeg")
			io.WriteString(w, "ID3")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Token: "tok"})
	doc, err := c.Documents().Upload(context.Background(), "notes.pdf", bytes.NewReader([]byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", doc.DisplayName)
	assert.Equal(t, int64(8), doc.SizeBytes)

	var buf bytes.Buffer
	n, err := c.Documents().DownloadAudio(context.Background(), "doc-1", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "ID3", buf.String())
}

func TestClient_AdminManagement(t *testing.T) {
	gotBodies := map[string]map[string]interface{}{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			var body map[string]interface{}
			if json.NewDecoder(r.Body).Decode(&body) == nil {
				gotBodies[r.Method+" "+r.URL.Path] = body
			}
		}
		days := 30
		switch r.Method + " " + r.URL.Path {
		case "POST /api/v1/admin/users/u-2/subscription/activate",
			"POST /api/v1/admin/users/u-2/subscription/bonus",
			"POST /api/v1/admin/users/u-2/subscription/deactivate":
			writeEnvelope(w, http.StatusOK, SubscriptionStatus{Subscription: &Subscription{Tier: "active"}, CurrentTier: "active", DaysRemaining: &days})
		case "GET /api/v1/admin/users/u-2/payments":
			writeEnvelope(w, http.StatusOK, []Payment{{Reference: "ref-1", AmountMinor: 2499}})
		case "DELETE /api/v1/admin/users/u-2":
			writeEnvelope(w, http.StatusOK, nil)
		case "GET /api/v1/admin/stats/growth":
			writeEnvelope(w, http.StatusOK, Growth{TotalUsers: 4, SubscribedUsers: 1, ByMonth: []SignupMonth{{Month: "2025-01", Signups: 4}}})
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"success":false,"error":{"code":"NOT_FOUND","message":"User not found"}}`)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	admin := NewClient(Config{BaseURL: srv.URL, Token: "tok"}).Admin()

	st, err := admin.ActivateSubscription(ctx, "u-2", "monthly")
	require.NoError(t, err)
	assert.Equal(t, "active", st.CurrentTier)
	assert.Equal(t, "monthly", gotBodies["POST /api/v1/admin/users/u-2/subscription/activate"]["plan"])

	_, err = admin.GrantBonus(ctx, "u-2", 7)
	require.NoError(t, err)
	assert.EqualValues(t, 7, gotBodies["POST /api/v1/admin/users/u-2/subscription/bonus"]["days"])

	_, err = admin.DeactivateSubscription(ctx, "u-2")
	require.NoError(t, err)

	payments, err := admin.UserPayments(ctx, "u-2")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "ref-1", payments[0].Reference)

	growth, err := admin.Growth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, growth.TotalUsers)
	require.Len(t, growth.ByMonth, 1)

	require.NoError(t, admin.DeleteUser(ctx, "u-2"))

	err = admin.DeleteUser(ctx, "ghost")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_AccountLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/auth/me":
			name := body["full_name"]
			writeEnvelope(w, http.StatusOK, User{ID: "u-1", FullName: &name})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/auth/me":
			if body["password"] != "secret" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"success":false,"error":{"code":"UNAUTHORIZED","message":"Invalid email or password"}}`)
				return
			}
			writeEnvelope(w, http.StatusOK, nil)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(Config{BaseURL: srv.URL, Token: "tok"})

	u, err := c.UpdateProfile(ctx, "Ada")
	require.NoError(t, err)
	require.NotNil(t, u.FullName)
	assert.Equal(t, "Ada", *u.FullName)

	require.Error(t, c.DeleteAccount(ctx, "wrong"))
	assert.Equal(t, "tok", c.GetToken())

	require.NoError(t, c.DeleteAccount(ctx, "secret"))
	assert.Empty(t, c.GetToken())
}

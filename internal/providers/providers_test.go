package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mindspero/mindspero/internal/config"
	apperrors "github.com/mindspero/mindspero/internal/pkg/errors"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"photosynthesis", 0, "photosynthesis"},
		{"photosynthesis", 5, "photo"},
		{"short", 10, "short"},
		{"café au lait", 4, "caf"},
	}

	for _, tt := range tests {
		got := truncate(tt.in, tt.limit)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) split a rune", tt.in, tt.limit)
		}
	}
}

func TestStripMarkdown(t *testing.T) {
	got := stripMarkdown("## Mitosis\n**Prophase** and `metaphase`")
	if strings.ContainsAny(got, "#*`") {
		t.Errorf("stripMarkdown left markup: %q", got)
	}
}

func TestLooksLikePDF(t *testing.T) {
	if !LooksLikePDF([]byte("%PDF-1.7\n")) {
		t.Error("PDF header not recognised")
	}
	if LooksLikePDF([]byte("PK\x03\x04")) {
		t.Error("zip accepted as PDF")
	}
}

func TestPDFText_RejectsGarbage(t *testing.T) {
	if _, err := (PDFText{}).Extract(context.Background(), strings.NewReader("not a pdf")); err == nil {
		t.Error("Extract() should fail on non-PDF input")
	}
}

func TestPDFText_SizeLimit(t *testing.T) {
	_, err := (PDFText{MaxBytes: 4}).Extract(context.Background(), strings.NewReader("%PDF-1.7"))
	if err == nil || !strings.Contains(err.Error(), "larger than") {
		t.Errorf("Extract() error = %v, want size error", err)
	}
}

func TestGeminiSummarize(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{
			name:   "joins candidate parts",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"## Cells\n"},{"text":"Review: what is ATP?"}]}}]}`,
			want:   "## Cells\nReview: what is ATP?",
		},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantErr: true},
		{name: "blank text", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, wantErr: true},
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":{"message":"quota"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotKey string
			var gotReq geminiRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotKey = r.Header.Get("X-Goog-Api-Key")
				_ = json.NewDecoder(r.Body).Decode(&gotReq)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGemini(config.AIConfig{GeminiAPIKey: "k", GeminiModel: "gemini-test", MaxInputChars: 10})
			g.baseURL = srv.URL

			got, err := g.Summarize(context.Background(), "mitochondria are the powerhouse")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Summarize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
			if tt.status != http.StatusOK && !apperrors.IsCode(err, apperrors.ErrCodeProviderAPI) {
				t.Errorf("Summarize() error = %v, want %s", err, apperrors.ErrCodeProviderAPI)
			}
			if gotPath != "/gemini-test:generateContent" || gotKey != "k" {
				t.Errorf("request path %q key %q", gotPath, gotKey)
			}
			if len(gotReq.Contents) != 1 || gotReq.Contents[0].Parts[0].Text != "mitochondr" {
				t.Errorf("input not truncated to MaxInputChars: %+v", gotReq.Contents)
			}
		})
	}
}

package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mindspero/mindspero/pkg/client"
	"github.com/spf13/viper"
)

func TestFormatStage(t *testing.T) {
	tests := []struct {
		stage string
		want  string
	}{
		{client.StageUploaded, "[1/4] uploaded"},
		{client.StageSummarized, "[3/4] summarized"},
		{client.StageAudioReady, "[4/4] audio ready"},
		{client.StageFailed, "[-] failed"},
		{"something_new", "something_new"},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			if got := formatStage(tt.stage); got != tt.want {
				t.Errorf("formatStage(%q) = %q, want %q", tt.stage, got, tt.want)
			}
		})
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		minor    int64
		currency string
		want     string
	}{
		{"monthly plan", 2499, "ngn", "24.99 NGN"},
		{"whole amount", 10000, "NGN", "100.00 NGN"},
		{"under one unit", 5, "", "0.05"},
		{"negative", -150, "usd", "-1.50 USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMoney(tt.minor, tt.currency); got != tt.want {
				t.Errorf("formatMoney() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDaysAndTier(t *testing.T) {
	one, thirty := 1, 30

	if got := formatDays(nil); got != "-" {
		t.Errorf("formatDays(nil) = %q", got)
	}
	if got := formatDays(&one); got != "1 day" {
		t.Errorf("formatDays(1) = %q", got)
	}
	if got := formatDays(&thirty); got != "30 days" {
		t.Errorf("formatDays(30) = %q", got)
	}

	if got := formatTier("trial", "trial"); got != "trial" {
		t.Errorf("formatTier(same) = %q", got)
	}
	if got := formatTier("trial", "trial_expired"); got != "trial_expired (stored: trial)" {
		t.Errorf("formatTier(lapsed) = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("ID", "STAGE")
	table.writer = &buf
	table.AddRow("doc-1", "summarized")
	table.Render()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, separator and one row, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "--") {
		t.Errorf("second line should be the separator, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "doc-1") || !strings.Contains(lines[2], "summarized") {
		t.Errorf("row not rendered: %q", lines[2])
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{"http url", "server_url", "http://localhost:8080", false},
		{"https url", "server_url", "https://api.mindspero.app", false},
		{"missing scheme", "server_url", "localhost:8080", true},
		{"ftp scheme", "server_url", "ftp://host", true},
		{"json output", "output", "json", false},
		{"bad output", "output", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := settableKeys[tt.key](tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate %s=%q error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret("abc"); got != "****" {
		t.Errorf("maskSecret(short) = %q", got)
	}
	if got := maskSecret("eyJhbGciOi.token.sig1234"); got != "****1234" {
		t.Errorf("maskSecret(long) = %q", got)
	}
}

func TestAccessTokenExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		expiresAt string
		want      bool
	}{
		{"unknown", "", false},
		{"garbage", "tomorrow", false},
		{"well ahead", now.Add(time.Hour).Format(time.RFC3339), false},
		{"inside the minute", now.Add(30 * time.Second).Format(time.RFC3339), true},
		{"past", now.Add(-time.Hour).Format(time.RFC3339), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Set("auth.expires_at", tt.expiresAt)
			defer viper.Set("auth.expires_at", "")
			if got := accessTokenExpired(now); got != tt.want {
				t.Errorf("accessTokenExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

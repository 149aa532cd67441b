package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "info", Format: "json", Service: "mindspero-api", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.WithFields(map[string]interface{}{"document_id": "doc-1"}).Info("Document stage advanced")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "Document stage advanced" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["document_id"] != "doc-1" {
		t.Errorf("document_id = %v", entry["document_id"])
	}
	if entry["service"] != "mindspero-api" {
		t.Errorf("service = %v", entry["service"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "error", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info written at error level: %q", buf.String())
	}
	if log.Enabled("info") {
		t.Error("info should be disabled")
	}
	if !log.Enabled("error") {
		t.Error("error should be enabled")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	log, err := New(Config{Level: "info", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Info("written to file")
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file = %q", data)
	}
}

func TestNew_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "api.log")
	if _, err := New(Config{Level: "info", OutputPath: path}); err == nil {
		t.Fatal("New() expected an error for a path in a missing directory")
	}

	log, err := New(Config{Level: "info", OutputPath: "stdout"})
	if err != nil {
		t.Fatalf("New(stdout) error = %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("Close() on stdout error = %v", err)
	}
}

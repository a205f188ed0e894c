package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "json", Service: "glaucomaml", Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("encoded", zap.Int("columns", 19))
	_ = log.Sync()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if entry["msg"] != "encoded" || entry["service"] != "glaucomaml" || entry["columns"].(float64) != 19 {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "chatty", Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("hidden")
	log.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info level, got %q", buf.String())
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(Options{Format: "console", File: path, Writer: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Info("to file")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("log file missing entry: %q", data)
	}
}

func TestContextLogger(t *testing.T) {
	if C(context.Background()) != zap.L() {
		t.Fatal("expected global logger without context value")
	}
	l := zap.NewNop().With(zap.String("request_id", "abc"))
	if C(WithContext(context.Background(), l)) != l {
		t.Fatal("expected stored logger")
	}
}

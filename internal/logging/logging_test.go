package logging

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func keepDefault(t *testing.T) {
	t.Helper()
	prev, out, flags := slog.Default(), log.Writer(), log.Flags()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(out)
		log.SetFlags(flags)
	})
}

func TestSetupJSON(t *testing.T) {
	keepDefault(t)

	var buf bytes.Buffer
	logger, closer, err := setup(Config{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer closer.Close()

	logger.Info("media.skipped")
	logger.Warn("media.slow", "name", "video.mp4")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want only the warning: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line is not json: %v", err)
	}
	if rec["msg"] != "media.slow" || rec["name"] != "video.mp4" {
		t.Fatalf("record = %v", rec)
	}
}

func TestSetupRoutesStdLog(t *testing.T) {
	keepDefault(t)

	var buf bytes.Buffer
	if _, _, err := setup(Config{Format: "text"}, &buf); err != nil {
		t.Fatalf("setup() error = %v", err)
	}

	log.Printf("[media] request name=%s", "video.mp4")
	if !strings.Contains(buf.String(), "[media] request name=video.mp4") {
		t.Fatalf("log.Printf output missing: %q", buf.String())
	}
}

func TestSetupWritesRotatedFile(t *testing.T) {
	keepDefault(t)

	path := filepath.Join(t.TempDir(), "mediastream.log")
	var buf bytes.Buffer
	logger, closer, err := setup(Config{Level: "debug", File: path, MaxSizeMB: 1}, &buf)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	logger.Debug("streaming.copy.done", "bytes", 100)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "streaming.copy.done") || !strings.Contains(buf.String(), "streaming.copy.done") {
		t.Fatalf("record missing: file=%q stdout=%q", data, buf.String())
	}
}

func TestSetupRejectsUnknownValues(t *testing.T) {
	if _, _, err := setup(Config{Level: "chatty"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("setup() error = nil for unknown level")
	}
	if _, _, err := setup(Config{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("setup() error = nil for unknown format")
	}
}

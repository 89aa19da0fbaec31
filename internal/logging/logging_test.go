package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtree.log")
	if err := Init(Config{Level: "debug", Format: "json", OutputPath: path}); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Config{}) })

	Named("tree").Debug("loaded", zap.String("path", "a/b"))
	_ = Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("expected a json line, got %q: %v", data, err)
	}
	if entry["msg"] != "loaded" || entry["logger"] != "tree" || entry["path"] != "a/b" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestSetLevelFiltersEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtree.log")
	if err := Init(Config{Level: "debug", OutputPath: path}); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Config{}) })

	SetLevel("warn")
	SetLevel("not-a-level")
	L().Info("hidden")
	L().Warn("shown")
	_ = Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Fatalf("unexpected log content %q", data)
	}
}

func TestDefaultLoggerIsSilent(t *testing.T) {
	if err := Init(Config{}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if L().Core().Enabled(-1) {
		t.Fatalf("expected no-op logger")
	}
	S().Infow("ignored", "k", "v")
}

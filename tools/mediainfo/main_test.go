package main

import (
	"os"
	"path/filepath"
	"testing"

	"mediastream/internal/mediastore"
)

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), make([]byte, 1000), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	store, err := mediastore.NewDirStore(dir)
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	got := describe(store, "clip.mp4", "bytes=900-2000")
	if got.Error != "" || got.Size != 1000 {
		t.Fatalf("describe() = %+v", got)
	}
	if got.ContentRange != "bytes 900-999/1000" {
		t.Fatalf("ContentRange = %q", got.ContentRange)
	}

	if got := describe(store, "missing.mp4", ""); got.Error == "" {
		t.Fatalf("describe(missing) error empty")
	}
	if got := describe(store, "clip.mp4", "bytes=5000-"); got.Error == "" {
		t.Fatalf("describe(unsatisfiable) error empty")
	}
}

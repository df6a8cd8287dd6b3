// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package discovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, events <-chan Event, want EventKind, filename string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == want && ev.Filename == filename {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s on %q", want, filename)
		}
	}
}

func TestWatcherReportsFileCreatedAndDeleted(t *testing.T) {
	dir := t.TempDir()
	w, err := New(nil, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	events := make(chan Event, 16)
	w.Start(func(ev Event) { events <- ev })

	path := filepath.Join(dir, "detector.so")
	if err := os.WriteFile(path, []byte("fake"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	waitFor(t, events, FileCreated, "detector.so")

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	waitFor(t, events, FileDeleted, "detector.so")
}

func TestNewSkipsMissingDirectoryWithoutFailing(t *testing.T) {
	w, err := New(nil, "/nonexistent/path/for/discovery/test")
	if err != nil {
		t.Fatalf("New should tolerate a missing directory, got: %v", err)
	}
	defer w.Close()

	if len(w.dirs) != 0 {
		t.Fatalf("expected no watched directories, got %v", w.dirs)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(nil, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scripting

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hook.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestCallReturnsComputedValue(t *testing.T) {
	path := writeScript(t, `function score(x, y) return x + y end`)
	e := New()
	defer e.Close()

	if err := e.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := e.Call("score", 3, 4)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != float64(7) {
		t.Fatalf("Call returned %v, want 7", got)
	}
}

func TestCallUnknownHookFails(t *testing.T) {
	path := writeScript(t, `function score() return 1 end`)
	e := New()
	defer e.Close()
	if err := e.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := e.Call("missing"); err == nil {
		t.Fatal("expected an error calling an undefined hook")
	}
}

func TestLoadPropagatesSyntaxError(t *testing.T) {
	path := writeScript(t, `function broken( return end`)
	e := New()
	defer e.Close()

	if err := e.Load(path); err == nil {
		t.Fatal("expected a syntax error")
	}
}

func TestCallPropagatesRuntimeError(t *testing.T) {
	path := writeScript(t, `function boom() error("kaboom") end`)
	e := New()
	defer e.Close()
	if err := e.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := e.Call("boom"); err == nil {
		t.Fatal("expected the script's error() to propagate")
	}
}

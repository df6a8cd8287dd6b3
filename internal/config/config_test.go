// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func makePrefixes(t *testing.T) (system, user string) {
	t.Helper()
	system = t.TempDir()
	user = t.TempDir()
	dirs := []string{
		filepath.Join(system, "lib", moduleDirName),
		filepath.Join(user, "lib"),
		filepath.Join(user, "data"),
		filepath.Join(user, "scripts"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("MkdirAll(%s): %v", d, err)
		}
	}
	return system, user
}

func TestResolveSucceedsWithAllFourDirectories(t *testing.T) {
	system, user := makePrefixes(t)

	env, err := Resolve(system, user)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if env.UserPrefix != user {
		t.Fatalf("UserPrefix = %q, want %q", env.UserPrefix, user)
	}
}

func TestResolveFailsWhenADirectoryIsMissing(t *testing.T) {
	system, user := makePrefixes(t)
	if err := os.RemoveAll(filepath.Join(user, "scripts")); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}

	if _, err := Resolve(system, user); err == nil {
		t.Fatal("expected an error when user_prefix/scripts is missing")
	}
}

func TestResolveFailsWhenPathIsAFileNotADirectory(t *testing.T) {
	system, user := makePrefixes(t)
	scriptsDir := filepath.Join(user, "scripts")
	if err := os.RemoveAll(scriptsDir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if err := os.WriteFile(scriptsDir, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Resolve(system, user); err == nil {
		t.Fatal("expected an error when scripts path is a regular file")
	}
}

func TestLoadAppliesDefaultsWithoutEnv(t *testing.T) {
	cfg := Load()
	if cfg.RPCAddr == "" || cfg.FramePeriodMs == 0 {
		t.Fatalf("expected non-zero defaults, got %+v", cfg)
	}
}

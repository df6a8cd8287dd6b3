// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package obslog builds the process-wide structured logger every other
// package is handed a child of. It is the one place daemon startup
// decides format (console for a dev run at a terminal, JSON for a
// supervised service) and level.
package obslog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger's level and output shape. The zero value is
// info-level JSON, the right default for a supervised daemon.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Empty means info.
	Level string
	// Console switches to a human-readable console encoder instead of
	// JSON, for interactive use (e.g. cmd/visiond run with -console).
	Console bool
}

// New builds a *zap.Logger from cfg. The returned logger's Sync should be
// called once at shutdown; callers are expected to ignore Sync's error on
// a closed stdout/stderr, the usual zap caveat on Linux.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Console {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level)
	return zap.New(core, zap.AddCaller()), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("obslog: unknown level %q", s)
	}
}

// Component returns a child logger tagged with name, the shape every
// subsystem (scheduler, rpc, diag, moduleloader) receives at construction
// so a log line's origin is never ambiguous.
func Component(log *zap.Logger, name string) *zap.Logger {
	return log.Named(name)
}

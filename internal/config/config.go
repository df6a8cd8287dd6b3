// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config resolves the system/user prefix pair into the four
// filesystem locations every module constructor is handed (system
// modules, user modules, user data, user scripts), and loads the
// daemon's own settings from a .env file plus the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"vision.io/x/vision/module"
)

// Config is the daemon's own settings, read once at startup.
type Config struct {
	SystemPrefix string
	UserPrefix   string

	FramePeriodMs uint32
	RPCAddr       string
	DiagDevice    string
	DiagBaud      int
	LogLevel      string
	LogConsole    bool
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// Load reads a .env file if present (silently ignored if absent, the same
// tolerance the teacher's own config loader applies) and populates Config
// from the environment, falling back to sensible daemon defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		SystemPrefix:  getEnv("VISION_SYSTEM_PREFIX", "/usr"),
		UserPrefix:    getEnv("VISION_USER_PREFIX", "/var/lib/vision"),
		FramePeriodMs: 40,
		RPCAddr:       getEnv("VISION_RPC_ADDR", ":9450"),
		DiagDevice:    getEnv("VISION_DIAG_DEVICE", ""),
		DiagBaud:      115200,
		LogLevel:      getEnv("VISION_LOG_LEVEL", "info"),
		LogConsole:    getEnv("VISION_LOG_CONSOLE", "") != "",
	}
}

// moduleDirName is the subdirectory tinkervision-compatible system
// modules are installed under, beneath {system_prefix}/lib.
const moduleDirName = "tinkervision"

// Resolve validates systemPrefix/userPrefix and returns the
// module.Environment every plug-in's constructor is handed. It fails
// unless all four required subdirectories exist: {system_prefix}/lib/
// tinkervision, {user_prefix}/lib, {user_prefix}/data and
// {user_prefix}/scripts — set_user_prefix's documented rejection
// condition.
func Resolve(systemPrefix, userPrefix string) (module.Environment, error) {
	env := module.Environment{
		SystemModulesPath: filepath.Join(systemPrefix, "lib", moduleDirName),
		UserModulesPath:   filepath.Join(userPrefix, "lib"),
		UserDataPath:      filepath.Join(userPrefix, "data"),
		UserScriptsPath:   filepath.Join(userPrefix, "scripts"),
		UserPrefix:        userPrefix,
	}

	for _, dir := range []string{env.SystemModulesPath, env.UserModulesPath, env.UserDataPath, env.UserScriptsPath} {
		info, err := os.Stat(dir)
		if err != nil {
			return module.Environment{}, fmt.Errorf("config: required directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return module.Environment{}, fmt.Errorf("config: %s exists but is not a directory", dir)
		}
	}

	return env, nil
}

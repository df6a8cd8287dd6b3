// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package moduleloader

import "errors"

// Sentinel errors distinguishing the stages a candidate library can fail
// at, wrapped with errors.Is-compatible %w so callers (and the scheduler's
// C-ABI-shaped result codes) can tell dlopen from dlsym from construction
// failure, the way the original error model names each stage separately.
var (
	ErrOpenFailed          = errors.New("moduleloader: failed to open library")
	ErrSymbolLookupFailed  = errors.New("moduleloader: required symbol not found")
	ErrConstructionFailed  = errors.New("moduleloader: module construction failed")
	ErrInitialisationFailed = errors.New("moduleloader: module initialisation failed")
	ErrNotFound            = errors.New("moduleloader: no candidate with that name")
	ErrNotLoaded           = errors.New("moduleloader: module id not loaded")
	ErrAlreadyDestroyed    = errors.New("moduleloader: module already destroyed")
)

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package module defines the plug-in contract vision modules implement, and
// ModuleWrapper, the runtime shell the scheduler actually drives.
package module

import "vision.io/x/vision/imagebuf"

// ScriptEvaluator is the narrow capability a module may use to run a user
// script as part of its own processing (for example a scoring function).
// It is satisfied by the scripting package's Lua-backed evaluator, kept as
// an interface here so module has no dependency on any one script engine.
type ScriptEvaluator interface {
	Load(path string) error
	Call(hook string, args ...interface{}) (interface{}, error)
	Close() error
}

// Environment is handed to a module's constructor (and to Init), giving it
// the filesystem locations and optional script evaluator it needs; modules
// never reach outside this surface to discover where they're allowed to
// read or write.
type Environment struct {
	SystemModulesPath string
	UserModulesPath   string
	UserDataPath      string
	UserScriptsPath   string
	UserPrefix        string

	// Scripting is nil unless a script evaluator was configured for this
	// process; modules that don't use scripting must tolerate nil here.
	Scripting ScriptEvaluator
}

// Module is what every vision plug-in must implement. A module is
// constructed once, Init'd once, ticked by ModuleWrapper.Execute on every
// frame it's due, and Stopped once before being discarded.
type Module interface {
	// InputFormat reports the colour space the module wants frames
	// converted to before Execute; None means the module doesn't need
	// image data at all (parameter-only or result-only modules).
	InputFormat() imagebuf.ColorSpace

	// ProducesResult reports whether GetResult/HasResult are meaningful.
	ProducesResult() bool

	// OutputsImage reports whether Execute is ever called with a non-nil
	// output buffer.
	OutputsImage() bool

	// Init performs one-shot setup; parameters may only be registered here
	// or from the constructor, never afterwards.
	Init(env *Environment) error

	// GetOutputImageHeader is queried immediately before each Execute call
	// when OutputsImage is true, so the wrapper can size the output buffer
	// the module is about to fill.
	GetOutputImageHeader(input imagebuf.Header) imagebuf.Header

	// Execute processes one frame. outHeader/outData are non-nil iff
	// OutputsImage is true; inData must not be retained past the call.
	Execute(inHeader imagebuf.Header, inData []byte, outHeader imagebuf.Header, outData []byte) error

	// HasResult reports whether GetResult has a fresh result waiting.
	HasResult() bool

	// GetResult returns the module's latest result; only meaningful when
	// HasResult returns true.
	GetResult() Result

	// Parameters returns every parameter the module declared from its
	// constructor or Init; the wrapper merges these with its own reserved
	// parameters (period, result_timeout, callbacks_enabled).
	Parameters() []*Parameter

	// Stop releases anything Init acquired. Called exactly once, before
	// the module is destroyed.
	Stop() error
}

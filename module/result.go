// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package module

import "vision.io/x/vision/internal/limits"

// Result is the structured output a module can produce alongside (or
// instead of) an output image: typically a detection box plus a label.
// -1 means "unset" for every numeric field; an empty String means "unset"
// for the string field.
type Result struct {
	X, Y, Width, Height int32
	String              string
}

// UnsetResult is the zero value with every numeric field explicitly unset,
// the value a fresh ModuleWrapper's result slot starts at.
var UnsetResult = Result{X: -1, Y: -1, Width: -1, Height: -1}

// Valid reports whether r carries anything a caller should act on: either
// a positive x coordinate or a non-empty string.
func (r Result) Valid() bool {
	return r.X > 0 || r.String != ""
}

// Truncated returns r with String clipped to the wire limit (29 bytes plus
// an implicit NUL on the C ABI side), the shape every result crossing the
// callback boundary must have.
func (r Result) Truncated() Result {
	if len(r.String) > limits.MaxStringLen {
		r.String = r.String[:limits.MaxStringLen]
	}
	return r
}

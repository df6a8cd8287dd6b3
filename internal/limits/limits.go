// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package limits holds the small set of fixed-size constants shared across
// the runtime: string buffer sizes and the low-latency deadline grains.
package limits

import "time"

const (
	// StringSize is TV_STRING_SIZE: the fixed buffer size for parameter
	// names, module names and result strings, including the NUL terminator.
	StringSize = 30

	// MaxStringLen is the longest string payload that fits in StringSize
	// once the NUL terminator is accounted for.
	MaxStringLen = StringSize - 1
)

const (
	// Grains is GRAINS: the number of polling steps a low-latency request
	// is given before it degrades to a buffered result.
	Grains = 20

	// DelayGrain is DELAY_GRAIN: the spin-wait step between polls.
	DelayGrain = 5 * time.Millisecond

	// Deadline is the total grace window, Grains * DelayGrain.
	Deadline = time.Duration(Grains) * DelayGrain
)

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package module

// Tag is a bitset of post-execute effects the scheduler applies to a
// ModuleWrapper. Multiple tags may be set at once.
type Tag uint8

const (
	// TagNone carries no effect.
	TagNone Tag = 0
	// TagExecAndRemove makes the wrapper Removable and releases one camera
	// user immediately after its next successful execute.
	TagExecAndRemove Tag = 1 << (iota - 1)
	// TagExecAndDisable disables the wrapper and releases one camera user
	// immediately after its next successful execute.
	TagExecAndDisable
	// TagRemovable marks the wrapper for garbage collection at the next
	// remove_if sweep. Monotonic: once set it is never cleared.
	TagRemovable
	// TagSequential reserves callback dispatch to run off the executor
	// thread instead of inline; not yet exercised by the scheduler.
	TagSequential
)

// Has reports whether t includes other.
func (t Tag) Has(other Tag) bool {
	return t&other != 0
}

// Set returns t with other added.
func (t Tag) Set(other Tag) Tag {
	return t | other
}

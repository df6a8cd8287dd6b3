// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package module

// ID identifies a loaded module. Public ids are assigned in [1,127];
// internal ids (reserved for things like the idle no-op module) live in
// [128, 32767]. 0 means "no module"; -1 means invalid.
type ID int16

// NoID and InvalidID are the two reserved sentinel values; every other ID
// names a real, loaded module.
const (
	NoID      ID = 0
	InvalidID ID = -1
)

// PublicRangeStart and PublicRangeEnd bound ids handed out to ordinary
// loaded modules.
const (
	PublicRangeStart ID = 1
	PublicRangeEnd   ID = 127
)

// InternalRangeStart and InternalRangeEnd bound ids reserved for modules
// the runtime loads itself, such as the idle holder.
const (
	InternalRangeStart ID = 128
	InternalRangeEnd   ID = 32767
)

// Valid reports whether id is a usable module id, excluding the sentinels.
func (id ID) Valid() bool {
	return id >= PublicRangeStart && id <= InternalRangeEnd
}

// Public reports whether id is in the range handed to ordinary modules.
func (id ID) Public() bool {
	return id >= PublicRangeStart && id <= PublicRangeEnd
}

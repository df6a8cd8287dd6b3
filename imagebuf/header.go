// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imagebuf

import "time"

// Header describes an image without owning its pixel storage.
type Header struct {
	Width     uint16
	Height    uint16
	ByteSize  uintptr
	Timestamp time.Time
	Format    ColorSpace
}

// Valid reports whether h could back a usable image: non-zero area,
// non-zero storage, and a known colour space.
func (h Header) Valid() bool {
	return h.Width > 0 && h.Height > 0 && h.ByteSize > 0 && h.Format.Known()
}

// Pixels returns the pixel count, width*height.
func (h Header) Pixels() int {
	return int(h.Width) * int(h.Height)
}

// Equal reports whether two headers describe the same frame shape, ignoring
// the timestamp. Used by the conversion cache to decide whether a cached
// converter output is still valid for the current frame.
func (h Header) Equal(o Header) bool {
	return h.Width == o.Width && h.Height == o.Height && h.Format == o.Format
}

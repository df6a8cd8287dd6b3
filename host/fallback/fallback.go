// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fallback implements the solid-colour stand-in image CameraControl
// substitutes when the real device transiently fails to deliver a frame, so
// the scheduler loop stays deterministic even under sustained hardware
// trouble.
package fallback

import (
	"time"

	"vision.io/x/vision/imagebuf"
)

// Width and Height are the fallback image's fixed dimensions: an owned,
// solid-colour 640x480 BGR buffer.
const (
	Width  = 640
	Height = 480
)

// Color is the fallback's solid fill, a dim blue-grey chosen only to be
// visually distinguishable from a live feed; modules never need to
// interpret its content.
var Color = [3]byte{64, 48, 32} // B, G, R

// New builds an owned, pre-filled BGR888 buffer of the fixed fallback
// shape. It never fails and never needs a Close.
func New() *imagebuf.Buffer {
	h := imagebuf.Header{
		Width:    Width,
		Height:   Height,
		ByteSize: uintptr(Width) * uintptr(Height) * 3,
		Format:   imagebuf.BGR888,
	}
	b := imagebuf.New(0)
	_ = b.Allocate(h, false)
	fill(b)
	return b
}

// Refresh re-stamps the buffer's timestamp to now, leaving pixel content
// untouched, used each time CameraControl substitutes it for a failed grab.
func Refresh(b *imagebuf.Buffer) {
	h := b.Header()
	h.Timestamp = time.Now()
	b.SetTimestamp(h)
}

func fill(b *imagebuf.Buffer) {
	data := b.Data()
	for i := 0; i+2 < len(data); i += 3 {
		data[i] = Color[0]
		data[i+1] = Color[1]
		data[i+2] = Color[2]
	}
}

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package convert memoises per-frame colour-space conversions behind a
// fixed (source, destination) dispatch table, the way the runtime's other
// lookup tables (colorspace byte-per-pixel, camerareg's openers) are
// populated once at init instead of built through a class hierarchy.
package convert

import (
	"fmt"
	"sync"

	"vision.io/x/vision/imagebuf"
)

// ErrNoConverter is returned by GetFrame for a (src,dst) pair the
// fixed table has no entry for.
var ErrNoConverter = fmt.Errorf("convert: no converter registered for this pair")

type pairKey struct {
	src imagebuf.ColorSpace
	dst imagebuf.ColorSpace
}

// converterFunc fills dst (freshly shaped to match src's dimensions in
// dst's colour space) from src. Implementations never retain src or dst
// beyond the call.
type converterFunc func(src *imagebuf.Buffer, dst *imagebuf.Buffer) error

// table is the fixed set of supported conversions. Populated once at
// package init; the cache never grows it at runtime.
var table = map[pairKey]converterFunc{
	{imagebuf.YUYV, imagebuf.YV12}:   yuyvToYV12,
	{imagebuf.YUYV, imagebuf.BGR888}: yuyvToBGR888,
	{imagebuf.YUYV, imagebuf.RGB888}: yuyvToRGB888,
	{imagebuf.YV12, imagebuf.BGR888}: yv12ToBGR888,
	{imagebuf.YV12, imagebuf.RGB888}: yv12ToRGB888,
	{imagebuf.BGR888, imagebuf.RGB888}: bgr888ToRGB888,
	{imagebuf.RGB888, imagebuf.BGR888}: rgb888ToBGR888,
	{imagebuf.BGR888, imagebuf.YV12}:   bgr888ToYV12,
	{imagebuf.BGR888, imagebuf.YUYV}:   bgr888ToYUYV,
	{imagebuf.BGR888, imagebuf.Gray}:   bgr888ToGray,
	{imagebuf.Gray, imagebuf.BGR888}:   grayToBGR888,
}

// Supported reports whether the table has a converter from src to dst.
func Supported(src, dst imagebuf.ColorSpace) bool {
	_, ok := table[pairKey{src, dst}]
	return ok
}

type converterState struct {
	out        *imagebuf.Buffer
	frameStamp imagebuf.Header // the source header this output was last computed from
	computed   bool
}

// Cache memoises the conversions of a single current frame, keyed by
// destination colour space. SetFrame resets it for each new cycle; a
// single frame consumed by many modules in the same cycle pays for each
// required conversion at most once.
type Cache struct {
	mu         sync.Mutex
	frame      *imagebuf.Buffer
	converters map[imagebuf.ColorSpace]*converterState
}

// NewCache returns an empty Cache; call SetFrame before GetFrame/GetHeader.
func NewCache() *Cache {
	return &Cache{converters: make(map[imagebuf.ColorSpace]*converterState)}
}

// SetFrame installs frame as the current frame. It does not copy frame's
// pixels; frame must remain valid and unchanged until the next SetFrame.
// Every previously cached conversion is implicitly invalidated: the next
// GetFrame for a given destination re-runs its converter because the
// source header timestamp will have changed.
func (c *Cache) SetFrame(frame *imagebuf.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frame
}

// GetFrame returns the current frame converted to dst. If dst already
// matches the frame's native format, the frame itself is returned
// (borrowed, not copied). Otherwise the converter registered for
// (frame.Format, dst) runs, unless its cached output is already current
// for this frame. Returns ErrNoConverter if no such converter exists.
func (c *Cache) GetFrame(dst imagebuf.ColorSpace) (*imagebuf.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame == nil {
		return nil, fmt.Errorf("convert: no frame installed")
	}
	src := c.frame.Header().Format
	if src == dst {
		return c.frame, nil
	}

	fn, ok := table[pairKey{src, dst}]
	if !ok {
		return nil, ErrNoConverter
	}

	st, ok := c.converters[dst]
	if !ok {
		st = &converterState{out: imagebuf.New(0)}
		c.converters[dst] = st
	}
	cur := c.frame.Header()
	if st.computed && st.frameStamp.Equal(cur) && st.frameStamp.Timestamp.Equal(cur.Timestamp) {
		return st.out, nil
	}
	if err := fn(c.frame, st.out); err != nil {
		return nil, err
	}
	h := st.out.Header()
	h.Timestamp = c.frame.Header().Timestamp
	st.out.SetTimestamp(h)
	st.frameStamp = c.frame.Header()
	st.computed = true
	return st.out, nil
}

// GetHeader reports the header a GetFrame(dst) call would produce, without
// running any converter. The second return is false if dst is unreachable
// from the current frame's format.
func (c *Cache) GetHeader(dst imagebuf.ColorSpace) (imagebuf.Header, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame == nil {
		return imagebuf.Header{}, false
	}
	src := c.frame.Header().Format
	if src == dst {
		return c.frame.Header(), true
	}
	if !Supported(src, dst) {
		return imagebuf.Header{}, false
	}
	h := c.frame.Header()
	h.Format = dst
	h.ByteSize = uintptr(float64(h.Pixels()) * dst.BytesPerPixel())
	return h, true
}

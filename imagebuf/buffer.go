// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package imagebuf is the leaf of the runtime: one typed region of pixel
// bytes plus the header describing it, with an explicit owned/borrowed
// storage discipline so the rest of the kernel can pass frames into module
// plug-ins without ambiguity about who frees what.
package imagebuf

import (
	"fmt"
)

// Buffer is a header plus pixel storage in exactly one ownership state:
// owned (Buffer is responsible for the backing array) or borrowed (the
// backing array lives elsewhere and Buffer must never retain it past the
// call that handed it over).
type Buffer struct {
	header   Header
	data     []byte
	borrowed bool
	maxBytes uintptr
}

// New returns an empty, unallocated Buffer. maxBytes bounds every future
// Allocate call; zero means unbounded.
func New(maxBytes uintptr) *Buffer {
	return &Buffer{maxBytes: maxBytes}
}

// Allocate reshapes the buffer to h. If borrowed is false the buffer owns
// freshly sized storage (previous owned storage is dropped and replaced
// only when the shape actually changed, so repeated allocations of the same
// size are free). If borrowed is true, Allocate only prepares the header;
// callers must follow with SetFrom to attach storage.
//
// Allocate fails with an error wrapping ErrOutOfRange if h.ByteSize exceeds
// the configured maximum.
func (b *Buffer) Allocate(h Header, borrowed bool) error {
	if b.maxBytes != 0 && h.ByteSize > b.maxBytes {
		return fmt.Errorf("imagebuf: %w: %d bytes exceeds limit %d", ErrOutOfRange, h.ByteSize, b.maxBytes)
	}
	changed := b.header.ByteSize != h.ByteSize || b.header.Format != h.Format
	b.header = h
	if borrowed {
		b.data = nil
		b.borrowed = true
		return nil
	}
	b.borrowed = false
	if changed || len(b.data) != int(h.ByteSize) {
		b.data = make([]byte, h.ByteSize)
	}
	return nil
}

// SetFrom replaces this buffer's content with a borrow of other's pixels.
// Any previously owned storage is dropped. other must remain valid for as
// long as this buffer is read.
func (b *Buffer) SetFrom(other *Buffer) {
	b.header = other.header
	b.data = other.data
	b.borrowed = true
}

// CopyFrom deep-copies len(src) bytes into this buffer's own storage. It is
// a programming error to call CopyFrom on a borrowed buffer, or with a
// length that doesn't match the current header's ByteSize; both panic, the
// same way the spec treats this as an assertion rather than a reportable
// error.
func (b *Buffer) CopyFrom(src []byte) {
	if b.borrowed {
		panic("imagebuf: CopyFrom on a borrowed buffer")
	}
	if uintptr(len(src)) != b.header.ByteSize {
		panic(fmt.Sprintf("imagebuf: CopyFrom length %d does not match header bytesize %d", len(src), b.header.ByteSize))
	}
	if len(b.data) != len(src) {
		b.data = make([]byte, len(src))
	}
	copy(b.data, src)
}

// Header returns the current header.
func (b *Buffer) Header() Header {
	return b.header
}

// Data returns the current pixel bytes. The slice must not be retained
// beyond the caller's current use: for a borrowed buffer it aliases
// storage owned elsewhere.
func (b *Buffer) Data() []byte {
	return b.data
}

// Owned reports whether this buffer frees its own pixel storage.
func (b *Buffer) Owned() bool {
	return !b.borrowed
}

// Release drops the buffer's reference to its storage and resets the
// header to the zero value. For an owned buffer this lets the backing
// array be garbage collected immediately rather than waiting for the next
// Allocate.
func (b *Buffer) Release() {
	b.header = Header{}
	b.data = nil
	b.borrowed = false
}

// SetTimestamp stamps the header's timestamp without touching the rest of
// the shape, used by fallback.Refresh and the conversion cache to re-stamp
// a buffer whose pixels are reused.
func (b *Buffer) SetTimestamp(h Header) {
	b.header.Timestamp = h.Timestamp
}

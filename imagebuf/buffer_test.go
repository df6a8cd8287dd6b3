// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imagebuf

import (
	"testing"
	"time"
)

func TestBufferAllocateOwned(t *testing.T) {
	b := New(0)
	h := Header{Width: 4, Height: 2, ByteSize: 8 * 3, Format: BGR888}
	if err := b.Allocate(h, false); err != nil {
		t.Fatal(err)
	}
	if !b.Owned() {
		t.Fatal("expected owned storage")
	}
	if len(b.Data()) != int(h.ByteSize) {
		t.Fatalf("got %d bytes, want %d", len(b.Data()), h.ByteSize)
	}
	if !b.Header().Valid() {
		t.Fatal("expected a valid header")
	}
}

func TestBufferAllocateOutOfRange(t *testing.T) {
	b := New(16)
	h := Header{Width: 100, Height: 100, ByteSize: 30000, Format: RGB888}
	if err := b.Allocate(h, false); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}

func TestBufferSetFromBorrow(t *testing.T) {
	owner := New(0)
	h := Header{Width: 2, Height: 2, ByteSize: 12, Format: RGB888}
	if err := owner.Allocate(h, false); err != nil {
		t.Fatal(err)
	}
	copy(owner.Data(), []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})

	borrower := New(0)
	borrower.SetFrom(owner)
	if borrower.Owned() {
		t.Fatal("expected a borrowed buffer")
	}
	if len(borrower.Data()) != 12 || borrower.Data()[0] != 1 {
		t.Fatalf("unexpected borrowed data: %v", borrower.Data())
	}
}

func TestBufferCopyFromRequiresOwnedAndMatchingSize(t *testing.T) {
	b := New(0)
	h := Header{Width: 1, Height: 1, ByteSize: 3, Format: RGB888}
	if err := b.Allocate(h, false); err != nil {
		t.Fatal(err)
	}
	b.CopyFrom([]byte{9, 9, 9})
	if b.Data()[0] != 9 {
		t.Fatal("copy did not land")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on mismatched length")
		}
	}()
	b.CopyFrom([]byte{1, 2})
}

func TestBufferReleaseResetsHeader(t *testing.T) {
	b := New(0)
	h := Header{Width: 1, Height: 1, ByteSize: 1, Format: Gray, Timestamp: time.Now()}
	if err := b.Allocate(h, false); err != nil {
		t.Fatal(err)
	}
	b.Release()
	if b.Header().Valid() {
		t.Fatal("expected an invalid header after release")
	}
	if b.Data() != nil {
		t.Fatal("expected nil data after release")
	}
}

func TestHeaderEqualIgnoresTimestamp(t *testing.T) {
	a := Header{Width: 640, Height: 480, Format: BGR888, Timestamp: time.Now()}
	b := Header{Width: 640, Height: 480, Format: BGR888, Timestamp: time.Now().Add(time.Second)}
	if !a.Equal(b) {
		t.Fatal("expected headers to compare equal regardless of timestamp")
	}
}

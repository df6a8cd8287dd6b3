// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package diag

import (
	"bufio"
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := Frame{Op: OpGetResult, Payload: []byte{1, 2, 3, 4}}
	data, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	got, err := ReadFrame(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Op != f.Op || !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
}

func TestEncodeFramePayloadTooLarge(t *testing.T) {
	_, err := EncodeFrame(Frame{Op: OpPing, Payload: make([]byte, maxPayload+1)})
	if err != ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReadFrameDetectsCorruption(t *testing.T) {
	data, err := EncodeFrame(Frame{Op: OpPing, Payload: []byte{9, 9}})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	data[3] ^= 0xff // flip a payload bit without touching the checksum

	_, err = ReadFrame(bufio.NewReader(bytes.NewReader(data)))
	if err != ErrCRCMismatch {
		t.Fatalf("expected ErrCRCMismatch, got %v", err)
	}
}

func TestReadFrameRejectsBadSTX(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(bytes.NewReader([]byte{0x00, 0x00, 0x00})))
	if err == nil {
		t.Fatal("expected an error for a missing STX")
	}
}

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package camera defines the capability a concrete video-device backend
// must implement to be usable by CameraControl.
//
// Package camera doesn't implement any device itself; see host/v4l2 for a
// Video4Linux2-backed implementation and host/fallback for the solid-colour
// stand-in used while no real device is available.
package camera

import (
	"fmt"
	"io"

	"vision.io/x/vision/imagebuf"
)

// Device is the narrow capability the kernel consumes for a physical or
// virtual camera. Implementations are expected to also implement
// fmt.Stringer, returning something meaningful like "/dev/video0".
type Device interface {
	fmt.Stringer

	// ID returns the device's numeric identity, used by CameraControl's
	// preferred-device hint and by camerareg.
	ID() uint8

	// Open opens the device at its native resolution.
	Open() error

	// OpenSize is a best-effort request for a specific frame size. The
	// device either honours it exactly or fails; callers must re-check
	// FrameHeader() to confirm the negotiated size, since a backend that
	// can't express every width/height combination may round internally
	// before reporting what it actually settled on.
	OpenSize(width, height uint16) error

	// IsOpen reports whether the device is currently open. It is safe to
	// call at any time, including before Open.
	IsOpen() bool

	// Close is idempotent: closing an already-closed device is not an
	// error.
	Close() error

	// GetFrame fills dst with the current frame. The implementation may
	// hand dst a borrow of its own internal buffer (zero-copy) instead of
	// copying. On failure dst must be left untouched.
	GetFrame(dst *imagebuf.Buffer) error

	// FrameHeader reports the negotiated header. Only meaningful between
	// Open and Close.
	FrameHeader() imagebuf.Header

	// ImageFormat reports the device's native colour space. The kernel
	// never re-interprets it; it is the format tag GetFrame's output will
	// carry.
	ImageFormat() imagebuf.ColorSpace
}

// CloseNotifier is implemented by devices whose backing resource can vanish
// without a corresponding Close call (e.g. a USB device unplugged). The
// channel is closed exactly once, at or after the point the device became
// unusable.
type CloseNotifier interface {
	Gone() <-chan struct{}
}

var _ io.Closer = Device(nil)

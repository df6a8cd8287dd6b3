// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package v4l2

import (
	"errors"

	"vision.io/x/vision/conn/camera"
	"vision.io/x/vision/imagebuf"
)

// ErrUnsupported is returned by every Device method on non-Linux hosts;
// V4L2 is a Linux kernel API and has no portable equivalent.
var ErrUnsupported = errors.New("v4l2: not supported on this platform")

// Device is a stub on non-Linux platforms so the package still builds; it
// fails every operation with ErrUnsupported.
type Device struct {
	id uint8
}

// New returns a stub Device; it never succeeds at opening.
func New(id uint8, path string) *Device {
	return &Device{id: id}
}

func (d *Device) String() string                              { return "v4l2(unsupported)" }
func (d *Device) ID() uint8                                    { return d.id }
func (d *Device) Open() error                                  { return ErrUnsupported }
func (d *Device) OpenSize(width, height uint16) error          { return ErrUnsupported }
func (d *Device) IsOpen() bool                                 { return false }
func (d *Device) Close() error                                 { return nil }
func (d *Device) GetFrame(dst *imagebuf.Buffer) error           { return ErrUnsupported }
func (d *Device) FrameHeader() imagebuf.Header                 { return imagebuf.Header{} }
func (d *Device) ImageFormat() imagebuf.ColorSpace              { return imagebuf.Invalid }

var _ camera.Device = (*Device)(nil)

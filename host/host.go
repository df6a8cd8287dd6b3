// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package host wires the concrete camera backends this runtime ships with
// into camerareg. Calling host.Init() guarantees a baseline of included
// backends is registered, the way the teacher's host.Init() guarantees a
// baseline of host drivers is loaded before any device package is used.
package host

import (
	"fmt"
	"sync"

	"vision.io/x/vision/conn/camera"
	"vision.io/x/vision/conn/camera/camerareg"
	"vision.io/x/vision/host/fallback"
	"vision.io/x/vision/host/v4l2"
	"vision.io/x/vision/imagebuf"
)

// FallbackDeviceID is the reserved id under which the solid-colour fallback
// device is registered; it is never a real V4L2 node's id.
const FallbackDeviceID = 255

var once sync.Once

// Init registers the default backends exactly once and is safe to call
// from multiple goroutines or multiple times; subsequent calls are no-ops.
func Init() {
	once.Do(func() {
		for id := uint8(0); id < 8; id++ {
			id := id
			path := fmt.Sprintf("/dev/video%d", id)
			camerareg.MustRegister(id, path, func(id uint8) (camera.Device, error) {
				return v4l2.New(id, path), nil
			})
		}
		camerareg.MustRegister(FallbackDeviceID, "solid-colour fallback", func(id uint8) (camera.Device, error) {
			return newFallbackDevice(id), nil
		})
	})
}

// fallbackDevice adapts the always-available fallback image into the
// camera.Device capability, so CameraControl can treat "no real camera
// registered" the same way it treats any other backend.
type fallbackDevice struct {
	id   uint8
	open bool
	buf  *imagebuf.Buffer
}

func newFallbackDevice(id uint8) *fallbackDevice {
	return &fallbackDevice{id: id, buf: fallback.New()}
}

func (f *fallbackDevice) String() string { return "fallback" }
func (f *fallbackDevice) ID() uint8      { return f.id }
func (f *fallbackDevice) Open() error    { f.open = true; return nil }
func (f *fallbackDevice) OpenSize(w, h uint16) error {
	f.open = true
	return nil
}
func (f *fallbackDevice) IsOpen() bool { return f.open }
func (f *fallbackDevice) Close() error { f.open = false; return nil }
func (f *fallbackDevice) GetFrame(dst *imagebuf.Buffer) error {
	fallback.Refresh(f.buf)
	dst.SetFrom(f.buf)
	return nil
}
func (f *fallbackDevice) FrameHeader() imagebuf.Header     { return f.buf.Header() }
func (f *fallbackDevice) ImageFormat() imagebuf.ColorSpace { return f.buf.Header().Format }

var _ camera.Device = (*fallbackDevice)(nil)

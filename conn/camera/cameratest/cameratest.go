// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cameratest is meant to be used to test code that depends on
// camera.Device without real hardware, the way i2ctest and gpiotest let
// drivers be tested over a fake bus.
package cameratest

import (
	"errors"
	"sync"
	"time"

	"vision.io/x/vision/imagebuf"
)

// Playback implements camera.Device and plays back a queued sequence of
// frames (or failures). Once the queue is drained, GetFrame returns
// ErrExhausted so a test can assert it saw exactly the frames it expected.
type Playback struct {
	mu sync.Mutex

	id     uint8
	open   bool
	header imagebuf.Header
	frames []Frame

	openErr     error
	openSizeErr error
}

// Frame is one entry in a Playback's queue: either pixel bytes to hand back
// from GetFrame, or an error to fail it with.
type Frame struct {
	Header imagebuf.Header
	Data   []byte
	Err    error
}

// ErrExhausted is returned once a Playback's queued frames are used up.
var ErrExhausted = errors.New("cameratest: playback exhausted")

// NewPlayback returns a closed Playback device with the given id.
func NewPlayback(id uint8) *Playback {
	return &Playback{id: id}
}

// Queue appends a frame to be returned by successive GetFrame calls.
func (p *Playback) Queue(f Frame) *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
	return p
}

// QueueSolid queues n identical frames of the given shape and fill byte,
// useful for period/throughput tests that don't care about pixel content.
func (p *Playback) QueueSolid(n int, h imagebuf.Header, fill byte) *Playback {
	data := make([]byte, h.ByteSize)
	for i := range data {
		data[i] = fill
	}
	for i := 0; i < n; i++ {
		p.Queue(Frame{Header: h, Data: data})
	}
	return p
}

// FailOpen makes the next Open/OpenSize call fail with err.
func (p *Playback) FailOpen(err error) *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openErr = err
	return p
}

// FailOpenSize makes the next OpenSize call fail with err, independent of
// FailOpen, used to test the "negotiated size differs, revert" path.
func (p *Playback) FailOpenSize(err error) *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openSizeErr = err
	return p
}

func (p *Playback) String() string {
	return "cameratest.Playback"
}

// ID implements camera.Device.
func (p *Playback) ID() uint8 {
	return p.id
}

// Open implements camera.Device.
func (p *Playback) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		err := p.openErr
		p.openErr = nil
		return err
	}
	p.open = true
	return nil
}

// OpenSize implements camera.Device. The negotiated header always reports
// exactly the requested size unless FailOpenSize was armed, matching the
// "best effort, then verify" contract devices are expected to follow.
func (p *Playback) OpenSize(width, height uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openSizeErr != nil {
		err := p.openSizeErr
		p.openSizeErr = nil
		return err
	}
	if p.openErr != nil {
		err := p.openErr
		p.openErr = nil
		return err
	}
	p.open = true
	p.header.Width = width
	p.header.Height = height
	return nil
}

// IsOpen implements camera.Device.
func (p *Playback) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Close implements camera.Device; idempotent.
func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	return nil
}

// GetFrame implements camera.Device.
func (p *Playback) GetFrame(dst *imagebuf.Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return ErrExhausted
	}
	f := p.frames[0]
	p.frames = p.frames[1:]
	if f.Err != nil {
		return f.Err
	}
	h := f.Header
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}
	p.header = h
	if err := dst.Allocate(h, false); err != nil {
		return err
	}
	dst.CopyFrom(f.Data)
	return nil
}

// FrameHeader implements camera.Device.
func (p *Playback) FrameHeader() imagebuf.Header {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.header
}

// ImageFormat implements camera.Device.
func (p *Playback) ImageFormat() imagebuf.ColorSpace {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.header.Format
}

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cameractl owns the single active camera.Device on behalf of the
// scheduler, arbitrating concurrent users by reference count and
// substituting a solid-colour fallback image whenever the device
// transiently fails to deliver a frame.
package cameractl

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"vision.io/x/vision/conn/camera"
	"vision.io/x/vision/conn/camera/camerareg"
	"vision.io/x/vision/host/fallback"
	"vision.io/x/vision/imagebuf"
)

// ErrNoDeviceAvailable is returned when no registered camera, and not even
// the always-present fallback, could service a request. In practice this
// only happens if fallback construction itself panics, since the fallback
// never fails to open.
var ErrNoDeviceAvailable = errors.New("cameractl: no device available")

// Control is the single-slot owner of the active camera.Device. One Control
// exists per running scheduler. Every exported method is safe for
// concurrent use; a single mutex serializes all state transitions, the way
// the original design calls for a single camera_mutex.
type Control struct {
	mu sync.Mutex

	active      camera.Device
	preferredID *uint8
	usercount   uint32
	stopped     bool

	reqWidth  uint16
	reqHeight uint16

	fallback *imagebuf.Buffer
	latest   *imagebuf.Buffer

	log *zap.Logger
}

// New returns a Control with no active device and a ready fallback image.
// log may be nil, in which case logging is a no-op.
func New(log *zap.Logger) *Control {
	if log == nil {
		log = zap.NewNop()
	}
	return &Control{
		stopped:  true,
		fallback: fallback.New(),
		latest:   imagebuf.New(0),
		log:      log,
	}
}

// IsOpen reports whether a real device (not the fallback) is currently
// open.
func (c *Control) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Usercount returns the current reference count.
func (c *Control) Usercount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usercount
}

// IsAvailable reports whether some camera — the preferred one if set,
// else any registered device — can be opened right now. If a device is
// already open it is trivially available.
func (c *Control) IsAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return true
	}
	if c.preferredID != nil {
		return c.isIDAvailableLocked(*c.preferredID)
	}
	for _, id := range camerareg.Available() {
		if c.isIDAvailableLocked(id) {
			return true
		}
	}
	return false
}

// IsIDAvailable reports whether the device registered under id is already
// open, or can be opened and closed transiently without disturbing the
// currently active device or usercount.
func (c *Control) IsIDAvailable(id uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isIDAvailableLocked(id)
}

func (c *Control) isIDAvailableLocked(id uint8) bool {
	if c.active != nil && c.active.ID() == id {
		return true
	}
	dev, err := camerareg.Open(id)
	if err != nil {
		return false
	}
	if err := dev.Open(); err != nil {
		return false
	}
	dev.Close()
	return true
}

// Prefer only records id as the preferred device; it never opens anything.
func (c *Control) Prefer(id uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferredID = &id
}

// PreferredID returns the preferred device id and whether one was set.
func (c *Control) PreferredID() (uint8, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preferredID == nil {
		return 0, false
	}
	return *c.preferredID, true
}

// SwitchToPreferred makes id the preferred device and, if a device is
// currently open, swaps to it. If id cannot be opened, some other
// registered device is tried so that "is a camera open?" never flips from
// true to false as a side effect of a failed switch; if id is already the
// active device this is a no-op beyond recording the preference.
func (c *Control) SwitchToPreferred(id uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.ID() == id {
		c.preferredID = &id
		return nil
	}

	wasOpen := c.active != nil
	users := c.usercount
	width, height := c.reqWidth, c.reqHeight

	if c.active != nil {
		c.active.Close()
		c.active = nil
	}
	c.preferredID = &id

	if !wasOpen {
		return nil
	}

	if err := c.openLocked(id, width, height); err == nil {
		c.usercount = users
		return nil
	}

	for _, cand := range camerareg.Available() {
		if cand == id {
			continue
		}
		if err := c.openLocked(cand, width, height); err == nil {
			c.usercount = users
			c.log.Warn("switch_to_preferred fell back to another device",
				zap.Uint8("wanted", id), zap.Uint8("got", cand))
			return nil
		}
	}

	c.usercount = users
	c.log.Warn("switch_to_preferred could not keep any camera open", zap.Uint8("wanted", id))
	return errors.Errorf("cameractl: no device could be opened switching to %d", id)
}

// PreselectFramesize validates that (w,h) can be negotiated by the
// preferred or currently-registered device before any module relies on it.
// It only succeeds when no device is currently open; it opens transiently,
// checks the negotiated header matches exactly, and always closes again.
func (c *Control) PreselectFramesize(w, h uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return errors.New("cameractl: preselect_framesize requires the camera to be closed")
	}

	id, ok := c.pickIDLocked()
	if !ok {
		return ErrNoDeviceAvailable
	}

	dev, err := camerareg.Open(id)
	if err != nil {
		return err
	}
	if err := dev.OpenSize(w, h); err != nil {
		dev.Close()
		return err
	}
	hdr := dev.FrameHeader()
	dev.Close()
	if hdr.Width != w || hdr.Height != h {
		return errors.Errorf("cameractl: device negotiated %dx%d, wanted %dx%d", hdr.Width, hdr.Height, w, h)
	}
	c.reqWidth, c.reqHeight = w, h
	return nil
}

// Acquire opens the device if it is closed and adds n to the usercount
// (n defaults to 1 at call sites that pass 0). If opening fails the
// device, if any was partially opened, is closed again and the usercount
// is left unchanged.
func (c *Control) Acquire(n uint32) error {
	if n == 0 {
		n = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		id, ok := c.pickIDLocked()
		if !ok {
			return ErrNoDeviceAvailable
		}
		if err := c.openLocked(id, c.reqWidth, c.reqHeight); err != nil {
			return err
		}
	}
	c.usercount += n
	c.stopped = false
	return nil
}

// Release decrements the usercount, clamped at zero, and closes the device
// once it reaches zero.
func (c *Control) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.usercount > 0 {
		c.usercount--
	}
	if c.usercount == 0 && c.active != nil {
		c.active.Close()
		c.active = nil
	}
}

// UpdateFrame fills out with the latest frame. If the control was stopped
// it re-initializes first; if the live device fails to deliver a frame the
// always-valid fallback image is substituted instead, with its timestamp
// refreshed to now. It only fails if neither a live device nor the
// fallback could produce a frame, which in practice never happens.
func (c *Control) UpdateFrame(out *imagebuf.Buffer) error {
	c.mu.Lock()
	if c.stopped {
		if c.active == nil {
			if id, ok := c.pickIDLocked(); ok {
				c.openLocked(id, c.reqWidth, c.reqHeight)
			}
		}
		c.stopped = false
	}
	dev := c.active
	c.mu.Unlock()

	if dev != nil {
		if err := dev.GetFrame(c.latest); err == nil {
			out.SetFrom(c.latest)
			return nil
		}
		c.log.Debug("camera grab failed, substituting fallback", zap.Uint8("id", dev.ID()))
	}

	fallback.Refresh(c.fallback)
	out.SetFrom(c.fallback)
	return nil
}

// Stop marks the control stopped; the next UpdateFrame call re-initializes
// the device. It does not close the device or change the usercount.
func (c *Control) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

// ReleaseAll marks the control stopped, closes the active device if one is
// open, and drops the usercount to zero regardless of how many users were
// still holding it — the forced equivalent of release_all in the original
// design. Idempotent.
func (c *Control) ReleaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.usercount = 0
	if c.active != nil {
		c.active.Close()
		c.active = nil
	}
}

// pickIDLocked resolves which device id to try: the preferred one if set,
// else the first available registered id. Caller must hold mu.
func (c *Control) pickIDLocked() (uint8, bool) {
	if c.preferredID != nil {
		return *c.preferredID, true
	}
	ids := camerareg.Available()
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// openLocked opens the device registered under id, at (w,h) if both are
// non-zero, and installs it as the active device on success. Caller must
// hold mu.
func (c *Control) openLocked(id uint8, w, h uint16) error {
	dev, err := camerareg.Open(id)
	if err != nil {
		return err
	}
	if w != 0 && h != 0 {
		err = dev.OpenSize(w, h)
	} else {
		err = dev.Open()
	}
	if err != nil {
		dev.Close()
		return err
	}
	c.active = dev
	return nil
}

// Elapsed returns the time since ts using the monotonic clock carried
// inside time.Time, mirroring how update_frame stamps frames with a
// monotonic timestamp rather than wall-clock time.
func Elapsed(ts time.Time) time.Duration {
	return time.Since(ts)
}

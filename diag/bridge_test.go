// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package diag

import (
	"encoding/binary"
	"testing"

	"vision.io/x/vision/cameractl"
	"vision.io/x/vision/conn/camera"
	"vision.io/x/vision/conn/camera/camerareg"
	"vision.io/x/vision/conn/camera/cameratest"
	"vision.io/x/vision/convert"
	"vision.io/x/vision/imagebuf"
	"vision.io/x/vision/internal/resultcode"
	"vision.io/x/vision/module"
	"vision.io/x/vision/moduleloader"
	"vision.io/x/vision/scheduler"
)

var nextTestCameraID uint8 = 100

func newTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	id := nextTestCameraID
	nextTestCameraID++
	h := imagebuf.Header{Width: 2, Height: 2, ByteSize: 12, Format: imagebuf.BGR888}
	p := cameratest.NewPlayback(id).QueueSolid(100, h, 0x10)
	if err := camerareg.Register(id, "test", func(uint8) (camera.Device, error) { return p, nil }); err != nil {
		t.Fatalf("Register(%d): %v", id, err)
	}
	cam := cameractl.New(nil)
	cam.Prefer(id)
	ld := moduleloader.New("", "", module.Environment{}, nil)
	return scheduler.New(cam, convert.NewCache(), ld, 10, nil)
}

func TestBridgePingReturnsOK(t *testing.T) {
	b := NewBridge(newTestScheduler(t))
	reply := b.Dispatch(Frame{Op: OpPing})
	if code := resultcode.Code(binary.BigEndian.Uint16(reply.Payload)); code != resultcode.OK {
		t.Fatalf("expected OK, got %v", code)
	}
}

func TestBridgeModuleIsActiveUnknownID(t *testing.T) {
	b := NewBridge(newTestScheduler(t))
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(int16(99)))

	reply := b.Dispatch(Frame{Op: OpModuleIsActive, Payload: payload})
	code := resultcode.Code(binary.BigEndian.Uint16(reply.Payload[:2]))
	if code != resultcode.InvalidID {
		t.Fatalf("expected InvalidID, got %v", code)
	}
}

func TestBridgeGetResultShortPayloadIsInvalidArgument(t *testing.T) {
	b := NewBridge(newTestScheduler(t))
	reply := b.Dispatch(Frame{Op: OpGetResult, Payload: []byte{1}})
	code := resultcode.Code(binary.BigEndian.Uint16(reply.Payload[:2]))
	if code != resultcode.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", code)
	}
}

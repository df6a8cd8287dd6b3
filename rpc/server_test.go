// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rpc

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"

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

var nextTestCameraID uint8 = 80

func newTestServer(t *testing.T) (*httptest.Server, *scheduler.Scheduler) {
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
	sched := scheduler.New(cam, convert.NewCache(), ld, 10, nil)

	srv := NewServer(sched, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, sched
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func call(t *testing.T, conn *websocket.Conn, req Request) Response {
	t.Helper()
	data, err := cbor.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp Response
	if err := cbor.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestCameraAvailableRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := call(t, conn, Request{ReqID: "1", Op: OpCameraAvailable})
	if resp.ReqID != "1" || resp.Code != resultcode.OK || !resp.Bool {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestModuleStartUnknownIDReturnsInvalidID(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := call(t, conn, Request{ReqID: "x", Op: OpModuleStart, ModuleID: 99})
	if resp.Code != resultcode.InvalidID {
		t.Fatalf("expected InvalidID, got %v", resp.Code)
	}
}

func TestStartIdleThenModuleIsActive(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	idResp := call(t, conn, Request{ReqID: "a", Op: OpStartIdle})
	if idResp.Code != resultcode.OK {
		t.Fatalf("start_idle: %v", idResp.Code)
	}

	active := call(t, conn, Request{ReqID: "b", Op: OpModuleIsActive, ModuleID: idResp.ModuleID})
	if active.Code != resultcode.OK || !active.Bool {
		t.Fatalf("module_is_active: %v %v", active.Code, active.Bool)
	}
}

func TestSetDefaultCallbackRejectsSecondClientWhileHeld(t *testing.T) {
	ts, sched := newTestServer(t)
	_ = sched
	connA := dial(t, ts)
	connB := dial(t, ts)

	respA := call(t, connA, Request{ReqID: "a", Op: OpSetDefaultCallback})
	if respA.Code != resultcode.OK {
		t.Fatalf("first set_default_callback: %v", respA.Code)
	}
	respB := call(t, connB, Request{ReqID: "b", Op: OpSetDefaultCallback})
	if respB.Code != resultcode.GlobalCallbackActive {
		t.Fatalf("expected GlobalCallbackActive for second client, got %v", respB.Code)
	}
}

func TestModuleRestartOverWebsocket(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	idResp := call(t, conn, Request{ReqID: "a", Op: OpStartIdle})
	if idResp.Code != resultcode.OK {
		t.Fatalf("start_idle: %v", idResp.Code)
	}

	resp := call(t, conn, Request{ReqID: "b", Op: OpModuleRestart, ModuleID: idResp.ModuleID})
	if resp.Code != resultcode.OK {
		t.Fatalf("module_restart: %v", resp.Code)
	}

	unknown := call(t, conn, Request{ReqID: "c", Op: OpModuleRestart, ModuleID: 999})
	if unknown.Code != resultcode.InvalidID {
		t.Fatalf("expected InvalidID for unknown module, got %v", unknown.Code)
	}
}

func TestLatencyTestOverWebsocket(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := call(t, conn, Request{ReqID: "lt", Op: OpLatencyTest})
	if resp.Code != resultcode.OK {
		t.Fatalf("latency_test: %v", resp.Code)
	}
}

func TestMalformedFrameDoesNotCrashConnection(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0x00, 0x01}); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	resp := call(t, conn, Request{ReqID: "after-garbage", Op: OpCameraAvailable})
	if resp.ReqID != "after-garbage" || resp.Code != resultcode.OK {
		t.Fatalf("connection should survive a malformed frame, got: %+v", resp)
	}
}

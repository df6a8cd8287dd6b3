// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scheduler

import (
	"testing"
	"time"

	"vision.io/x/vision/cameractl"
	"vision.io/x/vision/conn/camera"
	"vision.io/x/vision/conn/camera/camerareg"
	"vision.io/x/vision/conn/camera/cameratest"
	"vision.io/x/vision/convert"
	"vision.io/x/vision/imagebuf"
	"vision.io/x/vision/internal/resultcode"
	"vision.io/x/vision/module"
	"vision.io/x/vision/moduleloader"
)

var nextTestCameraID uint8 = 50

func registerPlayback(t *testing.T) uint8 {
	t.Helper()
	id := nextTestCameraID
	nextTestCameraID++
	h := imagebuf.Header{Width: 4, Height: 2, ByteSize: 24, Format: imagebuf.BGR888}
	p := cameratest.NewPlayback(id).QueueSolid(1000, h, 0x20)
	if err := camerareg.Register(id, "test", func(uint8) (camera.Device, error) { return p, nil }); err != nil {
		t.Fatalf("Register(%d): %v", id, err)
	}
	return id
}

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	cam := cameractl.New(nil)
	cam.Prefer(registerPlayback(t))
	ld := moduleloader.New("", "", module.Environment{}, nil)
	return New(cam, convert.NewCache(), ld, 10, nil)
}

type fakeModule struct {
	inputFormat imagebuf.ColorSpace
	produces    bool
	hasResult   bool
	result      module.Result
}

func (f *fakeModule) InputFormat() imagebuf.ColorSpace { return f.inputFormat }
func (f *fakeModule) ProducesResult() bool             { return f.produces }
func (f *fakeModule) OutputsImage() bool               { return false }
func (f *fakeModule) Init(*module.Environment) error   { return nil }
func (f *fakeModule) GetOutputImageHeader(imagebuf.Header) imagebuf.Header {
	return imagebuf.Header{}
}
func (f *fakeModule) Execute(imagebuf.Header, []byte, imagebuf.Header, []byte) error { return nil }
func (f *fakeModule) HasResult() bool                                               { return f.hasResult }
func (f *fakeModule) GetResult() module.Result                                      { return f.result }
func (f *fakeModule) Parameters() []*module.Parameter                               { return nil }
func (f *fakeModule) Stop() error                                                   { return nil }

// insertFake registers a wrapper around f directly into the scheduler's
// module table, bypassing the loader the way a library-backed load would
// populate it, so tests can exercise scheduler behaviour without a real
// plug-in on disk.
func insertFake(t *testing.T, s *Scheduler, id module.ID, f module.Module) *module.Wrapper {
	t.Helper()
	w := module.NewWrapper(id, "fake", f)
	w.MarkInitialised()
	if err := s.modules.Insert(id, w, s.dealloc(id)); err != nil {
		t.Fatalf("Insert(%d): %v", id, err)
	}
	s.mu.Lock()
	s.names[id] = "fake"
	s.mu.Unlock()
	return w
}

func TestStartIdleIsIdempotent(t *testing.T) {
	s := newScheduler(t)
	id1, code1 := s.StartIdle()
	if code1 != resultcode.OK {
		t.Fatalf("StartIdle: %v", code1)
	}
	id2, code2 := s.StartIdle()
	if code2 != resultcode.OK || id1 != id2 {
		t.Fatalf("second StartIdle should be a no-op returning the same id, got %d/%d %v", id1, id2, code2)
	}
}

func TestModuleStartAcquiresCameraAndStopReleases(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(1)
	insertFake(t, s, id, &fakeModule{})

	if code := s.ModuleStart(id); code != resultcode.OK {
		t.Fatalf("ModuleStart: %v", code)
	}
	if !s.camera.IsOpen() {
		t.Fatal("expected camera open after ModuleStart")
	}
	active, code := s.ModuleIsActive(id)
	if code != resultcode.OK || !active {
		t.Fatalf("expected module active, got active=%v code=%v", active, code)
	}

	if code := s.ModuleStop(id); code != resultcode.OK {
		t.Fatalf("ModuleStop: %v", code)
	}
	if s.camera.IsOpen() {
		t.Fatal("expected camera closed after last user released")
	}
}

func TestModuleStartUnknownIDFails(t *testing.T) {
	s := newScheduler(t)
	if code := s.ModuleStart(module.ID(99)); code != resultcode.InvalidID {
		t.Fatalf("expected InvalidID, got %v", code)
	}
}

func TestModuleRemoveTearsDownBetweenCalls(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(2)
	insertFake(t, s, id, &fakeModule{})
	_ = s.ModuleStart(id)

	if code := s.ModuleRemove(id); code != resultcode.OK {
		t.Fatalf("ModuleRemove: %v", code)
	}
	if s.modules.Managed(id) {
		t.Fatal("expected module removed immediately")
	}
	if s.camera.IsOpen() {
		t.Fatal("expected camera released when an active module is removed")
	}
	if _, code := s.ModuleGetName(id); code != resultcode.InvalidID {
		t.Fatalf("expected name lookup to fail after removal, got %v", code)
	}
}

func TestSetGetNumericParameter(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(3)
	insertFake(t, s, id, &fakeModule{})

	if code := s.SetNumericParameter(id, module.ParamPeriod, 5); code != resultcode.OK {
		t.Fatalf("SetNumericParameter: %v", code)
	}
	v, code := s.GetNumericParameter(id, module.ParamPeriod)
	if code != resultcode.OK || v != 5 {
		t.Fatalf("GetNumericParameter: v=%d code=%v", v, code)
	}
}

func TestGetNumericParameterUnknownNameFails(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(4)
	insertFake(t, s, id, &fakeModule{})

	if _, code := s.GetNumericParameter(id, "nonexistent"); code != resultcode.ModuleNoSuchParameter {
		t.Fatalf("expected ModuleNoSuchParameter, got %v", code)
	}
}

func TestGetResultReportsResultNotAvailableBeforeFirstExecute(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(5)
	insertFake(t, s, id, &fakeModule{produces: true})

	if _, code := s.GetResult(id); code != resultcode.ResultNotAvailable {
		t.Fatalf("expected ResultNotAvailable, got %v", code)
	}
}

func TestDefaultCallbackFiresOnceForFreshResult(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(6)
	f := &fakeModule{produces: true, hasResult: true, result: module.Result{X: 1, String: "hit"}}
	w := insertFake(t, s, id, f)
	_ = w.Enable()

	calls := 0
	s.SetDefaultCallback(func(gotID module.ID, r module.Result) {
		calls++
		if gotID != id || r.String != "hit" {
			t.Fatalf("unexpected callback payload: id=%d result=%+v", gotID, r)
		}
	})

	s.moduleExec(id, w)
	// A second tick where the module itself reports no fresh result must
	// not re-dispatch the previous one through the default callback.
	f.hasResult = false
	s.moduleExec(id, w)

	if calls != 1 {
		t.Fatalf("expected exactly one default-callback dispatch, got %d", calls)
	}
}

func TestRestartModuleExecutesImmediatelyAgainstAFreshFrame(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(9)
	f := &fakeModule{produces: true, hasResult: true, result: module.Result{X: 42, String: "restarted"}}
	w := insertFake(t, s, id, f)
	_ = w.Enable()

	if code := s.RestartModule(id); code != resultcode.OK {
		t.Fatalf("RestartModule: %v", code)
	}

	res, code := s.GetResult(id)
	if code != resultcode.OK {
		t.Fatalf("GetResult after RestartModule: %v", code)
	}
	if res.String != "restarted" || res.X != 42 {
		t.Fatalf("unexpected result after RestartModule: %+v", res)
	}
}

func TestRestartModuleUnknownIDFails(t *testing.T) {
	s := newScheduler(t)
	if code := s.RestartModule(module.ID(999)); code != resultcode.InvalidID {
		t.Fatalf("expected InvalidID, got %v", code)
	}
}

func TestStartFailsWithNoActiveModules(t *testing.T) {
	s := newScheduler(t)
	if code := s.Start(); code != resultcode.NoActiveModules {
		t.Fatalf("expected NoActiveModules, got %v", code)
	}
}

func TestStartStopRunsLoopAndReleasesCamera(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(7)
	insertFake(t, s, id, &fakeModule{})
	if code := s.ModuleStart(id); code != resultcode.OK {
		t.Fatalf("ModuleStart: %v", code)
	}

	if code := s.Start(); code != resultcode.OK {
		t.Fatalf("Start: %v", code)
	}
	if code := s.Start(); code != resultcode.ThreadRunning {
		t.Fatalf("expected ThreadRunning on second Start, got %v", code)
	}

	time.Sleep(50 * time.Millisecond)

	if code := s.Stop(); code != resultcode.OK {
		t.Fatalf("Stop: %v", code)
	}
	if s.camera.IsOpen() {
		t.Fatal("Stop must release every camera user and close the device")
	}
	if got := s.camera.Usercount(); got != 0 {
		t.Fatalf("Usercount after Stop = %d, want 0", got)
	}
	if code := s.Stop(); code != resultcode.OK {
		t.Fatalf("Stop must be idempotent, got %v", code)
	}
}

func TestQuitDisablesAndRemovesEveryModule(t *testing.T) {
	s := newScheduler(t)
	id := module.ID(8)
	insertFake(t, s, id, &fakeModule{})
	_ = s.ModuleStart(id)
	_ = s.Start()

	if code := s.Quit(); code != resultcode.OK {
		t.Fatalf("Quit: %v", code)
	}
	if s.modules.Count() != 0 {
		t.Fatalf("expected every module removed after Quit, got %d remaining", s.modules.Count())
	}
}

func TestLatencyTestSucceedsAndRejectsConcurrentCall(t *testing.T) {
	s := newScheduler(t)
	if code := s.LatencyTest(); code != resultcode.OK {
		t.Fatalf("LatencyTest: %v", code)
	}

	s.lowLatencyBusy.Store(true)
	defer s.lowLatencyBusy.Store(false)
	if code := s.LatencyTest(); code != resultcode.Busy {
		t.Fatalf("expected Busy while a low-latency call is already in flight, got %v", code)
	}
}

func TestGetBufferedResultWithNoPendingCallIsNotAvailable(t *testing.T) {
	s := newScheduler(t)
	if code := s.GetBufferedResult(); code != resultcode.ResultNotAvailable {
		t.Fatalf("expected ResultNotAvailable, got %v", code)
	}
}

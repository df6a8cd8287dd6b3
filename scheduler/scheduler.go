// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scheduler is Api: the one executor thread that owns the camera,
// the conversion cache and the loaded-module table, exposes the public
// control surface every client (RPC bridge, diagnostics link, in-process
// caller) goes through, and routes short-deadline requests via a
// try-with-deadline wrapper on top of the cooperatively-scheduled core.
//
// Grounded on the teacher's own Init() in periph.go: one long-running
// bring-up pass feeding a handful of collector goroutines over channels,
// generalised here to one long-running frame loop feeding module execution
// and result callbacks instead of driver registration.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"vision.io/x/vision/cameractl"
	"vision.io/x/vision/convert"
	"vision.io/x/vision/imagebuf"
	"vision.io/x/vision/internal/resultcode"
	"vision.io/x/vision/module"
	"vision.io/x/vision/moduleloader"
	"vision.io/x/vision/registry"
)

// idlePeriodWhenStarved is how long the loop sleeps between checks when
// paused or with no enabled modules, rather than spinning.
const idlePeriodWhenStarved = 500 * time.Millisecond

// effectiveFramePeriodWindow is how many loop iterations the effective
// frame period is averaged over before being republished.
const effectiveFramePeriodWindow = 10

// LibrariesChangedCallback is invoked when the module loader's discovery
// watcher reports the available set may have changed.
type LibrariesChangedCallback func()

// Scheduler is Api. Exactly one exists per running daemon; construct it
// once at process startup and drive every client request through it.
type Scheduler struct {
	mu sync.Mutex

	camera      *cameractl.Control
	conversions *convert.Cache
	modules     *registry.SharedResource[module.ID, *module.Wrapper]
	loader      *moduleloader.Loader

	names map[module.ID]string

	active bool
	paused bool
	quit   chan struct{}
	wg     sync.WaitGroup

	frameperiodMs          uint32
	effectiveFrameperiodMs atomic.Uint32
	iterSinceMeasure       int
	windowStart            time.Time

	defaultCallback module.ResultCallback

	lowLatencyBusy *atomic.Bool
	lastPending    *registry.Pending
	restartPending map[module.ID]*registry.Pending

	librariesChanged LibrariesChangedCallback

	log *zap.Logger
}

// New returns a Scheduler wired to cam, conv and ld, with frameperiodMs as
// the initial target loop period. log may be nil.
func New(cam *cameractl.Control, conv *convert.Cache, ld *moduleloader.Loader, frameperiodMs uint32, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	busy := &atomic.Bool{}
	s := &Scheduler{
		camera:         cam,
		conversions:    conv,
		modules:        registry.New[module.ID, *module.Wrapper](),
		loader:         ld,
		names:          make(map[module.ID]string),
		frameperiodMs:  frameperiodMs,
		lowLatencyBusy: busy,
		log:            log,
	}
	return s
}

// CameraAvailable reports whether some camera could be opened right now.
func (s *Scheduler) CameraAvailable() bool { return s.camera.IsAvailable() }

// CameraIDAvailable reports whether the device registered under id could
// be opened right now.
func (s *Scheduler) CameraIDAvailable(id uint8) bool { return s.camera.IsIDAvailable(id) }

// PreferCameraWithID records id as the preferred device, switching to it
// immediately if a device is already open.
func (s *Scheduler) PreferCameraWithID(id uint8) resultcode.Code {
	if err := s.camera.SwitchToPreferred(id); err != nil {
		s.log.Warn("prefer_camera_with_id failed", zap.Uint8("id", id), zap.Error(err))
		return resultcode.CameraNotAvailable
	}
	return resultcode.OK
}

// SetFramesize negotiates (w,h) against the preferred or first available
// device before any module relies on it; it requires the camera to be
// closed.
func (s *Scheduler) SetFramesize(w, h uint16) resultcode.Code {
	if err := s.camera.PreselectFramesize(w, h); err != nil {
		s.log.Warn("set_framesize failed", zap.Uint16("w", w), zap.Uint16("h", h), zap.Error(err))
		return resultcode.CameraSettingsFailed
	}
	return resultcode.OK
}

// Pause skips module execution on every subsequent loop cycle without
// stopping the executor thread or releasing the camera.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume undoes Pause.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Paused reports whether the loop is currently skipping module execution.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// EffectiveFramePeriod returns the most recently measured mean wall-clock
// loop period, updated every effectiveFramePeriodWindow iterations.
func (s *Scheduler) EffectiveFramePeriod() time.Duration {
	return time.Duration(s.effectiveFrameperiodMs.Load()) * time.Millisecond
}

// SetDefaultCallback installs the callback invoked for a module's result
// when that module has no per-module callback of its own.
func (s *Scheduler) SetDefaultCallback(cb module.ResultCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultCallback = cb
}

// SetLibrariesChangedCallback installs the callback fired when the module
// loader's discovery watcher observes the available library set change.
func (s *Scheduler) SetLibrariesChangedCallback(cb LibrariesChangedCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.librariesChanged = cb
}

// NotifyLibrariesChanged is the hook a discovery.Watcher callback calls;
// exported so cmd/visiond can wire discovery straight to the scheduler.
func (s *Scheduler) NotifyLibrariesChanged() {
	s.mu.Lock()
	cb := s.librariesChanged
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (s *Scheduler) dealloc(id module.ID) registry.Deallocator[*module.Wrapper] {
	return func(w *module.Wrapper) {
		if w.Active() {
			s.camera.Release()
		}
		if err := s.loader.DestroyModule(id); err != nil {
			s.log.Debug("destroy_module on removal", zap.Int16("id", int16(id)), zap.Error(err))
		}
		s.loader.Reap(id)
	}
}

// StartIdle loads the built-in no-op module, the way the C ABI's
// start_idle holds the camera open without any real module attached.
func (s *Scheduler) StartIdle() (module.ID, resultcode.Code) {
	id := module.InternalRangeStart
	if s.modules.Managed(id) {
		return id, resultcode.OK
	}
	w := module.NewWrapper(id, "", idleModule{})
	w.MarkInitialised()
	if err := s.camera.Acquire(1); err != nil {
		return module.InvalidID, resultcode.CameraNotAvailable
	}
	if err := w.Enable(); err != nil {
		s.camera.Release()
		return module.InvalidID, resultcode.InternalError
	}
	dealloc := func(w *module.Wrapper) {
		if w.Active() {
			s.camera.Release()
		}
	}
	if err := s.modules.Insert(id, w, dealloc); err != nil {
		s.camera.Release()
		return module.InvalidID, resultcode.NodeAllocationFailed
	}
	s.mu.Lock()
	s.names[id] = idleName
	s.mu.Unlock()
	return id, resultcode.OK
}

// LoadModule resolves name against the module loader's available set,
// constructs and initialises a fresh instance, and registers its wrapper.
func (s *Scheduler) LoadModule(name string) (module.ID, resultcode.Code) {
	id, w, err := s.loader.LoadModuleFromLibrary(name)
	if err != nil {
		s.log.Warn("load_module failed", zap.String("name", name), zap.Error(err))
		return module.InvalidID, resultcode.ModuleInitialisationFailed
	}
	if err := s.modules.Insert(id, w, s.dealloc(id)); err != nil {
		_ = s.loader.DestroyModule(id)
		s.loader.Reap(id)
		return module.InvalidID, resultcode.NodeAllocationFailed
	}
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
	return id, resultcode.OK
}

// ModuleStart enables the module under id and acquires one camera user on
// its behalf; the camera user is released again by ModuleStop,
// ModuleRemove, or one of the post-execute tag effects.
func (s *Scheduler) ModuleStart(id module.ID) resultcode.Code {
	var code resultcode.Code
	err := s.modules.ExecOne(id, func(w *module.Wrapper) error {
		if w.Active() {
			return nil
		}
		if acqErr := s.camera.Acquire(1); acqErr != nil {
			code = resultcode.CameraNotAvailable
			return acqErr
		}
		if enErr := w.Enable(); enErr != nil {
			s.camera.Release()
			code = resultcode.InternalError
			return enErr
		}
		code = resultcode.OK
		return nil
	})
	if err != nil {
		if code == resultcode.OK {
			code = resultcode.InvalidID
		}
		return code
	}
	return code
}

// ModuleStop disables the module under id and releases its camera user.
func (s *Scheduler) ModuleStop(id module.ID) resultcode.Code {
	err := s.modules.ExecOne(id, func(w *module.Wrapper) error {
		if w.Active() {
			w.Disable()
			s.camera.Release()
		}
		return nil
	})
	if err != nil {
		return resultcode.InvalidID
	}
	return resultcode.OK
}

// ModuleRemove tags the module under id Removable; it is actually torn
// down between loop cycles (or immediately, if the scheduler isn't
// running) by RemoveIf, never while an exec_all pass might be touching it.
func (s *Scheduler) ModuleRemove(id module.ID) resultcode.Code {
	err := s.modules.ExecOne(id, func(w *module.Wrapper) error {
		w.SetTag(module.TagRemovable)
		return nil
	})
	if err != nil {
		return resultcode.InvalidID
	}
	s.collectRemovable()
	return resultcode.OK
}

// ModuleIsActive reports whether the module under id is currently enabled.
func (s *Scheduler) ModuleIsActive(id module.ID) (bool, resultcode.Code) {
	var active bool
	err := s.modules.ExecOne(id, func(w *module.Wrapper) error {
		active = w.Active()
		return nil
	})
	if err != nil {
		return false, resultcode.InvalidID
	}
	return active, resultcode.OK
}

// ModuleGetName returns the name the module under id was loaded as.
func (s *Scheduler) ModuleGetName(id module.ID) (string, resultcode.Code) {
	s.mu.Lock()
	name, ok := s.names[id]
	s.mu.Unlock()
	if !ok {
		return "", resultcode.InvalidID
	}
	return name, resultcode.OK
}

// ModuleParameterNames lists every parameter the module under id exposes,
// reserved ones first, for the RPC bridge's enumerate operation.
func (s *Scheduler) ModuleParameterNames(id module.ID) ([]string, resultcode.Code) {
	var names []string
	err := s.modules.ExecOne(id, func(w *module.Wrapper) error {
		names = w.ParameterNames()
		return nil
	})
	if err != nil {
		return nil, resultcode.InvalidID
	}
	return names, resultcode.OK
}

// GetResult returns the module's last recorded result.
func (s *Scheduler) GetResult(id module.ID) (module.Result, resultcode.Code) {
	var res module.Result
	var ok bool
	err := s.modules.ExecOne(id, func(w *module.Wrapper) error {
		res, ok = w.Result()
		return nil
	})
	if err != nil {
		return module.UnsetResult, resultcode.InvalidID
	}
	if !ok {
		return module.UnsetResult, resultcode.ResultNotAvailable
	}
	return res, resultcode.OK
}

// SetCallback installs a per-module result callback.
func (s *Scheduler) SetCallback(id module.ID, cb module.ResultCallback) resultcode.Code {
	err := s.modules.ExecOne(id, func(w *module.Wrapper) error {
		w.SetCallback(cb)
		return nil
	})
	if err != nil {
		return resultcode.InvalidID
	}
	return resultcode.OK
}

// Reorder ensures first precedes second in this cycle's execution order.
func (s *Scheduler) Reorder(first, second module.ID) resultcode.Code {
	if err := s.modules.Reorder(first, second); err != nil {
		return resultcode.InvalidID
	}
	return resultcode.OK
}

// collectRemovable sweeps the module table for Removable-tagged wrappers.
// Safe to call both from the loop (between cycles) and directly from an
// explicit ModuleRemove/Quit call while the loop isn't mid-cycle, since
// RemoveIf holds the registry's own mutex for the whole sweep.
func (s *Scheduler) collectRemovable() {
	removed := s.modules.RemoveIf(func(_ module.ID, w *module.Wrapper) bool {
		return w.Removable()
	})
	if len(removed) > 0 {
		s.mu.Lock()
		for _, id := range removed {
			delete(s.names, id)
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) moduleExec(id module.ID, w *module.Wrapper) {
	if !w.Active() {
		return
	}

	var input *imagebuf.Buffer
	if format := w.Module().InputFormat(); format.Known() {
		frame, err := s.conversions.GetFrame(format)
		if err != nil {
			s.log.Debug("module_exec: no frame for format", zap.Int16("id", int16(id)), zap.Error(err))
			return
		}
		input = frame
	}

	produced, err := w.Execute(input)
	if err != nil {
		s.log.Warn("module_exec failed", zap.Int16("id", int16(id)), zap.Error(err))
	} else if produced {
		s.conversions.SetFrame(w.OutputImage())
	}

	// Wrapper.Execute already dispatched any per-module callback; a module
	// with none installed still reaches the process-wide default here, but
	// only for a result actually produced this cycle.
	if !w.HasCallback() {
		if res, ok := w.ConsumeFreshResult(); ok {
			s.mu.Lock()
			def := s.defaultCallback
			s.mu.Unlock()
			if def != nil {
				def(id, res)
			}
		}
	}

	w.ApplyPostExecuteTags(func() { s.camera.Release() })
}

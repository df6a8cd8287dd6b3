// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scheduler

import (
	"time"

	"vision.io/x/vision/imagebuf"
	"vision.io/x/vision/internal/resultcode"
	"vision.io/x/vision/module"
	"vision.io/x/vision/registry"
)

// SetNumericParameter validates and applies v to the named numeric
// parameter of the module under id, routed through ExecOneNow so a stuck
// parameter registry can never wedge the caller past the deadline.
func (s *Scheduler) SetNumericParameter(id module.ID, name string, v int32) resultcode.Code {
	var notFound bool
	code, pending := s.modules.ExecOneNow(id, func(w *module.Wrapper) error {
		if _, ok := w.GetParameter(name); !ok {
			notFound = true
			return errNoSuchParameter
		}
		return w.SetNumericParameter(name, v)
	})
	if code != resultcode.ResultBuffered && notFound {
		return resultcode.ModuleNoSuchParameter
	}
	return s.resolveParamCode(code, pending)
}

// GetNumericParameter returns the current value of the named numeric
// parameter of the module under id.
func (s *Scheduler) GetNumericParameter(id module.ID, name string) (int32, resultcode.Code) {
	var v int32
	var notFound bool
	code, pending := s.modules.ExecOneNow(id, func(w *module.Wrapper) error {
		p, ok := w.GetParameter(name)
		if !ok {
			notFound = true
			return errNoSuchParameter
		}
		v = p.Int()
		return nil
	})
	if code != resultcode.ResultBuffered && notFound {
		return 0, resultcode.ModuleNoSuchParameter
	}
	return v, s.resolveParamCode(code, pending)
}

// SetStringParameter validates and applies v to the named string
// parameter of the module under id.
func (s *Scheduler) SetStringParameter(id module.ID, name, v string) resultcode.Code {
	var notFound bool
	code, pending := s.modules.ExecOneNow(id, func(w *module.Wrapper) error {
		if _, ok := w.GetParameter(name); !ok {
			notFound = true
			return errNoSuchParameter
		}
		return w.SetStringParameter(name, v)
	})
	if code != resultcode.ResultBuffered && notFound {
		return resultcode.ModuleNoSuchParameter
	}
	return s.resolveParamCode(code, pending)
}

// GetStringParameter returns the current value of the named string
// parameter of the module under id.
func (s *Scheduler) GetStringParameter(id module.ID, name string) (string, resultcode.Code) {
	var v string
	var notFound bool
	code, pending := s.modules.ExecOneNow(id, func(w *module.Wrapper) error {
		p, ok := w.GetParameter(name)
		if !ok {
			notFound = true
			return errNoSuchParameter
		}
		v = p.Str()
		return nil
	})
	if code != resultcode.ResultBuffered && notFound {
		return "", resultcode.ModuleNoSuchParameter
	}
	return v, s.resolveParamCode(code, pending)
}

func (s *Scheduler) resolveParamCode(code resultcode.Code, pending *registry.Pending) resultcode.Code {
	if code == resultcode.ResultBuffered {
		s.mu.Lock()
		s.lastPending = pending
		s.mu.Unlock()
		return resultcode.ResultBuffered
	}
	if code == resultcode.InternalError {
		return resultcode.ModuleErrorSettingParam
	}
	return code
}

var errNoSuchParameter = moduleNoSuchParameterErr{}

type moduleNoSuchParameterErr struct{}

func (moduleNoSuchParameterErr) Error() string { return "scheduler: no such parameter" }

// LatencyTest exercises the bounded-latency handoff with trivial
// near-instant work, the ABI op a client uses to probe whether the
// low-latency path itself is healthy.
func (s *Scheduler) LatencyTest() resultcode.Code {
	return s.tryLowLatency(func() error { return nil })
}

// DurationTest exercises the bounded-latency handoff with work that sleeps
// for d before completing, letting a client deliberately trigger the
// buffered-result path for integration testing.
func (s *Scheduler) DurationTest(d time.Duration) resultcode.Code {
	return s.tryLowLatency(func() error {
		time.Sleep(d)
		return nil
	})
}

// tryLowLatency enforces the "only one low-latency call in flight"
// invariant with a single busy flag shared by every caller, then hands fn
// to the same GRAINS*DELAY_GRAIN deadline wrapper the parameter paths use.
func (s *Scheduler) tryLowLatency(fn func() error) resultcode.Code {
	if !s.lowLatencyBusy.CompareAndSwap(false, true) {
		return resultcode.Busy
	}
	defer s.lowLatencyBusy.Store(false)

	code, pending := registry.RunWithDeadline(fn)
	if code == resultcode.ResultBuffered {
		s.mu.Lock()
		s.lastPending = pending
		s.mu.Unlock()
	}
	return code
}

// RestartModule forces an immediate re-execute of the module under id
// against a freshly grabbed camera frame, instead of waiting for the next
// scheduled loop tick — the low-latency handoff backing tv_module_restart/
// module_run_now_new_frame in the original design. If a restart for this
// id is already in flight, the deadline window is simply restarted on the
// existing call via ExecOneNowRestarting rather than spawning a second one.
func (s *Scheduler) RestartModule(id module.ID) resultcode.Code {
	if !s.modules.Managed(id) {
		return resultcode.InvalidID
	}

	s.mu.Lock()
	prior := s.restartPending[id]
	s.mu.Unlock()

	code, pending := s.modules.ExecOneNowRestarting(id, func(w *module.Wrapper) error {
		frame := imagebuf.New(0)
		if err := s.camera.UpdateFrame(frame); err != nil {
			return err
		}
		s.conversions.SetFrame(frame)
		s.moduleExec(id, w)
		return nil
	}, prior)

	s.mu.Lock()
	if s.restartPending == nil {
		s.restartPending = make(map[module.ID]*registry.Pending)
	}
	if pending != nil {
		s.restartPending[id] = pending
		s.lastPending = pending
	} else {
		delete(s.restartPending, id)
	}
	s.mu.Unlock()

	if code == resultcode.InternalError {
		return resultcode.CameraNotAvailable
	}
	return code
}

// GetBufferedResult retrieves the outcome of the most recent call that
// degraded to ResultBuffered. ResultNotAvailable means either no call has
// buffered, or the buffered call hasn't finished yet.
func (s *Scheduler) GetBufferedResult() resultcode.Code {
	s.mu.Lock()
	p := s.lastPending
	s.mu.Unlock()
	if p == nil {
		return resultcode.ResultNotAvailable
	}
	code, done := p.Poll()
	if !done {
		return resultcode.ResultNotAvailable
	}
	s.mu.Lock()
	s.lastPending = nil
	s.mu.Unlock()
	return code
}

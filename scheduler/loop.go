// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scheduler

import (
	"time"

	"go.uber.org/zap"

	"vision.io/x/vision/imagebuf"
	"vision.io/x/vision/internal/resultcode"
	"vision.io/x/vision/module"
)

// Start spawns the executor thread. It fails with ThreadRunning if one is
// already active, or NoActiveModules if nothing is currently enabled to
// justify holding the camera open.
func (s *Scheduler) Start() resultcode.Code {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return resultcode.ThreadRunning
	}
	enabled := 0
	s.modules.ExecAll(func(_ module.ID, w *module.Wrapper) {
		if w.Active() {
			enabled++
		}
	})
	if enabled == 0 {
		s.mu.Unlock()
		return resultcode.NoActiveModules
	}
	if !s.camera.IsOpen() && !s.camera.IsAvailable() {
		s.mu.Unlock()
		return resultcode.CameraNotAvailable
	}
	s.active = true
	s.quit = make(chan struct{})
	s.windowStart = time.Now()
	s.iterSinceMeasure = 0
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	return resultcode.OK
}

// Stop drops the active flag, joins the executor thread and releases
// every camera user the loop was holding. Idempotent.
func (s *Scheduler) Stop() resultcode.Code {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return resultcode.OK
	}
	s.active = false
	quit := s.quit
	s.mu.Unlock()

	close(quit)
	s.wg.Wait()
	s.camera.ReleaseAll()
	return resultcode.OK
}

// Quit stops the executor, disables every module, tags them all Removable
// and collects them immediately. Safe to call during teardown.
func (s *Scheduler) Quit() resultcode.Code {
	s.Stop()
	s.modules.ExecAll(func(_ module.ID, w *module.Wrapper) {
		if w.Active() {
			w.Disable()
			s.camera.Release()
		}
		w.SetTag(module.TagRemovable)
	})
	s.collectRemovable()
	return resultcode.OK
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	frame := imagebuf.New(0)

	for {
		select {
		case <-s.quit:
			return
		default:
		}

		loopStart := time.Now()

		s.mu.Lock()
		paused := s.paused
		s.mu.Unlock()

		enabled := 0
		if !paused {
			s.modules.ExecAll(func(_ module.ID, w *module.Wrapper) {
				if w.Active() {
					enabled++
				}
			})
		}
		if paused || enabled == 0 {
			if s.sleepOrQuit(idlePeriodWhenStarved) {
				return
			}
			continue
		}

		if err := s.camera.UpdateFrame(frame); err != nil {
			s.log.Warn("update_frame failed, skipping module execution this cycle", zap.Error(err))
		} else {
			s.conversions.SetFrame(frame)
			s.modules.ExecAll(s.moduleExec)
			s.collectRemovable()
		}

		s.measureEffectivePeriod(loopStart)

		s.mu.Lock()
		period := time.Duration(s.frameperiodMs) * time.Millisecond
		s.mu.Unlock()
		if s.sleepUntil(loopStart.Add(period)) {
			return
		}
	}
}

// sleepOrQuit sleeps for d, returning true if quit fired first.
func (s *Scheduler) sleepOrQuit(d time.Duration) bool {
	select {
	case <-s.quit:
		return true
	case <-time.After(d):
		return false
	}
}

// sleepUntil sleeps until deadline, never into the past, returning true if
// quit fired first.
func (s *Scheduler) sleepUntil(deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		select {
		case <-s.quit:
			return true
		default:
			return false
		}
	}
	return s.sleepOrQuit(d)
}

func (s *Scheduler) measureEffectivePeriod(loopStart time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterSinceMeasure++
	if s.iterSinceMeasure < effectiveFramePeriodWindow {
		return
	}
	elapsed := time.Since(s.windowStart)
	meanMs := uint32(elapsed.Milliseconds() / int64(s.iterSinceMeasure))
	s.effectiveFrameperiodMs.Store(meanMs)
	s.iterSinceMeasure = 0
	s.windowStart = time.Now()
}

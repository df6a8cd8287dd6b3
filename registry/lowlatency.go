// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package registry

import (
	"sync"
	"time"

	"github.com/tevino/abool"

	"vision.io/x/vision/internal/limits"
	"vision.io/x/vision/internal/resultcode"
)

// Pending tracks a low-latency call that didn't finish inside its
// deadline window. The caller retrieves the real outcome later through
// Poll, mirroring the C ABI's get_buffered_result.
type Pending struct {
	done *abool.AtomicBool
	mu   sync.Mutex
	err  error
}

// Poll reports whether the call has finished and, if so, its outcome as a
// result code. Before completion it returns (ResultNotAvailable, false).
func (p *Pending) Poll() (resultcode.Code, bool) {
	if !p.done.IsSet() {
		return resultcode.ResultNotAvailable, false
	}
	p.mu.Lock()
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return resultcode.InternalError, true
	}
	return resultcode.OK, true
}

// ExecOneNow runs fn(res) for id on a detached goroutine and spins on a
// test-and-set flag for up to limits.Grains steps of limits.DelayGrain,
// the bounded-latency handoff the scheduler's ABI layers on top of the
// cooperatively-scheduled executor. If fn completes within the deadline
// its outcome is returned directly; otherwise ResultBuffered is returned
// along with a *Pending the caller can Poll later.
func (s *SharedResource[K, R]) ExecOneNow(id K, fn func(res R) error) (resultcode.Code, *Pending) {
	return RunWithDeadline(func() error { return s.ExecOne(id, fn) })
}

// RunWithDeadline runs fn on a detached goroutine and spins on the same
// GRAINS*DELAY_GRAIN deadline as ExecOneNow, for low-latency ABI calls that
// aren't tied to any one managed resource (the scheduler's latency_test/
// duration_test probes).
func RunWithDeadline(fn func() error) (resultcode.Code, *Pending) {
	p := &Pending{done: abool.New()}
	go func() {
		err := fn()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		p.done.Set()
	}()
	return spinFor(p, limits.Grains)
}

// ExecOneNowRestarting behaves like ExecOneNow, except when prior refers
// to a call that is still in flight: instead of spawning a second
// goroutine for the same logical request, it simply restarts the spin-wait
// window on the existing Pending. Pass a nil prior (or one that has
// already completed) to start a fresh call.
func (s *SharedResource[K, R]) ExecOneNowRestarting(id K, fn func(res R) error, prior *Pending) (resultcode.Code, *Pending) {
	if prior != nil && !prior.done.IsSet() {
		return spinFor(prior, limits.Grains)
	}
	return s.ExecOneNow(id, fn)
}

func spinFor(p *Pending, grains int) (resultcode.Code, *Pending) {
	for i := 0; i < grains; i++ {
		if p.done.IsSet() {
			break
		}
		time.Sleep(limits.DelayGrain)
	}
	if !p.done.IsSet() {
		return resultcode.ResultBuffered, p
	}
	p.mu.Lock()
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return resultcode.InternalError, nil
	}
	return resultcode.OK, nil
}

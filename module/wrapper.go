// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package module

import (
	"fmt"

	"vision.io/x/vision/imagebuf"
)

// ResultCallback is invoked with a module's fresh result after a
// successful Execute, on the executor thread.
type ResultCallback func(id ID, result Result)

// Wrapper is the runtime shell around a loaded plug-in: identity, enabled
// flag, tags, period/tick bookkeeping, callback wiring and an output image
// buffer, all the state the scheduler drives without reaching into the
// plug-in itself.
//
// Invariants: Initialised must be true before Execute is ever called;
// Active implies Initialised; once TagRemovable is set it is never
// cleared; Period==0 disables execution without disabling the module.
type Wrapper struct {
	id       ID
	loadPath string
	mod      Module

	initialised bool
	active      bool
	tags        Tag

	period      uint8
	execCounter uint8

	resultSlot       Result
	hasResult        bool
	freshResult      bool
	callback         ResultCallback
	callbacksEnabled bool

	outputImage *imagebuf.Buffer

	reserved map[string]*Parameter
}

// NewWrapper wraps mod under id, loaded from loadPath, installing the
// reserved parameters every wrapper carries (period always;
// result_timeout and callbacks_enabled only if mod can produce a result).
func NewWrapper(id ID, loadPath string, mod Module) *Wrapper {
	w := &Wrapper{
		id:               id,
		loadPath:         loadPath,
		mod:              mod,
		period:           uint8(PeriodDefault),
		callbacksEnabled: CallbacksEnabledDefault != 0,
		resultSlot:       UnsetResult,
		outputImage:      imagebuf.New(0),
		reserved:         make(map[string]*Parameter),
	}
	w.reserved[ParamPeriod] = NewNumeric(ParamPeriod, PeriodMin, PeriodMax, PeriodDefault)
	if mod.ProducesResult() {
		w.reserved[ParamResultTimeout] = NewNumeric(ParamResultTimeout, ResultTimeoutMin, ResultTimeoutMax, ResultTimeoutDefault)
		w.reserved[ParamCallbacksEnabled] = NewNumeric(ParamCallbacksEnabled, CallbacksEnabledMin, CallbacksEnabledMax, CallbacksEnabledDefault)
	}
	return w
}

// ID returns the wrapper's module id.
func (w *Wrapper) ID() ID { return w.id }

// LoadPath returns the library path the module was loaded from.
func (w *Wrapper) LoadPath() string { return w.loadPath }

// Module returns the wrapped plug-in, for callers that need to query its
// declarations directly (InputFormat, ProducesResult, etc).
func (w *Wrapper) Module() Module { return w.mod }

// MarkInitialised records that Init succeeded; it is a programming error
// to Execute before this is set.
func (w *Wrapper) MarkInitialised() { w.initialised = true }

// Initialised reports whether Init has succeeded.
func (w *Wrapper) Initialised() bool { return w.initialised }

// Active reports whether the module is enabled for execution.
func (w *Wrapper) Active() bool { return w.active }

// Enable activates the wrapper; it is a programming error to enable a
// wrapper that hasn't been initialised.
func (w *Wrapper) Enable() error {
	if !w.initialised {
		return fmt.Errorf("module %d: cannot enable before Init", w.id)
	}
	w.active = true
	return nil
}

// Disable deactivates the wrapper without touching its tags.
func (w *Wrapper) Disable() { w.active = false }

// Tags returns the wrapper's current tag bitset.
func (w *Wrapper) Tags() Tag { return w.tags }

// Removable reports whether the wrapper is due for garbage collection at
// the scheduler's next remove_if sweep.
func (w *Wrapper) Removable() bool { return w.tags.Has(TagRemovable) }

// SetCallback installs (or clears, with nil) the per-module result
// callback.
func (w *Wrapper) SetCallback(cb ResultCallback) { w.callback = cb }

// HasCallback reports whether a per-module callback is installed, so the
// scheduler knows whether a fresh result still needs to fall through to
// the process-wide default callback.
func (w *Wrapper) HasCallback() bool { return w.callback != nil }

// Period returns the wrapper's cached execution period.
func (w *Wrapper) Period() uint8 { return w.period }

// Result returns the last result copied into the wrapper's slot and
// whether one has ever been recorded.
func (w *Wrapper) Result() (Result, bool) { return w.resultSlot, w.hasResult }

// ConsumeFreshResult returns the wrapper's result and true exactly once per
// newly produced result, clearing the fresh flag so a caller polling every
// cycle (the scheduler's default-callback fallback) doesn't re-dispatch the
// same stale result on ticks where the module didn't produce a new one.
func (w *Wrapper) ConsumeFreshResult() (Result, bool) {
	if !w.freshResult {
		return Result{}, false
	}
	w.freshResult = false
	return w.resultSlot, true
}

// GetParameter looks up a parameter by name, checking the wrapper's
// reserved parameters first, then the module's own declared parameters.
func (w *Wrapper) GetParameter(name string) (*Parameter, bool) {
	if p, ok := w.reserved[name]; ok {
		return p, true
	}
	for _, p := range w.mod.Parameters() {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ParameterNames lists every parameter name the wrapper exposes: its
// reserved ones followed by the module's own, in declaration order.
func (w *Wrapper) ParameterNames() []string {
	names := make([]string, 0, len(w.reserved)+4)
	for _, n := range []string{ParamPeriod, ParamResultTimeout, ParamCallbacksEnabled} {
		if _, ok := w.reserved[n]; ok {
			names = append(names, n)
		}
	}
	for _, p := range w.mod.Parameters() {
		names = append(names, p.Name)
	}
	return names
}

// SetNumericParameter validates and applies v to the named numeric
// parameter. Setting "period" or "callbacks_enabled" also updates the
// wrapper's own cached copy in the same call, atomically from the
// caller's point of view since the wrapper is only ever touched under the
// owning registry's mutex.
func (w *Wrapper) SetNumericParameter(name string, v int32) error {
	p, ok := w.GetParameter(name)
	if !ok {
		return fmt.Errorf("module %d: no such parameter %q", w.id, name)
	}
	if err := p.SetInt(v); err != nil {
		return err
	}
	switch name {
	case ParamPeriod:
		w.period = uint8(v)
	case ParamCallbacksEnabled:
		w.callbacksEnabled = v != 0
	}
	return nil
}

// SetStringParameter validates and applies v to the named string
// parameter.
func (w *Wrapper) SetStringParameter(name, v string) error {
	p, ok := w.GetParameter(name)
	if !ok {
		return fmt.Errorf("module %d: no such parameter %q", w.id, name)
	}
	return p.SetStr(v)
}

// Execute runs one tick: it advances the exec counter and returns
// immediately (doing nothing) unless the period has elapsed; otherwise it
// feeds input to the plug-in, routes any fresh result through the
// callback, and reports whether a usable output image was produced. Any
// panic from the plug-in is recovered, tags the wrapper Removable, and is
// returned as an error instead of propagating — the scheduler is
// responsible for collecting Removable wrappers between cycles, never
// mid-execute.
func (w *Wrapper) Execute(input *imagebuf.Buffer) (producedImage bool, err error) {
	if w.period == 0 {
		return false, nil
	}
	w.execCounter++
	if w.execCounter < w.period {
		return false, nil
	}
	w.execCounter = 0

	defer func() {
		if r := recover(); r != nil {
			w.tags = w.tags.Set(TagRemovable)
			err = fmt.Errorf("module %d: execute panicked: %v", w.id, r)
		}
	}()

	var inHeader imagebuf.Header
	var inData []byte
	if input != nil {
		inHeader = input.Header()
		inData = input.Data()
	}

	var outHeader imagebuf.Header
	var outData []byte
	if w.mod.OutputsImage() {
		outHeader = w.mod.GetOutputImageHeader(inHeader)
		if allocErr := w.outputImage.Allocate(outHeader, false); allocErr != nil {
			return false, allocErr
		}
		outData = w.outputImage.Data()
	}

	if execErr := w.mod.Execute(inHeader, inData, outHeader, outData); execErr != nil {
		w.tags = w.tags.Set(TagRemovable)
		return false, execErr
	}

	if w.mod.ProducesResult() && w.mod.HasResult() {
		res := w.mod.GetResult().Truncated()
		w.resultSlot = res
		w.hasResult = true
		w.freshResult = true
		if w.callbacksEnabled && w.callback != nil {
			w.callback(w.id, res)
		}
	}

	return w.mod.OutputsImage() && outHeader.Valid(), nil
}

// OutputImage returns the wrapper's owned output buffer, valid only after
// a successful Execute that reported producedImage.
func (w *Wrapper) OutputImage() *imagebuf.Buffer { return w.outputImage }

// ApplyPostExecuteTags applies the scheduler-side effects of
// TagExecAndRemove / TagExecAndDisable after a successful execute,
// releasing one camera user through releaseCameraUser for either tag.
func (w *Wrapper) ApplyPostExecuteTags(releaseCameraUser func()) {
	if w.tags.Has(TagExecAndRemove) {
		w.tags = w.tags.Set(TagRemovable)
		if releaseCameraUser != nil {
			releaseCameraUser()
		}
	} else if w.tags.Has(TagExecAndDisable) {
		w.active = false
		if releaseCameraUser != nil {
			releaseCameraUser()
		}
	}
}

// SetTag adds t to the wrapper's tag bitset.
func (w *Wrapper) SetTag(t Tag) { w.tags = w.tags.Set(t) }

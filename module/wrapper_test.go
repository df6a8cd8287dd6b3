// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package module

import (
	"testing"

	"vision.io/x/vision/imagebuf"
)

type fakeModule struct {
	execCount   int
	panicOn     int
	result      Result
	hasResult   bool
	outputs     bool
	produces    bool
	inputFormat imagebuf.ColorSpace
}

func (f *fakeModule) InputFormat() imagebuf.ColorSpace { return f.inputFormat }
func (f *fakeModule) ProducesResult() bool             { return f.produces }
func (f *fakeModule) OutputsImage() bool               { return f.outputs }
func (f *fakeModule) Init(*Environment) error          { return nil }
func (f *fakeModule) GetOutputImageHeader(in imagebuf.Header) imagebuf.Header {
	h := in
	h.Format = imagebuf.Gray
	h.ByteSize = uintptr(h.Pixels())
	return h
}
func (f *fakeModule) Execute(inHeader imagebuf.Header, inData []byte, outHeader imagebuf.Header, outData []byte) error {
	f.execCount++
	if f.panicOn != 0 && f.execCount == f.panicOn {
		panic("boom")
	}
	return nil
}
func (f *fakeModule) HasResult() bool          { return f.hasResult }
func (f *fakeModule) GetResult() Result        { return f.result }
func (f *fakeModule) Parameters() []*Parameter { return nil }
func (f *fakeModule) Stop() error              { return nil }

func inputBuffer() *imagebuf.Buffer {
	b := imagebuf.New(0)
	h := imagebuf.Header{Width: 4, Height: 2, Format: imagebuf.Gray, ByteSize: 8}
	_ = b.Allocate(h, false)
	return b
}

func TestWrapperPeriodGatesExecution(t *testing.T) {
	f := &fakeModule{}
	w := NewWrapper(1, "test", f)
	w.MarkInitialised()
	if err := w.Enable(); err != nil {
		t.Fatal(err)
	}
	if err := w.SetNumericParameter(ParamPeriod, 3); err != nil {
		t.Fatal(err)
	}

	in := inputBuffer()
	for i := 0; i < 2; i++ {
		if _, err := w.Execute(in); err != nil {
			t.Fatal(err)
		}
	}
	if f.execCount != 0 {
		t.Fatalf("expected no execute before period elapses, got %d", f.execCount)
	}
	if _, err := w.Execute(in); err != nil {
		t.Fatal(err)
	}
	if f.execCount != 1 {
		t.Fatalf("expected exactly one execute once period elapses, got %d", f.execCount)
	}
}

func TestWrapperPeriodZeroDisablesExecution(t *testing.T) {
	f := &fakeModule{}
	w := NewWrapper(1, "test", f)
	w.MarkInitialised()
	_ = w.Enable()
	if err := w.SetNumericParameter(ParamPeriod, 0); err != nil {
		t.Fatal(err)
	}

	in := inputBuffer()
	for i := 0; i < 5; i++ {
		if _, err := w.Execute(in); err != nil {
			t.Fatal(err)
		}
	}
	if f.execCount != 0 {
		t.Fatalf("period==0 must disable execution, got %d calls", f.execCount)
	}
}

func TestWrapperPanicSetsRemovableAndReturnsError(t *testing.T) {
	f := &fakeModule{panicOn: 1}
	w := NewWrapper(1, "test", f)
	w.MarkInitialised()
	_ = w.Enable()

	_, err := w.Execute(inputBuffer())
	if err == nil {
		t.Fatal("expected an error recovered from the plug-in panic")
	}
	if !w.Removable() {
		t.Fatal("expected the wrapper to be tagged Removable after a panicking execute")
	}
}

func TestWrapperCallbackFiresOnFreshResult(t *testing.T) {
	f := &fakeModule{produces: true, hasResult: true, result: Result{X: 1, String: "hit"}}
	w := NewWrapper(1, "test", f)
	w.MarkInitialised()
	_ = w.Enable()

	var got Result
	var gotID ID
	w.SetCallback(func(id ID, r Result) {
		gotID, got = id, r
	})

	if _, err := w.Execute(inputBuffer()); err != nil {
		t.Fatal(err)
	}
	if gotID != 1 || got.String != "hit" {
		t.Fatalf("callback did not fire with expected result, got id=%d result=%+v", gotID, got)
	}
}

func TestWrapperCallbackSuppressedWhenDisabled(t *testing.T) {
	f := &fakeModule{produces: true, hasResult: true, result: Result{X: 1, String: "hit"}}
	w := NewWrapper(1, "test", f)
	w.MarkInitialised()
	_ = w.Enable()
	if err := w.SetNumericParameter(ParamCallbacksEnabled, 0); err != nil {
		t.Fatal(err)
	}

	fired := false
	w.SetCallback(func(ID, Result) { fired = true })

	if _, err := w.Execute(inputBuffer()); err != nil {
		t.Fatal(err)
	}
	if fired {
		t.Fatal("callback must not fire while callbacks_enabled is 0")
	}
	if res, ok := w.Result(); !ok || res.String != "hit" {
		t.Fatalf("result slot should still be updated even with callbacks disabled, got %+v ok=%v", res, ok)
	}
}

func TestApplyPostExecuteTagsExecAndRemove(t *testing.T) {
	f := &fakeModule{}
	w := NewWrapper(1, "test", f)
	w.MarkInitialised()
	_ = w.Enable()
	w.SetTag(TagExecAndRemove)

	released := 0
	w.ApplyPostExecuteTags(func() { released++ })

	if !w.Removable() {
		t.Fatal("ExecAndRemove must tag Removable")
	}
	if released != 1 {
		t.Fatalf("expected exactly one camera release, got %d", released)
	}
}

func TestApplyPostExecuteTagsBothExecAndRemoveAndExecAndDisableReleaseOnce(t *testing.T) {
	f := &fakeModule{}
	w := NewWrapper(1, "test", f)
	w.MarkInitialised()
	_ = w.Enable()
	w.SetTag(TagExecAndRemove)
	w.SetTag(TagExecAndDisable)

	released := 0
	w.ApplyPostExecuteTags(func() { released++ })

	if !w.Removable() {
		t.Fatal("ExecAndRemove must tag Removable even when ExecAndDisable is also set")
	}
	if released != 1 {
		t.Fatalf("a wrapper tagged with both must release exactly one camera user, got %d", released)
	}
}

func TestApplyPostExecuteTagsExecAndDisable(t *testing.T) {
	f := &fakeModule{}
	w := NewWrapper(1, "test", f)
	w.MarkInitialised()
	_ = w.Enable()
	w.SetTag(TagExecAndDisable)

	released := 0
	w.ApplyPostExecuteTags(func() { released++ })

	if w.Active() {
		t.Fatal("ExecAndDisable must disable the wrapper")
	}
	if released != 1 {
		t.Fatalf("expected exactly one camera release, got %d", released)
	}
}

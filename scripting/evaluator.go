// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scripting is the default module.ScriptEvaluator backend: a
// Lua interpreter a module can load a user script into and call named
// hook functions on, for modules whose scoring/decision logic a user
// wants to customise without recompiling a plug-in.
package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Evaluator is a per-module Lua interpreter instance. It is not safe for
// concurrent use — a module ticked from the single executor thread only
// ever calls it from that thread, the same single-owner discipline the
// wrapper already assumes for everything else reachable from Execute.
type Evaluator struct {
	state *lua.LState
	path  string
}

// New returns a fresh Evaluator with an unloaded Lua state.
func New() *Evaluator {
	return &Evaluator{state: lua.NewState()}
}

// Load compiles and runs the script at path, making its top-level
// function definitions available to Call. Calling Load again replaces
// whatever script was previously loaded.
func (e *Evaluator) Load(path string) error {
	if err := e.state.DoFile(path); err != nil {
		return fmt.Errorf("scripting: load %s: %w", path, err)
	}
	e.path = path
	return nil
}

// Call invokes the global Lua function named hook with args converted to
// Lua values, returning its first result converted back to a Go value.
// It is an error to call a hook that Load's script never defined.
func (e *Evaluator) Call(hook string, args ...interface{}) (interface{}, error) {
	fn := e.state.GetGlobal(hook)
	if fn == lua.LNil {
		return nil, fmt.Errorf("scripting: %s: no such function %q", e.path, hook)
	}

	luaArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		luaArgs[i] = toLua(a)
	}

	if err := e.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, luaArgs...); err != nil {
		return nil, fmt.Errorf("scripting: %s: call %q: %w", e.path, hook, err)
	}

	ret := e.state.Get(-1)
	e.state.Pop(1)
	return fromLua(ret), nil
}

// Close releases the Lua state. Safe to call once after the last Call.
func (e *Evaluator) Close() error {
	e.state.Close()
	return nil
}

func toLua(v interface{}) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	default:
		return lua.LString(fmt.Sprintf("%v", x))
	}
}

func fromLua(v lua.LValue) interface{} {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	default:
		return nil
	}
}

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package module

import (
	"fmt"

	"vision.io/x/vision/internal/limits"
)

// Kind distinguishes a Parameter's value type.
type Kind uint8

const (
	// Numeric parameters carry a bounded int32 value.
	Numeric Kind = iota
	// String parameters carry a bounded-length string, optionally gated by
	// a predicate over the old and new values.
	String
)

// StringPredicate vets a proposed string value against the current one; it
// returns false to reject the change.
type StringPredicate func(old, proposed string) bool

// Parameter is a single named, validated setting exposed by a module (or
// installed by the runtime as a reserved parameter on every wrapper).
// Exactly one of the numeric or string fields is meaningful, selected by
// Kind.
type Parameter struct {
	Name string
	Kind Kind

	Min   int32
	Max   int32
	value int32

	strValue string
	Predicate StringPredicate
}

// NewNumeric returns a validated numeric parameter; it panics if name
// exceeds the maximum length or if def is out of [min,max] — both are
// programming errors made by the module author, not runtime conditions.
func NewNumeric(name string, min, max, def int32) *Parameter {
	mustValidName(name)
	if def < min || def > max {
		panic(fmt.Sprintf("module: parameter %q default %d out of range [%d,%d]", name, def, min, max))
	}
	return &Parameter{Name: name, Kind: Numeric, Min: min, Max: max, value: def}
}

// NewString returns a validated string parameter with an optional
// predicate; pred may be nil to accept any value within the length limit.
func NewString(name, def string, pred StringPredicate) *Parameter {
	mustValidName(name)
	return &Parameter{Name: name, Kind: String, strValue: def, Predicate: pred}
}

func mustValidName(name string) {
	if len(name) == 0 || len(name) > limits.MaxStringLen {
		panic(fmt.Sprintf("module: parameter name %q exceeds %d bytes", name, limits.MaxStringLen))
	}
}

// Int returns the current numeric value; it is 0 for a string parameter.
func (p *Parameter) Int() int32 {
	return p.value
}

// Str returns the current string value; it is "" for a numeric parameter.
func (p *Parameter) Str() string {
	return p.strValue
}

// SetInt validates and applies v to a numeric parameter; it is an error to
// call on a string parameter or with a value outside [Min,Max].
func (p *Parameter) SetInt(v int32) error {
	if p.Kind != Numeric {
		return fmt.Errorf("module: parameter %q is not numeric", p.Name)
	}
	if v < p.Min || v > p.Max {
		return fmt.Errorf("module: parameter %q value %d out of range [%d,%d]", p.Name, v, p.Min, p.Max)
	}
	p.value = v
	return nil
}

// SetStr validates and applies v to a string parameter; it is an error to
// call on a numeric parameter, to exceed the maximum length, or to be
// rejected by the parameter's predicate.
func (p *Parameter) SetStr(v string) error {
	if p.Kind != String {
		return fmt.Errorf("module: parameter %q is not a string parameter", p.Name)
	}
	if len(v) > limits.MaxStringLen {
		return fmt.Errorf("module: parameter %q value exceeds %d bytes", p.Name, limits.MaxStringLen)
	}
	if p.Predicate != nil && !p.Predicate(p.strValue, v) {
		return fmt.Errorf("module: parameter %q rejected new value by predicate", p.Name)
	}
	p.strValue = v
	return nil
}

// Reserved parameter names the runtime installs on every wrapper.
const (
	ParamPeriod            = "period"
	ParamResultTimeout      = "result_timeout"
	ParamCallbacksEnabled   = "callbacks_enabled"
)

// Reserved parameter bounds and defaults, named constants rather than
// magic numbers scattered through ModuleWrapper construction.
const (
	PeriodMin, PeriodMax, PeriodDefault                   int32 = 0, 500, 1
	ResultTimeoutMin, ResultTimeoutMax, ResultTimeoutDefault int32 = 0, 40, 20
	CallbacksEnabledMin, CallbacksEnabledMax, CallbacksEnabledDefault int32 = 0, 1, 1
)

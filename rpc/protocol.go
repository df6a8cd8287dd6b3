// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rpc is the WebSocket bridge over the scheduler's control surface:
// one CBOR-encoded Request/Response pair per C ABI operation, plus
// unsolicited push Responses (empty ReqID) for installed callbacks.
package rpc

import "vision.io/x/vision/internal/resultcode"

// Op identifies one C ABI operation from §6's table. The numeric values are
// part of the wire contract; append, never renumber.
type Op uint8

const (
	OpCameraAvailable Op = iota
	OpCameraIDAvailable
	OpPreferCameraWithID
	OpSetFramesize
	OpStart
	OpStop
	OpQuit
	OpStartIdle
	OpModuleLoad
	OpModuleStart
	OpModuleStop
	OpModuleRemove
	OpModuleIsActive
	OpModuleGetName
	OpParamEnumerate
	OpParamGetNumeric
	OpParamSetNumeric
	OpParamGetString
	OpParamSetString
	OpGetResult
	OpSetCallback
	OpClearCallback
	OpSetDefaultCallback
	OpClearDefaultCallback
	OpSubscribeLibrariesChanged
	OpLatencyTest
	OpDurationTest
	OpGetBufferedResult
	OpModuleRestart

	// opPush* never appear as a request Op; they tag unsolicited pushes so
	// a client's single receive loop can tell them apart from replies.
	opPushResult
	opPushLibrariesChanged
)

// Request is one client call. ReqID is echoed back verbatim in the
// matching Response so a client can correlate replies on a single
// connection without per-op request/response pairing.
type Request struct {
	ReqID string `cbor:"id"`
	Op    Op     `cbor:"op"`

	CameraID   uint8  `cbor:"camera_id,omitempty"`
	Width      uint16 `cbor:"width,omitempty"`
	Height     uint16 `cbor:"height,omitempty"`
	ModuleID   int16  `cbor:"module_id,omitempty"`
	Name       string `cbor:"name,omitempty"`
	ParamName  string `cbor:"param_name,omitempty"`
	NumericArg int32  `cbor:"numeric_arg,omitempty"`
	StringArg  string `cbor:"string_arg,omitempty"`
	DurationMs uint32 `cbor:"duration_ms,omitempty"`
}

// ResultPayload mirrors module.Result on the wire, decoupling the bridge's
// encoding from the package a module implementation is compiled against.
type ResultPayload struct {
	X      int32  `cbor:"x"`
	Y      int32  `cbor:"y"`
	Width  int32  `cbor:"width"`
	Height int32  `cbor:"height"`
	String string `cbor:"string,omitempty"`
}

// Response answers a Request (ReqID matches) or carries an unsolicited
// push from an installed callback (ReqID is empty, Op is one of the
// opPush* tags above plus ModuleID/Result or nothing for a
// libraries-changed notification).
type Response struct {
	ReqID string          `cbor:"id"`
	Op    Op              `cbor:"op"`
	Code  resultcode.Code `cbor:"code"`

	ModuleID int16          `cbor:"module_id,omitempty"`
	Bool     bool           `cbor:"bool,omitempty"`
	Name     string         `cbor:"name,omitempty"`
	Numeric  int32          `cbor:"numeric,omitempty"`
	String   string         `cbor:"string,omitempty"`
	Names    []string       `cbor:"names,omitempty"`
	Result   *ResultPayload `cbor:"result,omitempty"`
}

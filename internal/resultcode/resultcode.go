// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package resultcode defines the result codes returned across every public
// control-surface call in the runtime (scheduler methods, the RPC bridge,
// the module loader). It is the single source of truth for the code ↔
// message mapping so the Go API and the RPC bridge never drift apart.
package resultcode

// Code is a result code returned by a control-surface operation.
type Code int16

// The numeric values match the runtime's on-the-wire contract; do not
// renumber without updating every RPC client.
const (
	OK                         Code = 0
	ResultBuffered             Code = 1
	NotImplemented             Code = -1
	InternalError              Code = -2
	InvalidArgument            Code = -3
	Busy                       Code = -4
	NodeAllocationFailed       Code = -11
	NoActiveModules            Code = -12
	CameraNotAvailable         Code = -21
	CameraSettingsFailed       Code = -22
	InvalidID                  Code = -31
	ModuleInitialisationFailed Code = -32
	ModuleNoSuchParameter      Code = -33
	ModuleErrorSettingParam    Code = -34
	ExecThreadFailure          Code = -41
	ThreadRunning              Code = -42
	DlopenFailed               Code = -51
	DlsymFailed                Code = -52
	DlcloseFailed              Code = -53
	ConstructionFailed         Code = -54
	NotAvailable               Code = -55
	ResultNotAvailable         Code = -61
	GlobalCallbackActive       Code = -62
)

var table = map[Code]string{
	OK:                         "ok",
	ResultBuffered:              "result buffered",
	NotImplemented:              "not implemented",
	InternalError:               "internal error",
	InvalidArgument:             "invalid argument",
	Busy:                        "busy",
	NodeAllocationFailed:        "node allocation failed",
	NoActiveModules:             "no active modules",
	CameraNotAvailable:          "camera not available",
	CameraSettingsFailed:        "camera settings failed",
	InvalidID:                   "invalid id",
	ModuleInitialisationFailed:  "module initialisation failed",
	ModuleNoSuchParameter:       "no such parameter",
	ModuleErrorSettingParam:     "error setting parameter",
	ExecThreadFailure:           "executor thread failure",
	ThreadRunning:               "executor already running",
	DlopenFailed:                "failed to open module library",
	DlsymFailed:                 "module symbol lookup failed",
	DlcloseFailed:               "module library close failed",
	ConstructionFailed:          "module construction failed",
	NotAvailable:                "not available",
	ResultNotAvailable:          "result not available",
	GlobalCallbackActive:        "global callback active",
}

// String returns the short, fixed-length message associated with a code, as
// would be surfaced through the result-string table named in the spec. The
// returned string is at most TV_STRING_SIZE-1 (29) bytes.
func (c Code) String() string {
	if s, ok := table[c]; ok {
		return s
	}
	return "unknown result code"
}

// OK reports whether c represents success.
func (c Code) OK() bool {
	return c == OK
}

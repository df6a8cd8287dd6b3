// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package diag

import (
	"encoding/binary"

	"vision.io/x/vision/internal/limits"
	"vision.io/x/vision/internal/resultcode"
	"vision.io/x/vision/module"
	"vision.io/x/vision/scheduler"
)

// Bridge turns scheduler calls into diag Frame replies; its Dispatch
// method is the function handed to Link.Serve.
type Bridge struct {
	sched *scheduler.Scheduler
}

// NewBridge returns a Bridge fronting sched.
func NewBridge(sched *scheduler.Scheduler) *Bridge {
	return &Bridge{sched: sched}
}

func codePayload(c resultcode.Code) []byte {
	p := make([]byte, 2)
	binary.BigEndian.PutUint16(p, uint16(c))
	return p
}

// Dispatch answers one request Frame, routing on its Op.
func (b *Bridge) Dispatch(req Frame) Frame {
	switch req.Op {
	case OpPing:
		return Frame{Op: OpPing, Payload: codePayload(resultcode.OK)}

	case OpLatencyTest:
		return Frame{Op: OpLatencyTest, Payload: codePayload(b.sched.LatencyTest())}

	case OpModuleIsActive:
		if len(req.Payload) < 2 {
			return Frame{Op: OpModuleIsActive, Payload: codePayload(resultcode.InvalidArgument)}
		}
		id := module.ID(int16(binary.BigEndian.Uint16(req.Payload)))
		active, code := b.sched.ModuleIsActive(id)
		payload := codePayload(code)
		var b8 byte
		if active {
			b8 = 1
		}
		return Frame{Op: OpModuleIsActive, Payload: append(payload, b8)}

	case OpGetResult:
		if len(req.Payload) < 2 {
			return Frame{Op: OpGetResult, Payload: codePayload(resultcode.InvalidArgument)}
		}
		id := module.ID(int16(binary.BigEndian.Uint16(req.Payload)))
		res, code := b.sched.GetResult(id)
		return Frame{Op: OpGetResult, Payload: encodeResult(code, res)}

	default:
		return Frame{Op: req.Op, Payload: codePayload(resultcode.NotImplemented)}
	}
}

func encodeResult(code resultcode.Code, res module.Result) []byte {
	s := res.String
	if len(s) > limits.MaxStringLen {
		s = s[:limits.MaxStringLen]
	}
	payload := make([]byte, 0, 2+16+1+len(s))
	payload = append(payload, codePayload(code)...)
	for _, v := range []int32{res.X, res.Y, res.Width, res.Height} {
		var b4 [4]byte
		binary.BigEndian.PutUint32(b4[:], uint32(v))
		payload = append(payload, b4[:]...)
	}
	payload = append(payload, byte(len(s)))
	payload = append(payload, s...)
	return payload
}

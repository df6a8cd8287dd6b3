// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package diag

import (
	"bufio"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/zap"
)

// Link owns one open serial connection and serialises writes across
// whatever sends frames on it; reads happen on the single goroutine
// running Serve.
type Link struct {
	port io.ReadWriteCloser
	r    *bufio.Reader
	wmu  sync.Mutex
	log  *zap.Logger
}

// Open opens device at baud (8N1, no hardware handshaking — the same
// defaults the teacher's own serial driver uses) and returns a Link ready
// for Serve. log may be nil.
func Open(device string, baud int, log *zap.Logger) (*Link, error) {
	if log == nil {
		log = zap.NewNop()
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &Link{port: port, r: bufio.NewReader(port), log: log}, nil
}

// Close releases the underlying serial port.
func (l *Link) Close() error { return l.port.Close() }

// send writes one frame, holding wmu so Serve's reply and any
// out-of-band send from another goroutine never interleave their bytes.
func (l *Link) send(f Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()
	_, err = l.port.Write(data)
	return err
}

// Dispatch answers one request Frame with a response Frame.
type Dispatch func(Frame) Frame

// Serve reads frames in a loop and writes back whatever dispatch
// returns, until the port is closed or ctx-like cancellation arrives via
// stop. A frame that fails CRC validation is logged and skipped — the
// sender is expected to retry, the same "log, don't abort" policy the
// scheduler applies to a bad camera frame.
func (l *Link) Serve(stop <-chan struct{}, dispatch Dispatch) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := ReadFrame(l.r)
		if err != nil {
			if err == ErrCRCMismatch {
				l.log.Warn("diag: dropped frame with bad checksum")
				continue
			}
			l.log.Debug("diag: read loop ending", zap.Error(err))
			return
		}

		reply := dispatch(frame)
		if err := l.send(reply); err != nil {
			l.log.Warn("diag: failed to send reply", zap.Error(err))
			return
		}
	}
}

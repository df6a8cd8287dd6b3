// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rpc

import (
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vision.io/x/vision/internal/resultcode"
	"vision.io/x/vision/module"
	"vision.io/x/vision/scheduler"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one connected WebSocket peer: a send queue drained by a write
// pump goroutine, the same shape the teacher's hub uses per browser tab.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *client) push(resp Response) {
	data, err := cbor.Marshal(resp)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Server bridges WebSocket clients to exactly one Scheduler. At most one
// client may hold the default-callback subscription at a time
// (GlobalCallbackActive guards it, mirroring the ABI's single global
// callback slot); any number of clients may subscribe to libraries-changed
// notifications, and each subscriber receives every push; per-module callbacks have no such limit since each is scoped to its own
// module id.
type Server struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	sched *scheduler.Scheduler
	log   *zap.Logger

	defaultCallbackClient *client
	librariesClients      map[*client]struct{}
}

// NewServer returns a Server bridging sched. log may be nil.
func NewServer(sched *scheduler.Scheduler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		clients:          make(map[*client]struct{}),
		librariesClients: make(map[*client]struct{}),
		sched:            sched,
		log:              log,
	}
	sched.SetLibrariesChangedCallback(s.broadcastLibrariesChanged)
	return s
}

// ServeHTTP upgrades the request to a WebSocket connection and runs the
// client's read/write pumps until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 8)}
	s.register(c)
	s.log.Info("rpc client connected", zap.String("client", c.id))

	go func() {
		defer s.unregister(c)
		defer conn.Close()
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.unregister(c)
			return
		}
		var req Request
		if err := cbor.Unmarshal(data, &req); err != nil {
			s.log.Debug("malformed rpc request, dropped", zap.String("client", c.id), zap.Error(err))
			continue
		}
		resp := s.dispatch(c, req)
		c.push(resp)
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	delete(s.librariesClients, c)
	if s.defaultCallbackClient == c {
		s.defaultCallbackClient = nil
		s.sched.SetDefaultCallback(nil)
	}
	close(c.send)
}

func (s *Server) broadcastLibrariesChanged() {
	s.mu.Lock()
	targets := make([]*client, 0, len(s.librariesClients))
	for c := range s.librariesClients {
		targets = append(targets, c)
	}
	s.mu.Unlock()
	for _, c := range targets {
		c.push(Response{Op: opPushLibrariesChanged, Code: resultcode.OK})
	}
}

// dispatch runs one request to completion against the scheduler and
// returns the Response to send back, ReqID already filled in.
func (s *Server) dispatch(c *client, req Request) Response {
	resp := Response{ReqID: req.ReqID, Op: req.Op}

	switch req.Op {
	case OpCameraAvailable:
		resp.Bool = s.sched.CameraAvailable()
		resp.Code = resultcode.OK

	case OpCameraIDAvailable:
		resp.Bool = s.sched.CameraIDAvailable(req.CameraID)
		resp.Code = resultcode.OK

	case OpPreferCameraWithID:
		resp.Code = s.sched.PreferCameraWithID(req.CameraID)

	case OpSetFramesize:
		resp.Code = s.sched.SetFramesize(req.Width, req.Height)

	case OpStart:
		resp.Code = s.sched.Start()

	case OpStop:
		resp.Code = s.sched.Stop()

	case OpQuit:
		resp.Code = s.sched.Quit()

	case OpStartIdle:
		id, code := s.sched.StartIdle()
		resp.ModuleID = int16(id)
		resp.Code = code

	case OpModuleLoad:
		id, code := s.sched.LoadModule(req.Name)
		resp.ModuleID = int16(id)
		resp.Code = code

	case OpModuleStart:
		resp.Code = s.sched.ModuleStart(module.ID(req.ModuleID))

	case OpModuleStop:
		resp.Code = s.sched.ModuleStop(module.ID(req.ModuleID))

	case OpModuleRemove:
		resp.Code = s.sched.ModuleRemove(module.ID(req.ModuleID))

	case OpModuleIsActive:
		active, code := s.sched.ModuleIsActive(module.ID(req.ModuleID))
		resp.Bool = active
		resp.Code = code

	case OpModuleGetName:
		name, code := s.sched.ModuleGetName(module.ID(req.ModuleID))
		resp.Name = name
		resp.Code = code

	case OpParamEnumerate:
		names, code := s.sched.ModuleParameterNames(module.ID(req.ModuleID))
		resp.Names = names
		resp.Code = code

	case OpParamGetNumeric:
		v, code := s.sched.GetNumericParameter(module.ID(req.ModuleID), req.ParamName)
		resp.Numeric = v
		resp.Code = code

	case OpParamSetNumeric:
		resp.Code = s.sched.SetNumericParameter(module.ID(req.ModuleID), req.ParamName, req.NumericArg)

	case OpParamGetString:
		v, code := s.sched.GetStringParameter(module.ID(req.ModuleID), req.ParamName)
		resp.String = v
		resp.Code = code

	case OpParamSetString:
		resp.Code = s.sched.SetStringParameter(module.ID(req.ModuleID), req.ParamName, req.StringArg)

	case OpGetResult:
		r, code := s.sched.GetResult(module.ID(req.ModuleID))
		resp.Result = &ResultPayload{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, String: r.String}
		resp.Code = code

	case OpSetCallback:
		resp.Code = s.setPerModuleCallback(c, module.ID(req.ModuleID))

	case OpClearCallback:
		resp.Code = s.sched.SetCallback(module.ID(req.ModuleID), nil)

	case OpSetDefaultCallback:
		resp.Code = s.setDefaultCallback(c)

	case OpClearDefaultCallback:
		s.mu.Lock()
		if s.defaultCallbackClient == c {
			s.defaultCallbackClient = nil
		}
		s.mu.Unlock()
		s.sched.SetDefaultCallback(nil)
		resp.Code = resultcode.OK

	case OpSubscribeLibrariesChanged:
		s.mu.Lock()
		s.librariesClients[c] = struct{}{}
		s.mu.Unlock()
		resp.Code = resultcode.OK

	case OpLatencyTest:
		resp.Code = s.sched.LatencyTest()

	case OpDurationTest:
		resp.Code = s.sched.DurationTest(time.Duration(req.DurationMs) * time.Millisecond)

	case OpGetBufferedResult:
		resp.Code = s.sched.GetBufferedResult()

	case OpModuleRestart:
		resp.Code = s.sched.RestartModule(module.ID(req.ModuleID))

	default:
		resp.Code = resultcode.NotImplemented
	}

	return resp
}

// setPerModuleCallback installs a callback on the named module that pushes
// every fresh result to c as an unsolicited Response.
func (s *Server) setPerModuleCallback(c *client, id module.ID) resultcode.Code {
	return s.sched.SetCallback(id, func(gotID module.ID, r module.Result) {
		c.push(Response{
			Op:       opPushResult,
			Code:     resultcode.OK,
			ModuleID: int16(gotID),
			Result:   &ResultPayload{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, String: r.String},
		})
	})
}

// setDefaultCallback installs c as the process-wide default callback
// subscriber, rejecting the request with GlobalCallbackActive if another
// client already holds the slot.
func (s *Server) setDefaultCallback(c *client) resultcode.Code {
	s.mu.Lock()
	if s.defaultCallbackClient != nil && s.defaultCallbackClient != c {
		s.mu.Unlock()
		return resultcode.GlobalCallbackActive
	}
	s.defaultCallbackClient = c
	s.mu.Unlock()

	s.sched.SetDefaultCallback(func(id module.ID, r module.Result) {
		c.push(Response{
			Op:       opPushResult,
			Code:     resultcode.OK,
			ModuleID: int16(id),
			Result:   &ResultPayload{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, String: r.String},
		})
	})
	return resultcode.OK
}

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package camerareg is a registry of camera backend constructors keyed by
// device id, the way gpioreg/i2creg/spireg register bus-level handles by
// name. CameraControl resolves a preferred device id through this registry
// instead of depending on any one concrete backend package.
package camerareg

import (
	"fmt"
	"sort"
	"sync"

	"vision.io/x/vision/conn/camera"
)

// Opener constructs a not-yet-open Device for the given id.
type Opener func(id uint8) (camera.Device, error)

var (
	mu       sync.Mutex
	openers  = map[uint8]Opener{}
	descByID = map[uint8]string{}
)

// Register registers an Opener for a device id. Registering the same id
// twice is an error, mirroring gpioreg.Register's "no silent overwrite"
// rule.
func Register(id uint8, description string, open Opener) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := openers[id]; ok {
		return fmt.Errorf("camerareg: device id %d already registered as %q", id, descByID[id])
	}
	openers[id] = open
	descByID[id] = description
	return nil
}

// MustRegister calls Register and panics on error; call from a backend
// package's init().
func MustRegister(id uint8, description string, open Opener) {
	if err := Register(id, description, open); err != nil {
		panic(err)
	}
}

// Open constructs the Device registered for id, or an error if no backend
// claims that id.
func Open(id uint8) (camera.Device, error) {
	mu.Lock()
	open, ok := openers[id]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("camerareg: no backend registered for device id %d", id)
	}
	return open(id)
}

// Available returns the sorted list of registered device ids.
func Available() []uint8 {
	mu.Lock()
	defer mu.Unlock()
	out := make([]uint8, 0, len(openers))
	for id := range openers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Describe returns the human-readable description registered for id, or ""
// if id is unknown.
func Describe(id uint8) string {
	mu.Lock()
	defer mu.Unlock()
	return descByID[id]
}

// unregisterForTest removes an id's registration; only exported to _test.go
// files in this package via the lowercase name, so production code cannot
// depend on de-registration.
func unregisterForTest(id uint8) {
	mu.Lock()
	defer mu.Unlock()
	delete(openers, id)
	delete(descByID, id)
}

// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camerareg

import (
	"testing"

	"vision.io/x/vision/conn/camera"
	"vision.io/x/vision/conn/camera/cameratest"
)

func TestRegisterAndOpen(t *testing.T) {
	const id = 200
	defer unregisterForTest(id)

	if err := Register(id, "test device", func(id uint8) (camera.Device, error) {
		return cameratest.NewPlayback(id), nil
	}); err != nil {
		t.Fatal(err)
	}

	dev, err := Open(id)
	if err != nil {
		t.Fatal(err)
	}
	if dev.ID() != id {
		t.Fatalf("got id %d, want %d", dev.ID(), id)
	}

	found := false
	for _, a := range Available() {
		if a == id {
			found = true
		}
	}
	if !found {
		t.Fatal("expected id to be listed as available")
	}
	if Describe(id) != "test device" {
		t.Fatalf("unexpected description %q", Describe(id))
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	const id = 201
	defer unregisterForTest(id)
	open := func(id uint8) (camera.Device, error) { return cameratest.NewPlayback(id), nil }
	if err := Register(id, "first", open); err != nil {
		t.Fatal(err)
	}
	if err := Register(id, "second", open); err == nil {
		t.Fatal("expected a double-registration error")
	}
}

func TestOpenUnknownID(t *testing.T) {
	if _, err := Open(255); err == nil {
		t.Fatal("expected an error for an unregistered id")
	}
}

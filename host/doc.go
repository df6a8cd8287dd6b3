// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package host ties the camera backends together behind camerareg.
//
// Call host.Init() once at process startup, before opening any camera by
// id, to register the V4L2-backed device nodes and the solid-colour
// fallback device.
package host

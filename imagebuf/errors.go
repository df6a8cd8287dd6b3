// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imagebuf

import "errors"

// ErrOutOfRange is returned by Allocate when the requested size exceeds the
// buffer's configured maximum.
var ErrOutOfRange = errors.New("requested size out of range")

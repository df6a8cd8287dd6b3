// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scheduler

import (
	"vision.io/x/vision/imagebuf"
	"vision.io/x/vision/module"
)

// idleModule is the no-op module start_idle loads to hold the camera open
// without any real processing running against it. It declares no input
// format, produces no result and outputs no image, so module_exec's only
// effect on it is advancing the tick counter.
type idleModule struct{}

func (idleModule) InputFormat() imagebuf.ColorSpace { return imagebuf.None }
func (idleModule) ProducesResult() bool             { return false }
func (idleModule) OutputsImage() bool               { return false }
func (idleModule) Init(*module.Environment) error   { return nil }
func (idleModule) GetOutputImageHeader(imagebuf.Header) imagebuf.Header {
	return imagebuf.Header{}
}
func (idleModule) Execute(imagebuf.Header, []byte, imagebuf.Header, []byte) error { return nil }
func (idleModule) HasResult() bool                                               { return false }
func (idleModule) GetResult() module.Result                                      { return module.UnsetResult }
func (idleModule) Parameters() []*module.Parameter                               { return nil }
func (idleModule) Stop() error                                                   { return nil }

// idleName is the fixed name reported by module_get_name for the idle
// holder, since it was never loaded from a library path.
const idleName = "idle"

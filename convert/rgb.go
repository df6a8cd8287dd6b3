// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package convert

import "vision.io/x/vision/imagebuf"

// bgr888ToRGB888 and rgb888ToBGR888 swap the red and blue byte of every
// pixel; the two formats differ only in channel order.
func bgr888ToRGB888(src, dst *imagebuf.Buffer) error { return swapRB(src, dst, imagebuf.RGB888) }
func rgb888ToBGR888(src, dst *imagebuf.Buffer) error { return swapRB(src, dst, imagebuf.BGR888) }

func swapRB(src, dst *imagebuf.Buffer, dstFormat imagebuf.ColorSpace) error {
	sh := src.Header()
	h := sh
	h.Format = dstFormat
	if err := dst.Allocate(h, false); err != nil {
		return err
	}
	in, out := src.Data(), dst.Data()
	for i := 0; i+2 < len(in) && i+2 < len(out); i += 3 {
		out[i], out[i+1], out[i+2] = in[i+2], in[i+1], in[i]
	}
	return nil
}

// bgr888ToGray reduces each BGR pixel to luma using the standard Rec. 601
// weighting, the same coefficients image/color.GrayModel uses internally.
func bgr888ToGray(src, dst *imagebuf.Buffer) error {
	sh := src.Header()
	h := imagebuf.Header{Width: sh.Width, Height: sh.Height, Format: imagebuf.Gray}
	h.ByteSize = uintptr(h.Pixels())
	if err := dst.Allocate(h, false); err != nil {
		return err
	}
	in, out := src.Data(), dst.Data()
	for i, o := 0, 0; i+2 < len(in) && o < len(out); i, o = i+3, o+1 {
		b, g, r := uint32(in[i]), uint32(in[i+1]), uint32(in[i+2])
		out[o] = byte((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
	}
	return nil
}

// grayToBGR888 replicates the single luma channel into all three.
func grayToBGR888(src, dst *imagebuf.Buffer) error {
	sh := src.Header()
	h := imagebuf.Header{Width: sh.Width, Height: sh.Height, Format: imagebuf.BGR888}
	h.ByteSize = uintptr(h.Pixels()) * 3
	if err := dst.Allocate(h, false); err != nil {
		return err
	}
	in, out := src.Data(), dst.Data()
	for i, o := 0, 0; i < len(in) && o+2 < len(out); i, o = i+1, o+3 {
		out[o], out[o+1], out[o+2] = in[i], in[i], in[i]
	}
	return nil
}

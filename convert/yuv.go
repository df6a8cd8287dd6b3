// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package convert

import (
	"image/color"

	"vision.io/x/vision/imagebuf"
)

// The YCbCr→RGB math below calls color.YCbCrToRGB, the same conversion
// golang.org/x/image's own format decoders (bmp, tiff) call internally;
// x/image has no standalone colour-math package of its own to import, so
// the stdlib function it is built on is used directly rather than
// reimplementing the matrix by hand.

// yuyvToBGR888 and yuyvToRGB888 decode packed 4:2:2 YUYV (Y0 U Y1 V per
// two pixels) into a packed (interleaved) 3-byte-per-pixel output.
func yuyvToBGR888(src, dst *imagebuf.Buffer) error { return yuyvToPacked(src, dst, imagebuf.BGR888) }
func yuyvToRGB888(src, dst *imagebuf.Buffer) error { return yuyvToPacked(src, dst, imagebuf.RGB888) }

func yuyvToPacked(src, dst *imagebuf.Buffer, dstFormat imagebuf.ColorSpace) error {
	sh := src.Header()
	w, h := int(sh.Width), int(sh.Height)
	hdr := imagebuf.Header{Width: sh.Width, Height: sh.Height, Format: dstFormat}
	hdr.ByteSize = uintptr(hdr.Pixels()) * 3
	if err := dst.Allocate(hdr, false); err != nil {
		return err
	}
	in, out := src.Data(), dst.Data()
	bgr := dstFormat == imagebuf.BGR888

	stride := w * 2
	for y := 0; y < h; y++ {
		row := in[y*stride:]
		orow := out[y*w*3:]
		for x := 0; x+3 < stride && x+3 < len(row); x += 4 {
			y0, u, y1, v := row[x], row[x+1], row[x+2], row[x+3]
			r0, g0, b0 := color.YCbCrToRGB(y0, u, v)
			r1, g1, b1 := color.YCbCrToRGB(y1, u, v)
			o := (x / 2) * 3
			if o+5 >= len(orow) {
				break
			}
			if bgr {
				orow[o], orow[o+1], orow[o+2] = b0, g0, r0
				orow[o+3], orow[o+4], orow[o+5] = b1, g1, r1
			} else {
				orow[o], orow[o+1], orow[o+2] = r0, g0, b0
				orow[o+3], orow[o+4], orow[o+5] = r1, g1, b1
			}
		}
	}
	return nil
}

// yuyvToYV12 re-samples packed 4:2:2 chroma down to planar 4:2:0 by
// keeping only the even rows' U/V samples, the cheapest correct
// sub-sampling (no vertical averaging).
func yuyvToYV12(src, dst *imagebuf.Buffer) error {
	sh := src.Header()
	w, h := int(sh.Width), int(sh.Height)
	cw, ch := (w+1)/2, (h+1)/2

	hdr := imagebuf.Header{Width: sh.Width, Height: sh.Height, Format: imagebuf.YV12}
	hdr.ByteSize = uintptr(w*h + 2*cw*ch)
	if err := dst.Allocate(hdr, false); err != nil {
		return err
	}
	in, out := src.Data(), dst.Data()
	yPlane := out[:w*h]
	vPlane := out[w*h : w*h+cw*ch]
	uPlane := out[w*h+cw*ch:]

	stride := w * 2
	for y := 0; y < h; y++ {
		row := in[y*stride:]
		for x := 0; x < w; x++ {
			if x*2 >= len(row) {
				break
			}
			yPlane[y*w+x] = row[x*2]
		}
	}
	for cy := 0; cy < ch; cy++ {
		row := in[(cy*2)*stride:]
		for cx := 0; cx < cw; cx++ {
			i := cx * 4
			if i+3 >= len(row) {
				break
			}
			uPlane[cy*cw+cx] = row[i+1]
			vPlane[cy*cw+cx] = row[i+3]
		}
	}
	return nil
}

// yv12ToBGR888 and yv12ToRGB888 decode planar 4:2:0 YV12 (Y plane, then V
// plane, then U plane, each chroma plane at half resolution in both axes).
func yv12ToBGR888(src, dst *imagebuf.Buffer) error { return yv12ToPacked(src, dst, imagebuf.BGR888) }
func yv12ToRGB888(src, dst *imagebuf.Buffer) error { return yv12ToPacked(src, dst, imagebuf.RGB888) }

func yv12ToPacked(src, dst *imagebuf.Buffer, dstFormat imagebuf.ColorSpace) error {
	sh := src.Header()
	w, h := int(sh.Width), int(sh.Height)
	cw, ch := (w+1)/2, (h+1)/2

	hdr := imagebuf.Header{Width: sh.Width, Height: sh.Height, Format: dstFormat}
	hdr.ByteSize = uintptr(hdr.Pixels()) * 3
	if err := dst.Allocate(hdr, false); err != nil {
		return err
	}
	in, out := src.Data(), dst.Data()
	yPlane := in[:w*h]
	vPlane := in[w*h : w*h+cw*ch]
	uPlane := in[w*h+cw*ch:]
	bgr := dstFormat == imagebuf.BGR888

	for y := 0; y < h; y++ {
		cy := y / 2
		for x := 0; x < w; x++ {
			cx := x / 2
			yi := y*w + x
			ci := cy*cw + cx
			if yi >= len(yPlane) || ci >= len(uPlane) || ci >= len(vPlane) {
				continue
			}
			r, g, b := color.YCbCrToRGB(yPlane[yi], uPlane[ci], vPlane[ci])
			o := yi * 3
			if o+2 >= len(out) {
				continue
			}
			if bgr {
				out[o], out[o+1], out[o+2] = b, g, r
			} else {
				out[o], out[o+1], out[o+2] = r, g, b
			}
		}
	}
	return nil
}

// bgr888ToYUYV packs BGR888 into 4:2:2 YUYV, taking the chroma of the
// first pixel of every horizontal pair (no horizontal chroma averaging).
func bgr888ToYUYV(src, dst *imagebuf.Buffer) error {
	sh := src.Header()
	w, h := int(sh.Width), int(sh.Height)
	hdr := imagebuf.Header{Width: sh.Width, Height: sh.Height, Format: imagebuf.YUYV}
	hdr.ByteSize = uintptr(w*h) * 2
	if err := dst.Allocate(hdr, false); err != nil {
		return err
	}
	in, out := src.Data(), dst.Data()
	stride := w * 2

	for y := 0; y < h; y++ {
		irow := in[y*w*3:]
		orow := out[y*stride:]
		for x := 0; x+1 < w; x += 2 {
			i0, i1 := x*3, (x+1)*3
			if i1+2 >= len(irow) {
				break
			}
			y0, cb0, cr0 := rgbToYCbCr(irow[i0+2], irow[i0+1], irow[i0])
			y1, _, _ := rgbToYCbCr(irow[i1+2], irow[i1+1], irow[i1])
			o := x * 2
			if o+3 >= len(orow) {
				break
			}
			orow[o], orow[o+1], orow[o+2], orow[o+3] = y0, cb0, y1, cr0
		}
	}
	return nil
}

// bgr888ToYV12 packs BGR888 into planar 4:2:0 YV12, taking the chroma of
// the top-left pixel of every 2x2 block (no chroma averaging).
func bgr888ToYV12(src, dst *imagebuf.Buffer) error {
	sh := src.Header()
	w, h := int(sh.Width), int(sh.Height)
	cw, ch := (w+1)/2, (h+1)/2

	hdr := imagebuf.Header{Width: sh.Width, Height: sh.Height, Format: imagebuf.YV12}
	hdr.ByteSize = uintptr(w*h + 2*cw*ch)
	if err := dst.Allocate(hdr, false); err != nil {
		return err
	}
	in, out := src.Data(), dst.Data()
	yPlane := out[:w*h]
	vPlane := out[w*h : w*h+cw*ch]
	uPlane := out[w*h+cw*ch:]

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			if i+2 >= len(in) {
				continue
			}
			yy, cb, cr := rgbToYCbCr(in[i+2], in[i+1], in[i])
			yPlane[y*w+x] = yy
			if y%2 == 0 && x%2 == 0 {
				cy, cx := y/2, x/2
				ci := cy*cw + cx
				if ci < len(uPlane) && ci < len(vPlane) {
					uPlane[ci] = cb
					vPlane[ci] = cr
				}
			}
		}
	}
	return nil
}

// rgbToYCbCr computes Y/Cb/Cr from RGB with the standard Rec. 601 integer
// approximation (the forward direction stdlib's color package does not
// provide, only YCbCr→RGB).
func rgbToYCbCr(r, g, b byte) (y, cb, cr byte) {
	ri, gi, bi := int(r), int(g), int(b)
	yy := (19595*ri + 38470*gi + 7471*bi) >> 16
	cbv := 128 + ((-11059*ri - 21709*gi + 32768*bi) >> 16)
	crv := 128 + ((32768*ri - 27439*gi - 5329*bi) >> 16)
	return clampByte(yy), clampByte(cbv), clampByte(crv)
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

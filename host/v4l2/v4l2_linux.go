// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

// Package v4l2 implements the camera.Device capability against a
// Video4Linux2 character device (/dev/videoN), the concrete backend behind
// CameraControl on a Linux-class host.
package v4l2

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"vision.io/x/vision/conn/camera"
	"vision.io/x/vision/imagebuf"
)

// v4l2Format mirrors the fixed-layout prefix of struct v4l2_format that this
// backend cares about (the union's v4l2_pix_format arm).
type v4l2Format struct {
	typ         uint32
	width       uint32
	height      uint32
	pixelformat uint32
	field       uint32
	bytesperline uint32
	sizeimage   uint32
	colorspace  uint32
	_           [8]uint32 // remainder of the v4l2_format union, unused
}

type v4l2RequestBuffers struct {
	count    uint32
	typ      uint32
	memory   uint32
	reserved [2]uint32
}

type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	timestamp [2]int64
	timecode  [17]byte
	_         [3]byte // pad
	sequence  uint32
	memory    uint32
	offset    uint32
	length    uint32
	reserved2 uint32
	reserved  uint32
}

// Device is a single /dev/videoN capture device addressed through raw
// ioctl/mmap syscalls, following the sequence every hand-rolled Go V4L2
// client in the wild uses: open, negotiate format, request one mmap'd
// buffer, queue/stream/dequeue in a loop.
type Device struct {
	id   uint8
	path string

	fd   int
	mmap []byte

	header imagebuf.Header
	open   bool
}

// New returns a Device for the given numeric id and device node path (for
// example "/dev/video0").
func New(id uint8, path string) *Device {
	return &Device{id: id, path: path}
}

func (d *Device) String() string {
	return fmt.Sprintf("v4l2(%s)", d.path)
}

// ID implements camera.Device.
func (d *Device) ID() uint8 {
	return d.id
}

// IsOpen implements camera.Device.
func (d *Device) IsOpen() bool {
	return d.open
}

// ImageFormat implements camera.Device.
func (d *Device) ImageFormat() imagebuf.ColorSpace {
	return d.header.Format
}

// FrameHeader implements camera.Device.
func (d *Device) FrameHeader() imagebuf.Header {
	return d.header
}

// Open implements camera.Device, negotiating whatever size the driver
// defaults to.
func (d *Device) Open() error {
	return d.open_(0, 0)
}

// OpenSize implements camera.Device.
func (d *Device) OpenSize(width, height uint16) error {
	return d.open_(width, height)
}

func (d *Device) open_(width, height uint16) error {
	if d.open {
		return nil
	}
	fd, err := unix.Open(d.path, unix.O_RDWR, 0)
	if err != nil {
		return errors.Wrapf(err, "v4l2: open %s", d.path)
	}
	d.fd = fd

	format, cs, err := d.negotiateFormat(width, height)
	if err != nil {
		unix.Close(fd)
		d.fd = -1
		return err
	}
	if err := d.mapBuffer(format.sizeimage); err != nil {
		unix.Close(fd)
		d.fd = -1
		return err
	}
	if err := d.ioctl(vidiocStreamOn, unsafe.Pointer(&[1]uint32{bufTypeVideoCapture}[0])); err != nil {
		d.unmapBuffer()
		unix.Close(fd)
		d.fd = -1
		return errors.Wrap(err, "v4l2: stream on")
	}

	d.header = imagebuf.Header{
		Width:    uint16(format.width),
		Height:   uint16(format.height),
		ByteSize: uintptr(format.sizeimage),
		Format:   cs,
	}
	d.open = true
	return nil
}

func (d *Device) negotiateFormat(width, height uint16) (v4l2Format, imagebuf.ColorSpace, error) {
	f := v4l2Format{typ: bufTypeVideoCapture}
	if err := d.ioctl(vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return f, imagebuf.Invalid, errors.Wrap(err, "v4l2: get format")
	}
	if width != 0 && height != 0 {
		f.width, f.height = uint32(width), uint32(height)
		f.field = fieldAny
		if err := d.ioctl(vidiocSFmt, unsafe.Pointer(&f)); err != nil {
			return f, imagebuf.Invalid, errors.Wrap(err, "v4l2: set format")
		}
		if f.width != uint32(width) || f.height != uint32(height) {
			return f, imagebuf.Invalid, errors.Errorf("v4l2: negotiated %dx%d, wanted %dx%d", f.width, f.height, width, height)
		}
	}
	return f, colorSpaceFromFourcc(f.pixelformat), nil
}

func colorSpaceFromFourcc(fourcc uint32) imagebuf.ColorSpace {
	switch fourcc {
	case pixFmtYUYV:
		return imagebuf.YUYV
	case pixFmtYV12:
		return imagebuf.YV12
	case pixFmtBGR3:
		return imagebuf.BGR888
	case pixFmtRGB3:
		return imagebuf.RGB888
	case pixFmtGrey:
		return imagebuf.Gray
	default:
		return imagebuf.Invalid
	}
}

func (d *Device) mapBuffer(size uint32) error {
	rb := v4l2RequestBuffers{count: 1, typ: bufTypeVideoCapture, memory: memoryMMAP}
	if err := d.ioctl(vidiocReqBufs, unsafe.Pointer(&rb)); err != nil {
		return errors.Wrap(err, "v4l2: request buffers")
	}
	qb := v4l2Buffer{typ: bufTypeVideoCapture, memory: memoryMMAP, index: 0}
	if err := d.ioctl(vidiocQueryBuf, unsafe.Pointer(&qb)); err != nil {
		return errors.Wrap(err, "v4l2: query buffer")
	}
	m, err := unix.Mmap(d.fd, int64(qb.offset), int(qb.length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrap(err, "v4l2: mmap")
	}
	d.mmap = m
	return d.ioctl(vidiocQBuf, unsafe.Pointer(&qb))
}

func (d *Device) unmapBuffer() {
	if d.mmap != nil {
		unix.Munmap(d.mmap)
		d.mmap = nil
	}
}

// Close implements camera.Device; idempotent.
func (d *Device) Close() error {
	if !d.open {
		return nil
	}
	typ := uint32(bufTypeVideoCapture)
	d.ioctl(vidiocStreamOff, unsafe.Pointer(&typ))
	d.unmapBuffer()
	err := unix.Close(d.fd)
	d.fd = -1
	d.open = false
	return err
}

// GetFrame implements camera.Device. It dequeues the single mmap'd buffer,
// copies it into dst (the kernel may reuse the mapped region the instant
// the buffer is re-queued), and re-queues for the next frame.
func (d *Device) GetFrame(dst *imagebuf.Buffer) error {
	if !d.open {
		return errors.New("v4l2: device not open")
	}
	qb := v4l2Buffer{typ: bufTypeVideoCapture, memory: memoryMMAP, index: 0}
	if err := d.ioctl(vidiocDQBuf, unsafe.Pointer(&qb)); err != nil {
		return errors.Wrap(err, "v4l2: dequeue buffer")
	}

	h := d.header
	h.Timestamp = time.Now()
	h.ByteSize = uintptr(qb.bytesused)
	if err := dst.Allocate(h, false); err != nil {
		d.ioctl(vidiocQBuf, unsafe.Pointer(&qb))
		return err
	}
	dst.CopyFrom(d.mmap[:qb.bytesused])

	return d.ioctl(vidiocQBuf, unsafe.Pointer(&qb))
}

func (d *Device) ioctl(request uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), request, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

var _ camera.Device = (*Device)(nil)

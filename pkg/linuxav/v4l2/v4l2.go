//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API:
// device discovery, format enumeration and negotiation, and memory-mapped
// streaming capture.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Format Queries
//
// Query supported formats, frame sizes and frame intervals on an open
// device:
//
//	dev, _ := v4l2.Open("/dev/video0")
//	defer dev.Close()
//	formats, _ := dev.Formats()
//	for _, f := range formats {
//	    sizes, _ := dev.FrameSizes(f.PixelFormat)
//	    for _, s := range sizes {
//	        intervals, _ := dev.FrameIntervals(f.PixelFormat, s.Width, s.Height)
//	    }
//	}
//
// # Streaming
//
// Configure a format, map buffers and stream:
//
//	pix, _ := dev.SetFormat(v4l2.PixFormat{Width: 640, Height: 480, PixelFormat: v4l2.PixFmtNV12})
//	n, _ := dev.RequestBuffers(4)
//	for i := range n {
//	    mem, _ := dev.MapBuffer(i)
//	    _ = dev.QueueBuffer(i)
//	}
//	_ = dev.StreamOn()
//	buf, err := dev.DequeueBuffer() // unix.EAGAIN until a frame is ready
package v4l2

//go:build linux && (amd64 || arm64)

package v4l2

import (
	"time"
	"unsafe"
)

var (
	_ [208]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [88]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
)

// The format union holds pointers, so it is 8-byte aligned on 64-bit
// targets and the structures embedding a struct timeval grow.
const (
	vidiocGFmt     = 0xc0d05604
	vidiocSFmt     = 0xc0d05605
	vidiocQuerybuf = 0xc0585609
	vidiocQbuf     = 0xc058560f
	vidiocDqbuf    = 0xc0585611
	vidiocTryFmt   = 0xc0d05640
)

type v4l2Format struct {
	typ uint32
	_   uint32
	raw [200]byte
}

type v4l2Timeval struct {
	sec  int64
	usec int64
}

type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	_         uint32
	timestamp v4l2Timeval
	timecode  [16]byte
	sequence  uint32
	memory    uint32
	m         uint64 // offset for V4L2_MEMORY_MMAP
	length    uint32
	reserved2 uint32
	requestFd uint32
	_         uint32
}

func (b *v4l2Buffer) offset() int64 {
	return int64(uint32(b.m))
}

func (t v4l2Timeval) duration() time.Duration {
	return time.Duration(t.sec)*time.Second + time.Duration(t.usec)*time.Microsecond
}

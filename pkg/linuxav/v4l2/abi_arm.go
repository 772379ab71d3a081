//go:build linux && arm

package v4l2

import (
	"time"
	"unsafe"
)

var (
	_ [204]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
)

// 32-bit layouts: the format union is 4-byte aligned and struct timeval
// is two 32-bit words.
const (
	vidiocGFmt     = 0xc0cc5604
	vidiocSFmt     = 0xc0cc5605
	vidiocQuerybuf = 0xc0445609
	vidiocQbuf     = 0xc044560f
	vidiocDqbuf    = 0xc0445611
	vidiocTryFmt   = 0xc0cc5640
)

type v4l2Format struct {
	typ uint32
	raw [200]byte
}

type v4l2Timeval struct {
	sec  int32
	usec int32
}

type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	timestamp v4l2Timeval
	timecode  [16]byte
	sequence  uint32
	memory    uint32
	m         uint32 // offset for V4L2_MEMORY_MMAP
	length    uint32
	reserved2 uint32
	requestFd uint32
}

func (b *v4l2Buffer) offset() int64 {
	return int64(b.m)
}

func (t v4l2Timeval) duration() time.Duration {
	return time.Duration(t.sec)*time.Second + time.Duration(t.usec)*time.Microsecond
}

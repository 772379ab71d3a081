//go:build linux

package v4l2dev

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/smazurov/ispsrc/internal/device"
	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/pkg/linuxav/v4l2"
)

// pollInterval bounds how long Process waits before rechecking its context.
const pollInterval = 100 * time.Millisecond

// Pool is the memory-mapped buffer pool of a Device.
type Pool struct {
	dev *Device

	mu        sync.Mutex
	v4l2      *v4l2.Device
	mem       [][]byte
	sizeImage int
	streaming bool
}

func (p *Pool) allocate(dev *v4l2.Device, count uint32, sizeImage uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.mem) > 0 {
		return errors.New("buffers already allocated")
	}

	got, err := dev.RequestBuffers(count)
	if err != nil {
		return err
	}
	if got == 0 {
		return errors.New("driver granted no buffers")
	}

	mem := make([][]byte, 0, got)
	for i := uint32(0); i < got; i++ {
		b, err := dev.MapBuffer(i)
		if err != nil {
			for _, m := range mem {
				_ = unix.Munmap(m)
			}
			_, _ = dev.RequestBuffers(0)
			return err
		}
		mem = append(mem, b)
	}

	p.v4l2 = dev
	p.mem = mem
	p.sizeImage = int(sizeImage)
	return nil
}

// release stops streaming, unmaps the buffers and returns them to the
// driver.
func (p *Pool) release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.v4l2 == nil {
		return nil
	}

	var err error
	if p.streaming {
		err = multierr.Append(err, p.v4l2.StreamOff())
		p.streaming = false
	}
	for _, m := range p.mem {
		err = multierr.Append(err, unix.Munmap(m))
	}
	_, reqErr := p.v4l2.RequestBuffers(0)
	err = multierr.Append(err, reqErr)

	p.mem = nil
	p.v4l2 = nil
	return err
}

func (p *Pool) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streaming
}

// SetActive queues every buffer and starts streaming, or stops it.
func (p *Pool) SetActive(active bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if active == p.streaming {
		return nil
	}
	if p.v4l2 == nil {
		return errors.New("no buffers allocated")
	}

	if !active {
		p.streaming = false
		return p.v4l2.StreamOff()
	}

	for i := range p.mem {
		if err := p.v4l2.QueueBuffer(uint32(i)); err != nil {
			return err
		}
	}
	if err := p.v4l2.StreamOn(); err != nil {
		return err
	}
	p.streaming = true
	return nil
}

func (p *Pool) Stop() error {
	return p.SetActive(false)
}

func (p *Pool) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.mem)
}

func (p *Pool) FrameSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sizeImage
}

// Process waits for the driver to fill a buffer, copies it out and
// requeues it.
func (p *Pool) Process(ctx context.Context) (*media.Frame, error) {
	p.mu.Lock()
	dev, streaming := p.v4l2, p.streaming
	p.mu.Unlock()
	if dev == nil || !streaming {
		return nil, device.ErrFlushing
	}

	var buf v4l2.Buffer
	for {
		if err := p.wait(ctx, dev.Fd()); err != nil {
			return nil, err
		}
		var err error
		buf, err = dev.DequeueBuffer()
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EAGAIN) {
			return nil, err
		}
	}

	if buf.Flags&v4l2.BufFlagError != 0 {
		return nil, multierr.Append(device.ErrCorrupted, p.requeue(dev, buf.Index))
	}
	if buf.BytesUsed == 0 {
		if buf.Flags&v4l2.BufFlagLast != 0 {
			return nil, device.ErrLastBuffer
		}
		return nil, multierr.Append(device.ErrCorrupted, p.requeue(dev, buf.Index))
	}

	p.mu.Lock()
	if int(buf.Index) >= len(p.mem) {
		p.mu.Unlock()
		return nil, fmt.Errorf("driver returned unknown buffer %d", buf.Index)
	}
	payload := make([]byte, buf.BytesUsed)
	copy(payload, p.mem[buf.Index][:buf.BytesUsed])
	p.mu.Unlock()

	if err := p.requeue(dev, buf.Index); err != nil {
		return nil, err
	}

	f := media.NewFrame(payload)
	f.Timestamp = media.FromDuration(buf.Timestamp)
	f.Offset = uint64(buf.Sequence)
	f.OffsetEnd = uint64(buf.Sequence) + 1
	return f, nil
}

func (p *Pool) requeue(dev *v4l2.Device, index uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.streaming {
		return nil
	}
	return dev.QueueBuffer(index)
}

// wait polls the device and the wake-up eventfd until a buffer is ready.
func (p *Pool) wait(ctx context.Context, fd int) error {
	p.dev.mu.Lock()
	wake := p.dev.wake
	p.dev.mu.Unlock()

	fds := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(wake), Events: unix.POLLIN},
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Poll(fds, int(pollInterval/time.Millisecond))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			continue
		}
		if fds[1].Revents&unix.POLLIN != 0 {
			return device.ErrFlushing
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return fmt.Errorf("device poll error: revents %#x", fds[0].Revents)
		}
		if fds[0].Revents&unix.POLLIN != 0 {
			return nil
		}
	}
}

var _ device.Pool = (*Pool)(nil)

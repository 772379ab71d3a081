package fake

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/smazurov/ispsrc/internal/device"
	"github.com/smazurov/ispsrc/internal/media"
)

// Step is one scripted result of Pool.Process.
type Step struct {
	Frame *media.Frame
	Err   error
}

// Pool is the buffer pool of a fake Device.
type Pool struct {
	dev         *Device
	steps       chan Step
	depth       int
	activateErr error
	gen         clock.Clock

	mu       sync.Mutex
	active   bool
	flushing chan struct{} // closed while unlocked
	seq      uint64
}

func newPool(dev *Device) *Pool {
	return &Pool{
		dev:      dev,
		steps:    make(chan Step, 1024),
		flushing: make(chan struct{}),
	}
}

// Push queues steps for Process.
func (p *Pool) Push(steps ...Step) {
	for _, s := range steps {
		p.steps <- s
	}
}

// PushFrame queues a frame with the given device timestamp and sequence
// number. A sequence of media.OffsetNone leaves the offsets unset.
func (p *Pool) PushFrame(ts media.ClockTime, seq uint64) {
	f := media.NewFrame(nil)
	f.Timestamp = ts
	if seq != media.OffsetNone {
		f.Offset, f.OffsetEnd = seq, seq+1
	}
	p.Push(Step{Frame: f})
}

func (p *Pool) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Pool) SetActive(active bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if active && p.activateErr != nil {
		return p.activateErr
	}
	p.active = active
	if active {
		p.seq = 0
	}
	return nil
}

func (p *Pool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	return nil
}

func (p *Pool) Depth() int {
	return p.depth
}

func (p *Pool) FrameSize() int {
	f, ok := p.dev.Format()
	if !ok {
		return 0
	}
	return device.FrameSize(f)
}

func (p *Pool) flush(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.flushing:
		if !on {
			p.flushing = make(chan struct{})
		}
	default:
		if on {
			close(p.flushing)
		}
	}
}

func (p *Pool) Process(ctx context.Context) (*media.Frame, error) {
	p.mu.Lock()
	flushing := p.flushing
	p.mu.Unlock()

	select {
	case <-flushing:
		return nil, device.ErrFlushing
	default:
	}

	var tick <-chan time.Time
	if p.gen != nil && len(p.steps) == 0 {
		if f, ok := p.dev.Format(); ok {
			if d := device.FrameDuration(f); d.IsValid() {
				tick = p.gen.After(d.Duration())
			}
		}
	}

	select {
	case s := <-p.steps:
		return s.Frame, s.Err
	case <-tick:
		return p.generate(), nil
	case <-flushing:
		return nil, device.ErrFlushing
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) generate() *media.Frame {
	p.mu.Lock()
	seq := p.seq
	p.seq++
	p.mu.Unlock()

	f := media.NewFrame(make([]byte, p.FrameSize()))
	f.Timestamp = media.ClockTime(p.gen.Now().UnixNano())
	f.Offset, f.OffsetEnd = seq, seq+1
	return f
}

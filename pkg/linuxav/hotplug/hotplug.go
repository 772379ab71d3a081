//go:build linux

// Package hotplug listens for kernel device events on a netlink
// kobject-uevent socket, without cgo or udev.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Event actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
)

// SubsystemVideo4Linux is the subsystem of V4L2 device nodes.
const SubsystemVideo4Linux = "video4linux"

// ErrRemoved is returned by WaitRemoved when the device node goes away.
var ErrRemoved = errors.New("device removed")

// pollInterval bounds how long Run waits before rechecking its context.
const pollInterval = 250 // ms

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string // kernel object path, /devices/...
	Subsystem string
	DevType   string
	DevName   string // node name relative to /dev, video0
	Env       map[string]string
}

// Node returns the /dev path of the event's device node, or "" when the
// event carries none.
func (e Event) Node() string {
	if e.DevName == "" {
		return ""
	}
	return filepath.Join("/dev", e.DevName)
}

// Monitor is a netlink uevent listener.
type Monitor struct {
	fd        int
	subsystem string
}

// NewMonitor opens a listener. subsystem restricts events to one
// subsystem; empty passes everything.
func NewMonitor(subsystem string) (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, err
	}
	// Group 1 carries kernel broadcasts
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Monitor{fd: fd, subsystem: subsystem}, nil
}

// Close releases the socket.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run sends events to ch until ctx is done or reading fails. ch is closed
// when Run returns.
func (m *Monitor) Run(ctx context.Context, ch chan<- Event) error {
	defer close(ch)

	buf := make([]byte, 8192)
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := unix.Poll(fds, pollInterval)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if n == 0 {
			continue
		}

		n, _, err = unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}

		ev := ParseUEvent(buf[:n])
		if ev == nil || (m.subsystem != "" && ev.Subsystem != m.subsystem) {
			continue
		}

		select {
		case ch <- *ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitRemoved blocks until the V4L2 node at path is removed, returning
// ErrRemoved, or until ctx is done, returning nil.
func WaitRemoved(ctx context.Context, path string) error {
	m, err := NewMonitor(SubsystemVideo4Linux)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan Event, 8)
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx, ch) }()

	for ev := range ch {
		if ev.Action == ActionRemove && ev.Node() == path {
			cancel()
			<-errc
			return ErrRemoved
		}
	}

	err = <-errc
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ParseUEvent parses "ACTION@KOBJ\0KEY=VALUE\0...". Messages relayed by
// udev carry a binary header, which is skipped. It returns nil for
// anything else.
func ParseUEvent(data []byte) *Event {
	if bytes.HasPrefix(data, []byte("libudev")) {
		data = skipUdevHeader(data)
	}

	parts := bytes.Split(data, []byte{0})
	action, kobj, ok := strings.Cut(string(parts[0]), "@")
	if !ok || action == "" {
		return nil
	}

	ev := &Event{Action: action, KObj: kobj, Env: make(map[string]string)}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		ev.Env[key] = value
		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVTYPE":
			ev.DevType = value
		case "DEVNAME":
			ev.DevName = value
		}
	}
	return ev
}

func skipUdevHeader(data []byte) []byte {
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			continue
		}
		rest := data[i+1:]
		at := bytes.IndexByte(rest, '@')
		end := bytes.IndexByte(rest, 0)
		if at > 0 && at < 20 && (end < 0 || at < end) {
			return rest
		}
	}
	return nil
}

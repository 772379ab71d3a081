package source

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/benbjohnson/clock"

	"github.com/smazurov/ispsrc/internal/device"
	"github.com/smazurov/ispsrc/internal/device/fake"
)

// URI schemes understood by OpenURI.
const (
	SchemeV4L2 = "v4l2"
	SchemeSim  = "sim"
)

// OpenURI returns the device named by uri without opening it:
// v4l2:///dev/video0 for a V4L2 node (an empty path means /dev/video0),
// sim:// for a generated test pattern. sim:// accepts a depth query
// parameter for the reported pool depth.
func OpenURI(uri string) (device.Device, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", uri, err)
	}

	switch u.Scheme {
	case SchemeV4L2:
		path := u.Path
		if u.Host != "" {
			path = "/" + u.Host + u.Path
		}
		return openV4L2(path)
	case SchemeSim:
		opts := []fake.Option{fake.WithGenerator(clock.New())}
		if v := u.Query().Get("depth"); v != "" {
			depth, err := strconv.Atoi(v)
			if err != nil || depth < 0 {
				return nil, fmt.Errorf("invalid depth %q", v)
			}
			opts = append(opts, fake.WithDepth(depth))
		}
		return fake.New(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
}

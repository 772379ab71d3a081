//go:build linux

package source

import (
	"github.com/smazurov/ispsrc/internal/device"
	"github.com/smazurov/ispsrc/internal/device/v4l2dev"
)

func openV4L2(path string) (device.Device, error) {
	return v4l2dev.New(path), nil
}

//go:build !linux

package source

import (
	"errors"

	"github.com/smazurov/ispsrc/internal/device"
)

func openV4L2(string) (device.Device, error) {
	return nil, errors.New("v4l2 devices are only available on linux")
}

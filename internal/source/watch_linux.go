//go:build linux

package source

import (
	"context"
	"errors"

	"github.com/smazurov/ispsrc/pkg/linuxav/hotplug"
)

func watchNode(ctx context.Context, path string) error {
	err := hotplug.WaitRemoved(ctx, path)
	if errors.Is(err, hotplug.ErrRemoved) {
		return ErrDeviceRemoved
	}
	return err
}

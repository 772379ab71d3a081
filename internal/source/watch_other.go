//go:build !linux

package source

import (
	"context"
	"errors"
)

func watchNode(context.Context, string) error {
	return errors.New("hotplug monitoring is only available on linux")
}

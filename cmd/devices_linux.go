//go:build linux

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/ispsrc/internal/device/v4l2dev"
	"github.com/smazurov/ispsrc/internal/logging"
	"github.com/smazurov/ispsrc/pkg/linuxav/v4l2"
)

// deviceEntry is one line of the devices listing.
type deviceEntry struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	DeviceID string `json:"device_id"`
	Caps     string `json:"caps,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List V4L2 capture devices and the formats they offer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.GetLogger("device")

			found, err := v4l2.FindDevices()
			if err != nil {
				return err
			}

			entries := make([]deviceEntry, 0, len(found))
			for _, info := range found {
				entry := deviceEntry{
					Path:     info.DevicePath,
					Name:     info.DeviceName,
					Driver:   info.Driver,
					DeviceID: info.DeviceID,
				}
				dev := v4l2dev.New(info.DevicePath)
				if err := dev.Open(); err != nil {
					logger.Debug("Skipping device", "path", info.DevicePath, "error", err)
					entry.Error = err.Error()
					entries = append(entries, entry)
					continue
				}
				if set, err := dev.Caps(); err != nil {
					entry.Error = err.Error()
				} else {
					entry.Caps = set.String()
				}
				if err := dev.Close(); err != nil {
					logger.Warn("Failed to close device", "path", info.DevicePath, "error", err)
				}
				entries = append(entries, entry)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "no capture devices found")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s\t%s (%s)\t%s\n", e.Path, e.Name, e.Driver, e.DeviceID)
				if e.Error != "" {
					fmt.Fprintf(out, "\terror: %s\n", e.Error)
					continue
				}
				fmt.Fprintf(out, "\t%s\n", e.Caps)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

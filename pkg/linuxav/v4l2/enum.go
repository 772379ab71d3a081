//go:build linux

package v4l2

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FindDevices finds all V4L2 video capture devices on the system.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir("/sys/class/video4linux")
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	logger := slog.With("component", "linuxav")
	var devices []DeviceInfo

	for _, entry := range entries {
		devicePath := "/dev/" + entry.Name()

		dev, err := Open(devicePath)
		if err != nil {
			logger.Debug("failed to open video device", "path", devicePath, "error", err)
			continue
		}
		capability, err := dev.querycap()
		dev.Close()
		if err != nil {
			logger.Debug("failed to query device capabilities", "path", devicePath, "error", err)
			continue
		}

		caps := capability.capabilities
		if caps&CapDeviceCaps != 0 {
			caps = capability.deviceCaps
		}
		if caps&CapVideoCapture == 0 {
			continue
		}

		index := readSysfsInt(filepath.Join("/sys/class/video4linux", entry.Name(), "index"))
		stableID := findStableID(entry.Name(), index)
		if stableID == "" {
			busInfo := cstr(capability.busInfo[:])
			if strings.HasPrefix(busInfo, "usb-") {
				stableID = fmt.Sprintf("%s-video-index%d", busInfo, index)
			} else {
				stableID = fmt.Sprintf("platform-%s-video-index%d", busInfo, index)
			}
		}

		devices = append(devices, DeviceInfo{
			DevicePath: devicePath,
			DeviceName: cstr(capability.card[:]),
			Driver:     cstr(capability.driver[:]),
			DeviceID:   stableID,
			Caps:       caps,
		})
	}

	return devices, nil
}

// GetDevicePathByID finds the device path for a given stable device ID.
func GetDevicePathByID(deviceID string) (string, error) {
	devices, err := FindDevices()
	if err != nil {
		return "", fmt.Errorf("failed to find devices: %w", err)
	}
	for _, d := range devices {
		if d.DeviceID == deviceID {
			return d.DevicePath, nil
		}
	}
	return "", fmt.Errorf("device with ID %s not found", deviceID)
}

// findStableID looks for a stable ID symlink in /dev/v4l/by-id/.
func findStableID(deviceName string, index int) string {
	const byIDDir = "/dev/v4l/by-id"
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	suffix := fmt.Sprintf("-video-index%d", index)
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		target, err := os.Readlink(filepath.Join(byIDDir, entry.Name()))
		if err != nil {
			continue
		}
		if filepath.Base(target) == deviceName {
			return entry.Name()
		}
	}
	return ""
}

func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// Formats returns the pixel formats the device can capture.
func (d *Device) Formats() ([]FormatInfo, error) {
	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := v4l2Fmtdesc{index: i, typ: bufTypeVideoCapture}
		if err := ioctl(d.fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if endOfEnumeration(err) {
				break
			}
			return nil, fmt.Errorf("enumerate format %d: %w", i, err)
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			FormatName:  cstr(desc.description[:]),
			Emulated:    desc.flags&FmtFlagEmulated != 0,
			Compressed:  desc.flags&FmtFlagCompressed != 0,
		})
	}
	return formats, nil
}

// FrameSizes returns the frame sizes supported for pixelFormat. A device
// without size enumeration yields no entries.
func (d *Device) FrameSizes(pixelFormat uint32) ([]FrameSize, error) {
	var sizes []FrameSize
	for i := uint32(0); ; i++ {
		e := v4l2Frmsizeenum{index: i, pixelFormat: pixelFormat}
		if err := ioctl(d.fd, vidiocEnumFramesizes, unsafe.Pointer(&e)); err != nil {
			if endOfEnumeration(err) {
				break
			}
			if errors.Is(err, unix.ENOTTY) {
				return nil, nil
			}
			return nil, fmt.Errorf("enumerate frame size %d: %w", i, err)
		}

		switch e.typ {
		case frmsizeTypeDiscrete:
			ds := e.discrete()
			sizes = append(sizes, FrameSize{
				Discrete: true,
				MinWidth: ds.width, MaxWidth: ds.width,
				MinHeight: ds.height, MaxHeight: ds.height,
			})
		case frmsizeTypeContinuous, frmsizeTypeStepwise:
			sw := e.stepwise()
			return append(sizes, FrameSize{
				MinWidth: sw.minWidth, MaxWidth: sw.maxWidth, StepWidth: sw.stepWidth,
				MinHeight: sw.minHeight, MaxHeight: sw.maxHeight, StepHeight: sw.stepHeight,
			}), nil
		}
	}
	return sizes, nil
}

// FrameIntervals returns the frame intervals supported for pixelFormat at
// width x height.
func (d *Device) FrameIntervals(pixelFormat, width, height uint32) ([]FrameInterval, error) {
	var intervals []FrameInterval
	for i := uint32(0); ; i++ {
		e := v4l2Frmivalenum{index: i, pixelFormat: pixelFormat, width: width, height: height}
		if err := ioctl(d.fd, vidiocEnumFrameintervals, unsafe.Pointer(&e)); err != nil {
			if endOfEnumeration(err) {
				break
			}
			if errors.Is(err, unix.ENOTTY) {
				return nil, nil
			}
			return nil, fmt.Errorf("enumerate frame interval %d: %w", i, err)
		}

		switch e.typ {
		case frmivalTypeDiscrete:
			f := fract(*e.discrete())
			intervals = append(intervals, FrameInterval{Discrete: true, Min: f, Max: f})
		case frmivalTypeContinuous, frmivalTypeStepwise:
			sw := e.stepwise()
			return append(intervals, FrameInterval{
				Min:  fract(sw.min),
				Max:  fract(sw.max),
				Step: fract(sw.step),
			}), nil
		}
	}
	return intervals, nil
}

func fract(f v4l2Fract) Fract {
	return Fract{Numerator: f.numerator, Denominator: f.denominator}
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	return string([]byte{
		byte(format),
		byte(format >> 8),
		byte(format >> 16),
		byte(format >> 24),
	})
}

// FourCC packs a four-character code. Shorter codes are space padded.
func FourCC(code string) uint32 {
	b := []byte((code + "    ")[:4])
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

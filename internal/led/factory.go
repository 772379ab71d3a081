package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// board maps a device tree model substring to its LEDs. The first LED is
// the one used for capture status.
type board struct {
	model string
	leds  []ledName
}

type ledName struct {
	ledType string
	sysfs   string
}

var boards = []board{
	{model: "NanoPC-T6", leds: []ledName{{"system", "sys_led"}, {"user", "usr_led"}}},
	{model: "Orange Pi", leds: []ledName{{"green", "green_led"}, {"blue", "blue_led"}}},
	{model: "Raspberry Pi", leds: []ledName{{"act", "ACT"}}},
}

// New returns the controller for the running board and the LED type to
// use for capture status. Boards without known LEDs get a no-op
// controller and an empty type.
func New(logger *slog.Logger) (Controller, string) {
	return newForModel(detectBoard(), sysfsLEDPath, logger)
}

func newForModel(model, root string, logger *slog.Logger) (Controller, string) {
	for _, b := range boards {
		if !strings.Contains(model, b.model) {
			continue
		}
		leds := make(map[string]string, len(b.leds))
		for _, l := range b.leds {
			leds[l.ledType] = l.sysfs
		}
		logger.Info("Using sysfs LED controller", "board_model", model, "led", b.leds[0].ledType)
		return newSysfs(root, leds), b.leds[0].ledType
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger), ""
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	// Device tree strings are NUL terminated
	return strings.TrimRight(string(data), "\x00")
}

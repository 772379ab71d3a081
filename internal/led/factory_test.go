package led

import (
	"testing"
)

func TestNewForModel(t *testing.T) {
	tests := []struct {
		model   string
		wantLED string
		sysfs   bool
	}{
		{"FriendlyElec NanoPC-T6", "system", true},
		{"Orange Pi 5 Plus", "green", true},
		{"Raspberry Pi 4 Model B Rev 1.4", "act", true},
		{"unknown", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			ctrl, ledType := newForModel(tt.model, t.TempDir(), testLogger())
			if ledType != tt.wantLED {
				t.Errorf("led type = %q, want %q", ledType, tt.wantLED)
			}
			_, isSysfs := ctrl.(*sysfs)
			if isSysfs != tt.sysfs {
				t.Errorf("sysfs controller = %v, want %v", isSysfs, tt.sysfs)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	if model := detectBoard(); model == "" {
		t.Error("detectBoard() returned empty string")
	}
}

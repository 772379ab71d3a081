package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// testOptions mirrors the shape of the command options.
type testOptions struct {
	Config string `help:"Config file path"`

	Device    string   `toml:"source.device" env:"DEVICE"`
	Metrics   bool     `toml:"metrics.enabled" env:"METRICS"`
	Buffers   int      `toml:"source.buffers" env:"BUFFERS"`
	Ratio     float64  `toml:"source.ratio" env:"RATIO"`
	Modules   []string `toml:"logging.modules" env:"MODULES"`
	PeerCaps  string   `toml:"source.peer_caps" env:"PEER_CAPS"`
	unexposed string   `toml:"source.unexposed"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ispsrc.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleTOML = `
[source]
device = "v4l2:///dev/video1"
buffers = 6
ratio = 1.5
peer_caps = "video/x-raw, width=640"
unexposed = "x"

[metrics]
enabled = true

[logging]
modules = ["source", "device"]
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Device != "v4l2:///dev/video1" {
		t.Errorf("Device = %q", opts.Device)
	}
	if !opts.Metrics {
		t.Error("Metrics = false, want true")
	}
	if opts.Buffers != 6 {
		t.Errorf("Buffers = %d, want 6", opts.Buffers)
	}
	if opts.Ratio != 1.5 {
		t.Errorf("Ratio = %v, want 1.5", opts.Ratio)
	}
	if !reflect.DeepEqual(opts.Modules, []string{"source", "device"}) {
		t.Errorf("Modules = %v", opts.Modules)
	}
	if opts.PeerCaps != "video/x-raw, width=640" {
		t.Errorf("PeerCaps = %q", opts.PeerCaps)
	}
	if opts.unexposed != "" {
		t.Error("unexported field was set")
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	t.Setenv("ISPSRC_DEVICE", "sim://")
	t.Setenv("ISPSRC_METRICS", "false")
	t.Setenv("ISPSRC_MODULES", " api , config ")

	opts := &testOptions{Config: writeConfig(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Device != "sim://" {
		t.Errorf("Device = %q, want env override", opts.Device)
	}
	if opts.Metrics {
		t.Error("Metrics = true, want env override false")
	}
	if !reflect.DeepEqual(opts.Modules, []string{"api", "config"}) {
		t.Errorf("Modules = %v", opts.Modules)
	}
	if opts.Buffers != 6 {
		t.Errorf("Buffers = %d, want 6 from TOML", opts.Buffers)
	}
}

func TestLoadConfigFlagsWin(t *testing.T) {
	t.Setenv("ISPSRC_DEVICE", "sim://")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("device", "", "")
	cmd.Flags().Int("buffers", 0, "")
	if err := cmd.Flags().Parse([]string{"--device", "v4l2:///dev/video9"}); err != nil {
		t.Fatal(err)
	}

	opts := &testOptions{Config: writeConfig(t, sampleTOML), Device: "v4l2:///dev/video9"}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Device != "v4l2:///dev/video9" {
		t.Errorf("Device = %q, want the CLI value", opts.Device)
	}
	if opts.Buffers != 6 {
		t.Errorf("Buffers = %d, want 6 from TOML", opts.Buffers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "nonexistent.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, "[source\ninvalid toml syntax\n")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Device":       "device",
		"LoggingLevel": "logging-level",
		"PeerCapsFile": "peer-caps-file",
		"URI":          "uri",
		"LoggingAPI":   "logging-api",
		"HTTPPort":     "http-port",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{"value": "nested_value"},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"level1.nonexistent", nil},
		{"root.below", nil},
	}

	for _, test := range tests {
		if result := getNestedValue(data, test.path); result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestSetFieldValueFromString(t *testing.T) {
	type target struct {
		Int   int
		Float float64
		Bool  bool
	}
	s := &target{Int: 1, Float: 1, Bool: true}
	v := reflect.ValueOf(s).Elem()

	setFieldValueFromString(v.FieldByName("Int"), "not a number")
	setFieldValueFromString(v.FieldByName("Float"), "2.25")
	setFieldValueFromString(v.FieldByName("Bool"), "maybe")

	if s.Int != 1 {
		t.Errorf("Int = %d, invalid input must be ignored", s.Int)
	}
	if s.Float != 2.25 {
		t.Errorf("Float = %v, want 2.25", s.Float)
	}
	if !s.Bool {
		t.Error("Bool changed on invalid input")
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
source = "debug"
timestamp = "error"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("Level/Format = %s/%s", cfg.Level, cfg.Format)
	}
	want := map[string]string{"source": "debug", "timestamp": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	if def := LoadLoggingConfig(""); def.Level != "info" || def.Format != "text" {
		t.Errorf("default = %+v", def)
	}
}

func TestLoadPeerCaps(t *testing.T) {
	path := writeConfig(t, "[peer]\ncaps = \"video/x-raw, format=NV12, width=1280, height=720\"\n")
	set, err := LoadPeerCaps(path)
	if err != nil {
		t.Fatal(err)
	}
	if w, h, ok := set[0].Size(); !ok || w != 1280 || h != 720 {
		t.Errorf("peer = %s", set)
	}

	empty, err := LoadPeerCaps(writeConfig(t, "[peer]\n"))
	if err != nil || empty != nil {
		t.Errorf("empty peer = %v, %v; want nil, nil", empty, err)
	}

	if _, err := LoadPeerCaps(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}
}

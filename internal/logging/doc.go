// Package logging provides slog loggers with a level per module.
//
// Records go to the systemd journal when journald is reachable, to stdout
// when it is attached to a terminal, pipe or file, and to both through a
// [TeeHandler] when both are present.
//
// Initialize once at startup, then fetch loggers by module name:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"timestamp": "debug"},
//	})
//	logger := logging.GetLogger("source").With("device", "/dev/video0")
//
// A module without an override follows Level. [SetModuleLevel] changes a
// module at runtime, which loggers already handed out observe.
//
// The modules used by ispsrc are source, device, negotiate, allocation,
// timestamp, sequence, api, http, config, led and main. In ispsrc.toml
// they are set under [logging]:
//
//	[logging]
//	level = "info"
//	timestamp = "debug"
//
// Journal entries carry the module as MODULE= and attributes as upper
// case fields, so journalctl -t ispsrc MODULE=timestamp filters one module.
package logging

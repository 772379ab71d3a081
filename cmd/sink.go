package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/source"
)

// NewFileSink returns a frame sink appending payloads to path. An empty
// path discards payloads and only logs frames at debug level. The returned
// function closes the file.
func NewFileSink(path string, logger *slog.Logger) (source.FrameSink, func(), error) {
	logFrame := func(f *media.Frame) {
		logger.Debug("Frame", "offset", f.Offset, "pts", f.Timestamp, "duration", f.Duration, "size", len(f.Payload))
	}

	if path == "" {
		return func(f *media.Frame) error {
			logFrame(f)
			return nil
		}, func() {}, nil
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	sink := func(f *media.Frame) error {
		logFrame(f)
		if _, err := file.Write(f.Payload); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	closeFn := func() {
		if err := file.Close(); err != nil {
			logger.Warn("Failed to close output", "path", path, "error", err)
		}
	}
	return sink, closeFn, nil
}

// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a JSON slog handler tagged with the service name as the
// default logger. Debug records are kept only when debug is set.
func Setup(service string, debug bool) *slog.Logger {
	return SetupWriter(os.Stdout, service, debug)
}

func SetupWriter(w io.Writer, service string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).
		With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}

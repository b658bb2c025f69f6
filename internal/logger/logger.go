// file: internal/logger/logger.go
// version: 1.0.0
// guid: 8f3f7918-aebd-45a1-bf2d-f90d46d5752d

// Package logger configures the process-wide logrus logger and hands out
// component-scoped entries.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup configures level and output format. format is "text" (default) or "json".
func Setup(level, format string) error {
	return SetupWithOutput(level, format, os.Stderr)
}

// SetupWithOutput is Setup with an explicit writer; tests use it to capture output.
func SetupWithOutput(level, format string, out io.Writer) error {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	log.SetLevel(lvl)
	log.SetOutput(out)
	return nil
}

// For returns an entry tagged with the component name.
func For(component string) *log.Entry {
	return log.WithField("component", component)
}

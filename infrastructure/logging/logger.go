// Package logging builds the zerolog logger shared by the commands.
package logging

import (
	"io"
	"strings"
	"time"

	"video-input-form/infrastructure/config"

	"github.com/rs/zerolog"
)

// New creates a logger from cfg writing to out. Unknown levels fall back to info.
func New(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, config.LogFormatJSON) {
		return zerolog.New(out).With().Timestamp().Logger().Level(level)
	}

	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	return zerolog.New(console).With().Timestamp().Logger().Level(level)
}

// Package logger wraps zerolog.Logger for lockpass.
//
// The CLI logs diagnostics to stderr so that stdout stays reserved for
// command output. Passphrases and record contents are never logged.
package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New returns a console logger writing to w at the given level
// ("debug", "info", "warn", "error", "disabled"). An unknown level falls
// back to warn.
func New(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()

	return &Logger{l}
}

// Nop returns a *Logger that discards all log output.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// With returns a child logger carrying component as a field.
func (l *Logger) With(component string) *Logger {
	return &Logger{l.Logger.With().Str("component", component).Logger()}
}

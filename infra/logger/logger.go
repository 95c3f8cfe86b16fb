package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/derval/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards every message.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// SetLevel sets the global minimum level from its name ("debug", "info",
// "warn", "error"). An empty name keeps the current level.
func SetLevel(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

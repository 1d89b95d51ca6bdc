package log

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger bound to a component name. The component is
// attached once at construction, so every record carries it without the
// call sites having to repeat it.
type Logger struct {
	*slog.Logger
	component string
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig returns text logging to stdout at Info level.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
	}
}

// New creates a logger from the given configuration. A nil Handler means
// a text handler on stdout at config.Level.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}

	base := slog.New(handler)
	if config.Component != "" {
		base = base.With("component", config.Component)
	}

	return &Logger{
		Logger:    base,
		component: config.Component,
	}
}

// With returns a logger carrying the given attributes in addition to
// the component.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

// WithComponent returns a logger relabeled with a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger as the process-wide slog default, so
// packages logging through the slog package functions pick it up too.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

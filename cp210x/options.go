package cp210x

import "time"

// Logger is an optional logging interface. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config holds the activator configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// Sleep waits out the settle delays. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

func defaultConfig() Config {
	return Config{
		Sleep: time.Sleep,
	}
}

// Option is a functional option for configuring the Activator.
type Option func(*Config)

// WithLogger sets a logger for the activation steps.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithSleep replaces the function used to wait between latch writes.
// Tests use it to record the settle delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}

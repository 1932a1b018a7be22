package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}

	if cfg.Interface < -1 || cfg.Interface > 1 {
		ve.Add("interface must be 0 (ECI) or 1 (SCI), got %d", cfg.Interface)
	}

	switch strings.ToLower(cfg.Checksum) {
	case "crc16", "sum8":
	default:
		ve.Add("checksum must be crc16 or sum8, got %q", cfg.Checksum)
	}

	if cfg.Timeouts.Sentinel <= 0 {
		ve.Add("timeouts.sentinel must be > 0")
	}
	if cfg.Timeouts.Line <= 0 {
		ve.Add("timeouts.line must be > 0")
	}
	if cfg.Timeouts.Ack <= 0 {
		ve.Add("timeouts.ack must be > 0")
	}

	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level must be debug, info, warn or error, got %q", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json":
	default:
		ve.Add("logger.format must be text or json, got %q", cfg.Logger.Format)
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

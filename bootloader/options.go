package bootloader

import (
	"context"
	"time"

	"github.com/moffa90/go-ncpflash/protocol"
	"github.com/moffa90/go-ncpflash/serialport"
)

// MenuSettle is the fixed pause after selecting the upload option, giving
// the bootloader time to print its banner and start the receiver.
const MenuSettle = 1 * time.Second

// PortOpener opens a serial port by name.
type PortOpener func(name string) (serialport.Port, error)

// Config holds the flasher configuration.
type Config struct {
	// ProgressCallback is called during the upload to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// SentinelTimeout bounds the wait for the receiver's start request
	SentinelTimeout time.Duration

	// LineTimeout bounds each menu line read
	LineTimeout time.Duration

	// AckTimeout bounds the wait for each block acknowledgment
	AckTimeout time.Duration

	// ChecksumMode selects the block trailer
	ChecksumMode protocol.ChecksumMode

	// PortOpener opens the serial port. Defaults to serialport.Open.
	PortOpener PortOpener

	// Sleep waits out MenuSettle. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		SentinelTimeout: 10 * time.Second,
		LineTimeout:     2 * time.Second,
		AckTimeout:      10 * time.Second,
		ChecksumMode:    protocol.ChecksumCRC16, // 'C' requests XMODEM-CRC
		PortOpener:      serialport.Open,
		Sleep:           sleepContext,
	}
}

// Option is a functional option for configuring the Flasher.
type Option func(*Config)

// WithProgressCallback sets a callback function to track upload progress.
//
// Example:
//
//	fl := bootloader.New(
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the flasher operations.
//
// Example:
//
//	fl := bootloader.New(bootloader.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithSentinelTimeout sets how long to wait for the receiver to request the
// first block. Default is 10 seconds.
func WithSentinelTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.SentinelTimeout = timeout
		}
	}
}

// WithLineTimeout sets the timeout for each menu line read.
// Default is 2 seconds.
func WithLineTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.LineTimeout = timeout
		}
	}
}

// WithAckTimeout sets how long to wait for each block acknowledgment.
// Default is 10 seconds.
//
// Example:
//
//	fl := bootloader.New(bootloader.WithAckTimeout(3*time.Second))
func WithAckTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.AckTimeout = timeout
		}
	}
}

// WithChecksumMode selects the block trailer. Default is CRC-16, matching
// the 'C' start request of the Gecko bootloader.
func WithChecksumMode(mode protocol.ChecksumMode) Option {
	return func(c *Config) {
		c.ChecksumMode = mode
	}
}

// WithPortOpener replaces the function used to open the serial port.
//
// Example:
//
//	fl := bootloader.New(bootloader.WithPortOpener(func(string) (serialport.Port, error) {
//	    return simulatedPort, nil
//	}))
func WithPortOpener(opener PortOpener) Option {
	return func(c *Config) {
		if opener != nil {
			c.PortOpener = opener
		}
	}
}

// WithSleep replaces the function used to wait out MenuSettle.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

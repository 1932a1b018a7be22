package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port settings required by the Gecko bootloader UART.
const (
	// BaudRate is the bootloader UART speed
	BaudRate = 115200

	// DataBits per character
	DataBits = 8

	// DefaultReadTimeout bounds a single Read call on a freshly opened port
	DefaultReadTimeout = 100 * time.Millisecond

	// maxPollInterval caps each Read while waiting for a deadline so
	// context cancellation is observed promptly.
	maxPollInterval = 100 * time.Millisecond
)

// ErrTimeout is returned when no data arrives before a read deadline.
var ErrTimeout = errors.New("serial read timed out")

// Port is the subset of go.bug.st/serial.Port used by the flasher.
// serial.Port satisfies it; tests provide fakes.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout sets the timeout of subsequent Read calls.
	// A Read that times out returns 0 bytes and a nil error.
	SetReadTimeout(t time.Duration) error

	// ResetInputBuffer discards unread input.
	ResetInputBuffer() error
}

// Open opens the named serial port at 115200 baud, 8 data bits, no parity,
// one stop bit and no flow control.
func Open(name string) (Port, error) {
	if name == "" {
		return nil, errors.New("serial port is empty")
	}

	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}

	return port, nil
}

// ReadByte reads a single byte, waiting at most timeout.
// Returns ErrTimeout if nothing arrived.
func ReadByte(ctx context.Context, port Port, timeout time.Duration) (byte, error) {
	var buf [1]byte
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, ErrTimeout
		}
		if err := port.SetReadTimeout(min(remaining, maxPollInterval)); err != nil {
			return 0, fmt.Errorf("set serial read timeout: %w", err)
		}

		n, err := port.Read(buf[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return buf[0], nil
		}
	}
}

// ReadLine reads bytes up to and including '\n', waiting at most timeout
// for the whole line. The returned line has trailing CR/LF removed.
//
// On timeout the partial line is returned together with ErrTimeout, the
// same way a serial readline with a timeout hands back what it got.
func ReadLine(ctx context.Context, port Port, timeout time.Duration) (string, error) {
	var line []byte
	deadline := time.Now().Add(timeout)

	for {
		b, err := ReadByte(ctx, port, time.Until(deadline))
		if err != nil {
			return trimEOL(line), err
		}
		if b == '\n' {
			return trimEOL(line), nil
		}
		line = append(line, b)
	}
}

// WriteAll writes buf completely.
func WriteAll(ctx context.Context, w io.Writer, buf []byte) error {
	written := 0
	for written < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := w.Write(buf[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		written += n
	}
	return nil
}

func trimEOL(line []byte) string {
	for len(line) > 0 && (line[len(line)-1] == '\r' || line[len(line)-1] == '\n') {
		line = line[:len(line)-1]
	}
	return string(line)
}

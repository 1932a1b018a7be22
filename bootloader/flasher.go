package bootloader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-ncpflash/firmware"
	"github.com/moffa90/go-ncpflash/protocol"
	"github.com/moffa90/go-ncpflash/serialport"
)

// Flasher uploads a firmware image to a Gecko bootloader over its serial
// menu. It drives the menu, sends the image with XMODEM and selects the run
// option when the upload succeeded.
//
// Flasher is not safe for concurrent use.
type Flasher struct {
	config Config
	state  State
	start  time.Time
}

// New creates a new Flasher with the given options.
//
// Example:
//
//	fl := bootloader.New(
//	    bootloader.WithLogger(slog.Default()),
//	    bootloader.WithProgressCallback(progressFunc),
//	)
//	err := fl.Flash(ctx, "/dev/ttyUSB0", "ncp.gbl")
func New(opts ...Option) *Flasher {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Flasher{
		config: cfg,
		state:  StateAwaitingPrompt,
	}
}

// State returns the menu state reached by the last operation.
func (f *Flasher) State() State {
	return f.state
}

// Flash performs the complete upload sequence:
//  1. Validate the firmware file
//  2. Open the serial port at 115200 8N1
//  3. Drive the menu into upload mode and wait for the start request
//  4. Send the image
//  5. Select the run option
//
// The run option is only selected when the transfer succeeded. The port and
// the file are closed on every path.
//
// Example:
//
//	err := fl.Flash(ctx, "/dev/ttyUSB1", "ncp.gbl")
//	if errors.Is(err, bootloader.ErrHandshakeTimeout) {
//	    // target is not in the bootloader
//	}
func (f *Flasher) Flash(ctx context.Context, portName, filePath string) (err error) {
	f.state = StateAwaitingPrompt
	defer func() {
		if err != nil {
			f.state = StateFailed
		}
	}()

	img, err := firmware.Open(filePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := img.Close(); cerr != nil {
			f.logError("close firmware", "path", filePath, "error", cerr)
		}
	}()

	port, err := f.config.PortOpener(portName)
	if err != nil {
		return fmt.Errorf("open serial port: %w", err)
	}
	defer func() {
		if cerr := port.Close(); cerr != nil {
			f.logError("close serial port", "port", portName, "error", cerr)
		}
	}()

	f.logInfo("flashing",
		"image", img.String(),
		"blocks", img.Blocks(),
		"port", portName,
	)

	if err := f.Handshake(ctx, port); err != nil {
		return err
	}

	if err := f.Transfer(ctx, port, img, img.Size); err != nil {
		f.logError("upload failed, reload a correct image to recover", "error", err)
		return err
	}

	return f.reboot(ctx, port)
}

// Handshake walks the bootloader menu into upload mode and waits for the
// receiver to request the first block. Menu lines are consumed by count;
// their content is not validated.
//
// On failure the returned error is a *HandshakeError; a missing start
// request matches ErrHandshakeTimeout.
func (f *Flasher) Handshake(ctx context.Context, port serialport.Port) error {
	f.state = StateAwaitingPrompt
	f.reportProgress(Progress{Phase: PhaseHandshake, State: f.state})

	// kick the prompt
	if err := serialport.WriteAll(ctx, port, []byte{'\n'}); err != nil {
		return f.handshakeError(fmt.Errorf("write prompt: %w", err))
	}

	// blank line, version line, three menu lines
	if _, err := f.expectLines(ctx, port, 1); err != nil {
		return f.handshakeError(err)
	}
	version, err := f.expectLines(ctx, port, 1)
	if err != nil {
		return f.handshakeError(err)
	}
	f.logInfo("bootloader version", "version", version[0])

	menu, err := f.expectLines(ctx, port, 3)
	if err != nil {
		return f.handshakeError(err)
	}
	f.logDebug("bootloader menu", "lines", menu)
	f.setState(StateMenuDisplayed)

	if err := serialport.WriteAll(ctx, port, []byte{protocol.MenuUpload}); err != nil {
		return f.handshakeError(fmt.Errorf("select upload: %w", err))
	}
	if err := f.config.Sleep(ctx, MenuSettle); err != nil {
		return f.handshakeError(err)
	}

	// echo of the selection and the upload banner
	if _, err := f.expectLines(ctx, port, 2); err != nil {
		return f.handshakeError(err)
	}
	f.setState(StateUploadModeSelected)

	if err := f.waitSentinel(ctx, port); err != nil {
		return f.handshakeError(err)
	}

	// drop repeated start requests queued while we were reading
	if err := port.ResetInputBuffer(); err != nil {
		return f.handshakeError(fmt.Errorf("reset input buffer: %w", err))
	}

	f.setState(StateReadyForData)
	f.logInfo("bootloader ready, starting upload", "checksum", f.config.ChecksumMode.String())

	return nil
}

// expectLines reads n lines, each bounded by LineTimeout. A line that times
// out is returned as far as it was read; only the cadence matters.
func (f *Flasher) expectLines(ctx context.Context, port serialport.Port, n int) ([]string, error) {
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := serialport.ReadLine(ctx, port, f.config.LineTimeout)
		if err != nil && !errors.Is(err, serialport.ErrTimeout) {
			return lines, fmt.Errorf("read menu line: %w", err)
		}
		if err != nil {
			f.logDebug("menu line timed out", "partial", line)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// waitSentinel polls single bytes until the receiver sends the start request
// matching the configured checksum mode.
func (f *Flasher) waitSentinel(ctx context.Context, port serialport.Port) error {
	deadline := time.Now().Add(f.config.SentinelTimeout)

	for {
		b, err := serialport.ReadByte(ctx, port, time.Until(deadline))
		if errors.Is(err, serialport.ErrTimeout) {
			return ErrHandshakeTimeout
		}
		if err != nil {
			return fmt.Errorf("wait for start request: %w", err)
		}

		if mode, ok := protocol.ModeForStart(b); ok && mode == f.config.ChecksumMode {
			return nil
		}
		f.logDebug("ignoring byte while waiting for start request", "byte", fmt.Sprintf("0x%02X", b))
	}
}

// reboot selects the run option of the menu.
func (f *Flasher) reboot(ctx context.Context, port serialport.Port) error {
	f.reportProgress(Progress{Phase: PhaseRebooting, State: f.state, Percentage: 100})

	if err := serialport.WriteAll(ctx, port, []byte{protocol.MenuRun}); err != nil {
		return fmt.Errorf("select run: %w", err)
	}

	f.setState(StateDone)
	f.reportProgress(Progress{
		Phase:       PhaseComplete,
		State:       f.state,
		Percentage:  100,
		ElapsedTime: f.elapsed(),
	})
	f.logInfo("upload complete, rebooting target")

	return nil
}

func (f *Flasher) handshakeError(err error) error {
	return &HandshakeError{State: f.state, Err: err}
}

func (f *Flasher) setState(s State) {
	f.logDebug("bootloader state", "from", f.state.String(), "to", s.String())
	f.state = s
}

func (f *Flasher) elapsed() time.Duration {
	if f.start.IsZero() {
		return 0
	}
	return time.Since(f.start)
}

// reportProgress calls the progress callback if configured.
func (f *Flasher) reportProgress(progress Progress) {
	if f.config.ProgressCallback != nil {
		f.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (f *Flasher) logDebug(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (f *Flasher) logInfo(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (f *Flasher) logError(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Error(msg, keysAndValues...)
	}
}

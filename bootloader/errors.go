package bootloader

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshakeTimeout means the receiver never asked for the first block.
	ErrHandshakeTimeout = errors.New("bootloader did not request data in time")

	// ErrTransferFailed is matched by every *TransferError via errors.Is.
	ErrTransferFailed = errors.New("firmware transfer failed")
)

// HandshakeError indicates a failure while driving the bootloader menu.
type HandshakeError struct {
	// State is the menu state reached before the failure
	State State

	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("bootloader handshake failed (%s): %v", e.State, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// TransferError indicates the block transfer was aborted.
type TransferError struct {
	// Block is the 1-based block being sent, 0 for the end of transmission
	Block int

	// Attempts is the number of times the block was transmitted
	Attempts int

	Err error
}

func (e *TransferError) Error() string {
	what := fmt.Sprintf("block %d", e.Block)
	if e.Block == 0 {
		what = "end of transmission"
	}
	return fmt.Sprintf("transfer failed at %s after %d attempt(s): %v", what, e.Attempts, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransferFailed.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}

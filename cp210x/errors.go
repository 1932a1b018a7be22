package cp210x

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceNotFound means no supported bridge is attached.
	ErrDeviceNotFound = errors.New("no supported CP210x bridge found")

	// ErrInterfaceRequired means a dual-interface bridge was found but no
	// interface was selected.
	ErrInterfaceRequired = errors.New("bridge has two interfaces: an interface index (0 or 1) is required")

	// ErrTransport is matched by every *TransportError via errors.Is.
	ErrTransport = errors.New("usb transport error")
)

// TransportError indicates a USB failure while talking to the bridge.
type TransportError struct {
	// Op is the failed operation
	Op string

	// Step is the 1-based latch write that failed, 0 outside the sequence
	Step int

	// Command is the latch write that failed
	Command LatchCommand

	Err error
}

func (e *TransportError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("usb %s (step %d, %s): %v", e.Op, e.Step, e.Command, e.Err)
	}
	return fmt.Sprintf("usb %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// InvalidInterfaceError indicates an interface index the bridge does not have.
type InvalidInterfaceError struct {
	Bridge    string
	Interface int
}

func (e *InvalidInterfaceError) Error() string {
	return fmt.Sprintf("%s has no interface %d: valid interfaces are 0 (ECI) and 1 (SCI)",
		e.Bridge, e.Interface)
}

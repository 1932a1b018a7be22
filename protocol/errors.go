package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when the receiver cancels the transfer with
	// two consecutive CAN bytes.
	ErrCancelled = errors.New("transfer cancelled by receiver")

	// ErrBadFrame is returned by DecodeBlock for malformed blocks.
	ErrBadFrame = errors.New("malformed block")
)

// ProtocolError represents an unexpected receiver response.
type ProtocolError struct {
	// Operation is the protocol step that failed
	Operation string

	// Response is what the receiver answered
	Response Response

	// Byte is the raw byte received, if any
	Byte byte
}

func (e *ProtocolError) Error() string {
	if e.Response == ResponseNone {
		return fmt.Sprintf("%s failed: %s", e.Operation, e.Response)
	}
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, e.Response, e.Byte)
}

// IsProtocolError returns true if the error is a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

package firmware

import (
	"errors"
	"fmt"
)

// ErrInvalidFile is matched by every *InvalidFileError via errors.Is.
var ErrInvalidFile = errors.New("invalid firmware file")

// InvalidFileError indicates that the firmware path cannot be used.
type InvalidFileError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("firmware file %q %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("firmware file %q %s", e.Path, e.Reason)
}

func (e *InvalidFileError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidFile.
func (e *InvalidFileError) Is(target error) bool {
	return target == ErrInvalidFile
}

package bootloader

import "time"

// Phase names reported in Progress.Phase.
const (
	PhaseHandshake    = "handshake"
	PhaseTransferring = "transferring"
	PhaseRebooting    = "rebooting"
	PhaseComplete     = "complete"
)

// Progress contains information about the upload progress.
// Passed to ProgressCallback during Flash and Transfer.
type Progress struct {
	// Phase describes the current operation phase:
	//   "handshake"    - Driving the bootloader menu
	//   "transferring" - Sending XMODEM blocks
	//   "rebooting"    - Selecting the run option
	//   "complete"     - Operation completed successfully
	Phase string

	// State is the bootloader menu state at the time of the report
	State State

	// Block is the last acknowledged block (1-based, 0 before the first)
	Block int

	// TotalBlocks is the number of blocks the image occupies
	TotalBlocks int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesSent is the number of image bytes acknowledged so far
	BytesSent int64

	// Retries is the total number of retransmissions so far
	Retries int

	// ElapsedTime is the time elapsed since the transfer started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every acknowledged block and on phase
// changes. Implementations should return quickly; the receiver is waiting.
//
// Example:
//
//	fl := bootloader.New(
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Block %d/%d\n",
//	            p.Phase, p.Percentage, p.Block, p.TotalBlocks)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the flasher.
// *slog.Logger satisfies it.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	fl := bootloader.New(bootloader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

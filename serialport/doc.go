// Package serialport opens the bootloader UART through go.bug.st/serial and
// provides the small timed read helpers the flasher needs: single bytes
// and lines, each bounded by a deadline. It also lists USB serial ports by
// vendor ID for the scan command.
package serialport

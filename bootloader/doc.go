// Package bootloader uploads firmware images to a Silicon Labs Gecko
// bootloader through its serial menu.
//
// # Overview
//
// This package orchestrates the complete upload sequence:
//   - Validating the firmware file before touching the port
//   - Opening the serial port at 115200 8N1
//   - Driving the bootloader menu into upload mode
//   - Sending the image with XMODEM (128-byte blocks, retried)
//   - Selecting the run option to boot the new image
//
// The target must already be running its bootloader. Package cp210x can
// force it there through the USB bridge GPIOs.
//
// # Basic Usage
//
//	fl := bootloader.New()
//	err := fl.Flash(context.Background(), "/dev/ttyUSB0", "ncp.gbl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
//	fl := bootloader.New(
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Block %d/%d\n",
//	            p.Phase, p.Percentage, p.Block, p.TotalBlocks)
//	    }),
//	)
//
// # Configuration Options
//
//	fl := bootloader.New(
//	    bootloader.WithLogger(slog.Default()),
//	    bootloader.WithSentinelTimeout(10*time.Second),
//	    bootloader.WithLineTimeout(2*time.Second),
//	    bootloader.WithAckTimeout(10*time.Second),
//	    bootloader.WithChecksumMode(protocol.ChecksumCRC16),
//	)
//
// # Menu Protocol
//
// After a newline the bootloader prints a blank line, its version and a
// three-entry menu. Selecting '1' echoes the choice, prints a banner and
// then emits 'C' to request the first CRC block. Lines are consumed by
// count only; their text is not interpreted apart from logging the version.
//
// # Error Handling
//
// The package provides structured error types:
//   - firmware.InvalidFileError: the image path is unusable (port untouched)
//   - HandshakeError: the menu did not reach upload mode; wraps
//     ErrHandshakeTimeout when the start request never came
//   - TransferError: a block or the EOT ran out of retries, or the receiver
//     cancelled; matches ErrTransferFailed
//
// After a TransferError the target stays in its bootloader; run Flash again
// with a correct image to recover.
package bootloader

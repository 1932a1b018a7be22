// Package protocol implements the XMODEM wire format spoken by the Gecko
// bootloader over its UART.
//
// # Protocol Overview
//
// The receiver starts the transfer by sending 'C' (CRC-16 mode) or NAK
// (8-bit checksum mode). The sender then transmits fixed 128-byte blocks:
//
//	[SOH][SEQ][255-SEQ][DATA(128)][CHECKSUM]
//
// Where:
//   - SOH = Start of Header (0x01)
//   - SEQ = block number, starting at 1 and wrapping modulo 256
//   - DATA = payload, the last block padded with 0x1A
//   - CHECKSUM = 1-byte sum or 2-byte big-endian CRC-16/XMODEM
//
// Every block is answered with ACK or NAK. The sender ends the transfer with
// EOT, which must also be acknowledged. Two consecutive CAN bytes cancel.
//
// # Block Builders
//
// Use EncodeBlock to create block frames:
//
//	frame, err := protocol.EncodeBlock(seq, data, protocol.ChecksumCRC16)
//
// DecodeBlock is the receiver-side counterpart, useful for simulated targets.
//
// # Bootloader Menu
//
// MenuUpload and MenuRun are the single-character menu selections used to
// enter upload mode and to reboot into the application.
package protocol

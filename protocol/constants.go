package protocol

// Control characters of the XMODEM transfer protocol.
const (
	// SOH starts a 128-byte data block
	SOH = 0x01

	// EOT ends the transfer
	EOT = 0x04

	// ACK acknowledges a block (or the EOT)
	ACK = 0x06

	// NAK rejects a block, or requests checksum mode at start
	NAK = 0x15

	// CAN cancels the transfer (sent twice)
	CAN = 0x18

	// CRC is the start request for CRC-16 mode ('C'). The Gecko bootloader
	// sends it repeatedly once upload mode is selected.
	CRC = 0x43

	// PadByte fills the unused tail of the last block (CP/M EOF)
	PadByte = 0x1A
)

// Block layout.
const (
	// BlockSize is the fixed data payload of a block
	BlockSize = 128

	// HeaderSize is SOH(1) + SEQ(1) + ^SEQ(1)
	HeaderSize = 3

	// FirstSequence is the sequence number of the first block. Sequence
	// numbers wrap modulo 256 after that.
	FirstSequence = 1
)

// MaxRetries is the number of retransmissions allowed for a single block
// (and for the final EOT) before the transfer is aborted.
const MaxRetries = 8

// Bootloader menu selections for the Gecko bootloader UART menu.
const (
	// MenuUpload selects "upload gbl"
	MenuUpload = '1'

	// MenuRun selects "run" and reboots into the application
	MenuRun = '2'

	// MenuInfo selects "ebl info"
	MenuInfo = '3'
)

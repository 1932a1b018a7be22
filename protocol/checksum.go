package protocol

import (
	"fmt"
	"strings"
)

// ChecksumMode selects the block trailer format.
type ChecksumMode int

const (
	// ChecksumSum8 appends a single byte: the arithmetic sum of the data
	// bytes modulo 256. Used when the receiver starts the transfer with NAK.
	ChecksumSum8 ChecksumMode = iota

	// ChecksumCRC16 appends the 16-bit CRC of the data, big-endian. Used
	// when the receiver starts the transfer with 'C'.
	ChecksumCRC16
)

// CRC-16/XMODEM parameters.
const (
	// CRC16Polynomial is the CCITT polynomial (x^16 + x^12 + x^5 + 1)
	CRC16Polynomial = 0x1021

	// CRC16InitialValue is zero for XMODEM (unlike CCITT-FALSE)
	CRC16InitialValue = 0x0000

	// CRC16HighBitMask is the high bit mask for CRC-16 calculations
	CRC16HighBitMask = 0x8000

	// BitsPerByte is the number of bits per byte
	BitsPerByte = 8
)

// String returns the mode name.
func (m ChecksumMode) String() string {
	switch m {
	case ChecksumSum8:
		return "sum8"
	case ChecksumCRC16:
		return "crc16"
	default:
		return fmt.Sprintf("ChecksumMode(%d)", int(m))
	}
}

// ParseChecksumMode parses a mode name as returned by String.
func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch strings.ToLower(s) {
	case "sum8":
		return ChecksumSum8, nil
	case "crc16", "crc":
		return ChecksumCRC16, nil
	default:
		return 0, fmt.Errorf("unknown checksum mode %q", s)
	}
}

// TrailerSize returns the number of checksum bytes appended to a block.
func (m ChecksumMode) TrailerSize() int {
	if m == ChecksumCRC16 {
		return 2
	}
	return 1
}

// ModeForStart returns the checksum mode requested by a receiver start byte.
// Only NAK and 'C' are valid start bytes.
func ModeForStart(b byte) (ChecksumMode, bool) {
	switch b {
	case NAK:
		return ChecksumSum8, true
	case CRC:
		return ChecksumCRC16, true
	default:
		return 0, false
	}
}

// Sum8 computes the 8-bit arithmetic checksum of data.
func Sum8(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// CRC16 computes the CRC-16/XMODEM of data.
//
// Parameters:
//   - Polynomial: CRC16Polynomial
//   - Initial value: CRC16InitialValue
//   - No reflection, no final XOR
func CRC16(data []byte) uint16 {
	var crc uint16 = CRC16InitialValue

	for _, b := range data {
		crc ^= uint16(b) << BitsPerByte
		for i := 0; i < BitsPerByte; i++ {
			if crc&CRC16HighBitMask != 0 {
				crc = (crc << 1) ^ CRC16Polynomial
			} else {
				crc = crc << 1
			}
		}
	}

	return crc
}

// trailer returns the checksum bytes for data in the given mode.
func trailer(data []byte, mode ChecksumMode) []byte {
	if mode == ChecksumCRC16 {
		crc := CRC16(data)
		return []byte{byte(crc >> 8), byte(crc)}
	}
	return []byte{Sum8(data)}
}

package protocol

import (
	"fmt"
)

// BlockCount returns the number of blocks needed to send size bytes.
func BlockCount(size int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + BlockSize - 1) / BlockSize)
}

// NextSequence returns the sequence number following seq.
func NextSequence(seq byte) byte {
	return seq + 1
}

// EncodeBlock constructs a data block frame.
// Data shorter than BlockSize is padded with PadByte.
//
// Frame structure:
//
//	[SOH][SEQ][255-SEQ][DATA(128)][SUM]          checksum mode
//	[SOH][SEQ][255-SEQ][DATA(128)][CRC_H][CRC_L] CRC mode
//
// Returns the complete frame ready to send, or an error if validation fails.
func EncodeBlock(seq byte, data []byte, mode ChecksumMode) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}
	if len(data) > BlockSize {
		return nil, fmt.Errorf("data length %d exceeds block size %d", len(data), BlockSize)
	}

	frame := make([]byte, 0, HeaderSize+BlockSize+mode.TrailerSize())
	frame = append(frame, SOH, seq, 0xFF-seq)
	frame = append(frame, data...)
	for len(frame) < HeaderSize+BlockSize {
		frame = append(frame, PadByte)
	}

	frame = append(frame, trailer(frame[HeaderSize:], mode)...)

	return frame, nil
}

// DecodeBlock validates a received data block frame and extracts it.
// This is the receiver side and is used by simulated targets.
func DecodeBlock(frame []byte, mode ChecksumMode) (*Block, error) {
	want := HeaderSize + BlockSize + mode.TrailerSize()
	if len(frame) != want {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrBadFrame, len(frame), want)
	}
	if frame[0] != SOH {
		return nil, fmt.Errorf("%w: invalid start byte 0x%02X", ErrBadFrame, frame[0])
	}
	if frame[1] != 0xFF-frame[2] {
		return nil, fmt.Errorf("%w: sequence 0x%02X does not match complement 0x%02X", ErrBadFrame, frame[1], frame[2])
	}

	data := frame[HeaderSize : HeaderSize+BlockSize]
	expected := trailer(data, mode)
	actual := frame[HeaderSize+BlockSize:]
	for i := range expected {
		if expected[i] != actual[i] {
			return nil, fmt.Errorf("%w: checksum mismatch: got % X, expected % X", ErrBadFrame, actual, expected)
		}
	}

	blk := &Block{Seq: frame[1]}
	copy(blk.Data[:], data)

	return blk, nil
}

// Classify maps a byte read while waiting for an acknowledgment.
func Classify(b byte) Response {
	switch b {
	case ACK:
		return ResponseACK
	case NAK:
		return ResponseNAK
	case CAN:
		return ResponseCAN
	case CRC:
		return ResponseStart
	default:
		return ResponseOther
	}
}

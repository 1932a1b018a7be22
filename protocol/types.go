package protocol

// Block is one XMODEM data block.
type Block struct {
	// Seq is the block sequence number (modulo 256, first block is 1)
	Seq byte

	// Data is the padded block payload
	Data [BlockSize]byte
}

// Response classifies a byte received from the XMODEM receiver while the
// sender waits for a block acknowledgment.
type Response int

const (
	// ResponseNone means no byte arrived before the timeout
	ResponseNone Response = iota

	// ResponseACK acknowledges the block
	ResponseACK

	// ResponseNAK rejects the block
	ResponseNAK

	// ResponseCAN is a cancel request
	ResponseCAN

	// ResponseStart is a repeated start request ('C' or NAK before the
	// first block is acknowledged)
	ResponseStart

	// ResponseOther is any unexpected byte
	ResponseOther
)

var responseNames = [...]string{
	ResponseNone:  "timeout",
	ResponseACK:   "ACK",
	ResponseNAK:   "NAK",
	ResponseCAN:   "CAN",
	ResponseStart: "start request",
	ResponseOther: "unexpected byte",
}

func (r Response) String() string {
	if int(r) >= 0 && int(r) < len(responseNames) {
		return responseNames[r]
	}
	return "unknown"
}

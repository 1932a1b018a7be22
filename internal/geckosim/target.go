// Package geckosim simulates a Gecko bootloader behind a serial port.
//
// A Target prints the bootloader menu, enters upload mode on '1', receives
// XMODEM blocks and reboots on '2'. Faults can be injected per block to
// exercise the sender's retry handling. It implements serialport.Port and
// answers synchronously inside Write, so no goroutines are involved.
package geckosim

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/moffa90/go-ncpflash/protocol"
)

// DefaultVersion is the banner printed by New.
const DefaultVersion = "Gecko Bootloader v1.12.0"

type phase int

const (
	phaseMenu phase = iota
	phaseUpload
	phaseRunning
)

// Target is a simulated bootloader.
// Fault fields must be set before the first Write.
type Target struct {
	// Version is the banner line
	Version string

	// Mode is the checksum mode the receiver requests and verifies
	Mode protocol.ChecksumMode

	// Silent suppresses the start request so the handshake times out
	Silent bool

	// NAKs is the number of NAKs answered to a sequence number before it
	// is accepted
	NAKs map[byte]int

	// Garbage is the number of unexpected bytes answered to a sequence
	// number before it is accepted
	Garbage map[byte]int

	// Drops is the number of transmissions of a sequence number that get
	// no answer at all
	Drops map[byte]int

	// CancelAt makes the receiver answer CAN CAN to that sequence number;
	// 0 disables it
	CancelAt byte

	// RejectEOT is the number of EOTs answered with NAK
	RejectEOT int

	mu        sync.Mutex
	out       bytes.Buffer
	rx        []byte
	phase     phase
	expected  byte
	image     bytes.Buffer
	seqs      []byte
	eots      int
	cancels   int
	cancelled bool
	rebooted  bool
	closed    bool
	written   bytes.Buffer
}

// New creates a target waiting at its menu, requesting CRC-16 blocks.
func New() *Target {
	return &Target{
		Version:  DefaultVersion,
		Mode:     protocol.ChecksumCRC16,
		expected: protocol.FirstSequence,
	}
}

// Read returns pending output one byte at a time. With nothing pending it
// behaves like a serial read that timed out.
func (t *Target) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, fmt.Errorf("port closed")
	}
	if t.out.Len() == 0 {
		t.mu.Unlock()
		time.Sleep(time.Millisecond)
		t.mu.Lock()
		return 0, nil
	}
	if len(p) == 0 {
		return 0, nil
	}
	return t.out.Read(p[:1])
}

// Write feeds bytes to the bootloader.
func (t *Target) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, fmt.Errorf("port closed")
	}
	t.written.Write(p)

	for _, b := range p {
		switch t.phase {
		case phaseMenu:
			t.menu(b)
		case phaseUpload:
			t.rx = append(t.rx, b)
			t.receive()
		}
	}
	return len(p), nil
}

// Close marks the port closed.
func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// SetReadTimeout is a no-op; Read never blocks for long.
func (t *Target) SetReadTimeout(time.Duration) error { return nil }

// ResetInputBuffer discards pending output.
func (t *Target) ResetInputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.Reset()
	return nil
}

// Image returns the payload received so far, padding included.
func (t *Target) Image() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return bytes.Clone(t.image.Bytes())
}

// Sequences returns the sequence number of every block transmission
// received, retransmissions included.
func (t *Target) Sequences() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return bytes.Clone(t.seqs)
}

// EOTs returns the number of EOT bytes received.
func (t *Target) EOTs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.eots
}

// Cancelled reports whether the sender cancelled with CAN CAN.
func (t *Target) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Rebooted reports whether the run option was selected.
func (t *Target) Rebooted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rebooted
}

// Closed reports whether Close was called.
func (t *Target) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Written returns every byte written by the sender.
func (t *Target) Written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return bytes.Clone(t.written.Bytes())
}

func (t *Target) menu(b byte) {
	switch b {
	case '\n':
		fmt.Fprintf(&t.out, "\r\n%s\r\n1. upload gbl\r\n2. run\r\n3. ebl info\r\nBL > ", t.Version)
	case protocol.MenuUpload:
		t.out.WriteString("1\r\nbegin upload\r\n")
		t.phase = phaseUpload
		t.expected = protocol.FirstSequence
		if !t.Silent {
			t.out.WriteByte(t.startRequest())
		}
	case protocol.MenuRun:
		t.rebooted = true
		t.phase = phaseRunning
	case protocol.MenuInfo:
		t.out.WriteString("3\r\nGBL info: no image\r\nBL > ")
	}
}

func (t *Target) startRequest() byte {
	if t.Mode == protocol.ChecksumCRC16 {
		return protocol.CRC
	}
	return protocol.NAK
}

// receive consumes complete frames from rx.
func (t *Target) receive() {
	frameLen := protocol.HeaderSize + protocol.BlockSize + t.Mode.TrailerSize()

	for len(t.rx) > 0 {
		switch t.rx[0] {
		case protocol.SOH:
			if len(t.rx) < frameLen {
				return
			}
			frame := t.rx[:frameLen]
			t.rx = t.rx[frameLen:]
			t.block(frame)

		case protocol.EOT:
			t.rx = t.rx[1:]
			t.eots++
			if t.RejectEOT > 0 {
				t.RejectEOT--
				t.out.WriteByte(protocol.NAK)
				continue
			}
			t.out.WriteByte(protocol.ACK)
			t.out.WriteString("\r\nSerial upload complete\r\n")
			t.phase = phaseMenu

		case protocol.CAN:
			t.rx = t.rx[1:]
			t.cancels++
			if t.cancels >= 2 {
				t.cancelled = true
				t.phase = phaseMenu
				t.rx = nil
				return
			}

		default:
			t.rx = t.rx[1:]
		}
	}
}

func (t *Target) block(frame []byte) {
	t.cancels = 0

	blk, err := protocol.DecodeBlock(frame, t.Mode)
	if err != nil {
		t.out.WriteByte(protocol.NAK)
		return
	}
	t.seqs = append(t.seqs, blk.Seq)

	switch {
	case t.CancelAt != 0 && blk.Seq == t.CancelAt:
		t.out.Write([]byte{protocol.CAN, protocol.CAN})
		t.phase = phaseMenu
		return
	case take(t.Drops, blk.Seq):
		return
	case take(t.Garbage, blk.Seq):
		t.out.WriteByte('?')
		return
	case take(t.NAKs, blk.Seq):
		t.out.WriteByte(protocol.NAK)
		return
	}

	switch blk.Seq {
	case t.expected:
		t.image.Write(blk.Data[:])
		t.expected++
		t.out.WriteByte(protocol.ACK)
	case t.expected - 1:
		// duplicate of the block just accepted
		t.out.WriteByte(protocol.ACK)
	default:
		t.out.WriteByte(protocol.NAK)
	}
}

// take decrements a fault counter, reporting whether it was still armed.
func take(faults map[byte]int, seq byte) bool {
	if faults[seq] <= 0 {
		return false
	}
	faults[seq]--
	return true
}

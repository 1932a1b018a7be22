package bootloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/moffa90/go-ncpflash/protocol"
	"github.com/moffa90/go-ncpflash/serialport"
)

// Transfer sends size bytes from r as XMODEM blocks, starting with block 1,
// then ends the transmission with EOT. The receiver must already have sent
// its start request; Handshake takes care of that.
//
// A block that is rejected, garbled or not acknowledged in time is sent
// again, at most protocol.MaxRetries times. When the budget runs out the
// transfer is cancelled with CAN CAN and a *TransferError is returned. Two
// consecutive CAN bytes from the receiver abort with protocol.ErrCancelled.
func (f *Flasher) Transfer(ctx context.Context, port serialport.Port, r io.Reader, size int64) error {
	f.start = time.Now()
	f.setState(StateTransferring)

	total := protocol.BlockCount(size)
	mode := f.config.ChecksumMode
	buf := make([]byte, protocol.BlockSize)
	seq := byte(protocol.FirstSequence)

	var sent int64
	retries := 0

	f.reportProgress(Progress{
		Phase:       PhaseTransferring,
		State:       f.state,
		TotalBlocks: total,
	})

	for block := 1; ; block++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		n, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("read firmware: %w", err)
		}

		frame, err := protocol.EncodeBlock(seq, buf[:n], mode)
		if err != nil {
			return err
		}

		attempts, err := f.sendFrame(ctx, port, frame, block)
		retries += max(attempts-1, 0)
		if err != nil {
			return err
		}

		sent += int64(n)
		percentage := 100.0
		if total > 0 {
			percentage = min(float64(block)/float64(total)*100, 100)
		}
		f.reportProgress(Progress{
			Phase:       PhaseTransferring,
			State:       f.state,
			Block:       block,
			TotalBlocks: max(total, block),
			Percentage:  percentage,
			BytesSent:   sent,
			Retries:     retries,
			ElapsedTime: time.Since(f.start),
		})

		seq = protocol.NextSequence(seq)
		if n < protocol.BlockSize {
			break
		}
	}

	if _, err := f.sendFrame(ctx, port, []byte{protocol.EOT}, 0); err != nil {
		return err
	}

	f.logInfo("transfer complete",
		"bytes", sent,
		"retries", retries,
		"elapsed", time.Since(f.start).String(),
	)

	return nil
}

// sendFrame transmits frame until the receiver acknowledges it.
// block is 0 for the end of transmission. Returns the number of
// transmissions.
func (f *Flasher) sendFrame(ctx context.Context, port serialport.Port, frame []byte, block int) (int, error) {
	op := fmt.Sprintf("block %d", block)
	if block == 0 {
		op = "end of transmission"
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, fmt.Errorf("cancelled: %w", err)
		}

		if err := serialport.WriteAll(ctx, port, frame); err != nil {
			return attempt, &TransferError{Block: block, Attempts: attempt, Err: fmt.Errorf("write: %w", err)}
		}

		resp, b, err := f.awaitResponse(ctx, port)
		if err != nil {
			if !errors.Is(err, protocol.ErrCancelled) {
				err = fmt.Errorf("read response: %w", err)
			}
			return attempt, &TransferError{Block: block, Attempts: attempt, Err: err}
		}
		if resp == protocol.ResponseACK {
			return attempt, nil
		}

		perr := &protocol.ProtocolError{Operation: op, Response: resp, Byte: b}
		if attempt > protocol.MaxRetries {
			f.cancel(ctx, port)
			return attempt, &TransferError{Block: block, Attempts: attempt, Err: perr}
		}

		f.logDebug("retrying", "op", op, "attempt", attempt+1, "reason", perr.Error())
	}
}

// awaitResponse waits for the receiver's answer to a frame. A single CAN is
// held until the next byte: a second CAN cancels, anything else is the
// answer.
func (f *Flasher) awaitResponse(ctx context.Context, port serialport.Port) (protocol.Response, byte, error) {
	cancels := 0
	for {
		b, err := serialport.ReadByte(ctx, port, f.config.AckTimeout)
		if errors.Is(err, serialport.ErrTimeout) {
			return protocol.ResponseNone, 0, nil
		}
		if err != nil {
			return protocol.ResponseNone, 0, err
		}

		resp := protocol.Classify(b)
		if resp != protocol.ResponseCAN {
			return resp, b, nil
		}

		cancels++
		if cancels >= 2 {
			return resp, b, protocol.ErrCancelled
		}
	}
}

// cancel tells the receiver to abort.
func (f *Flasher) cancel(ctx context.Context, port serialport.Port) {
	if err := serialport.WriteAll(ctx, port, []byte{protocol.CAN, protocol.CAN}); err != nil {
		f.logError("send cancel", "error", err)
	}
}

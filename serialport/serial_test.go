package serialport

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

// fakePort returns queued input one Read at a time and behaves like a
// timed-out serial read (0, nil) once the input is drained.
type fakePort struct {
	input    *bytes.Buffer
	written  bytes.Buffer
	timeouts []time.Duration
	readErr  error
	maxWrite int
}

func newFakePort(input string) *fakePort {
	return &fakePort{input: bytes.NewBufferString(input)}
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.input.Len() == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	return p.input.Read(b[:1])
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.maxWrite > 0 && len(b) > p.maxWrite {
		b = b[:p.maxWrite]
	}
	return p.written.Write(b)
}

func (p *fakePort) Close() error { return nil }

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeouts = append(p.timeouts, t)
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.input.Reset()
	return nil
}

func TestReadByte(t *testing.T) {
	port := newFakePort("C")

	b, err := ReadByte(context.Background(), port, time.Second)
	require.NoError(t, err)
	assert.Equal(t, byte('C'), b)

	_, err = ReadByte(context.Background(), port, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	for _, timeout := range port.timeouts {
		assert.LessOrEqual(t, timeout, maxPollInterval)
	}
}

func TestReadByteErrors(t *testing.T) {
	port := newFakePort("")
	port.readErr = errors.New("device unplugged")

	_, err := ReadByte(context.Background(), port, time.Second)
	assert.EqualError(t, err, "device unplugged")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadByte(ctx, newFakePort("x"), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadLine(t *testing.T) {
	port := newFakePort("\r\nGecko Bootloader v1.12.0\r\n1. upload gbl\r\npartial")

	tests := []struct {
		want    string
		wantErr error
	}{
		{want: ""},
		{want: "Gecko Bootloader v1.12.0"},
		{want: "1. upload gbl"},
		{want: "partial", wantErr: ErrTimeout},
	}

	for _, tt := range tests {
		line, err := ReadLine(context.Background(), port, 20*time.Millisecond)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr)
		} else {
			assert.NoError(t, err)
		}
		assert.Equal(t, tt.want, line)
	}
}

func TestWriteAllHandlesShortWrites(t *testing.T) {
	port := newFakePort("")
	port.maxWrite = 3

	require.NoError(t, WriteAll(context.Background(), port, []byte("0123456789")))
	assert.Equal(t, "0123456789", port.written.String())
}

func TestFilterPorts(t *testing.T) {
	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4", PID: "ea70", SerialNumber: "00F1C2A3", Product: "CP2105 Dual USB to UART Bridge Controller"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "1366", PID: "0105", SerialNumber: "000440112233", Product: "J-Link"},
		{Name: "/dev/ttyS0", IsUSB: false},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "10C4", PID: "EA60", Product: ""},
		{Name: "/dev/ttyUSB2", IsUSB: true, VID: "0403", PID: "6001", Product: "FT232R USB UART"},
		nil,
		{Name: "/dev/ttyUSB3", IsUSB: true, VID: "zz", PID: "0001"},
	}

	got := FilterPorts(ports, 0x10C4)

	want := []PortInfo{
		{
			Path:        "/dev/ttyUSB0",
			Description: "CP2105 Dual USB to UART Bridge Controller",
			HardwareID:  "USB VID:PID=10C4:EA70 SER=00F1C2A3",
		},
		{
			Path:        "/dev/ttyUSB1",
			Description: "n/a",
			HardwareID:  "USB VID:PID=10C4:EA60",
		},
	}
	assert.Equal(t, want, got)
}

func TestFilterPortsNoMatch(t *testing.T) {
	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB2", IsUSB: true, VID: "0403", PID: "6001"},
	}
	assert.Empty(t, FilterPorts(ports, 0x10C4))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, []PortInfo{
		{Path: "COM3", Description: "CP2105", HardwareID: "USB VID:PID=10C4:EA70 SER=1"},
		{Path: "COM4", Description: "CP2102N", HardwareID: "USB VID:PID=10C4:EA60"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"COM3\tCP2105\tUSB VID:PID=10C4:EA70 SER=1\n"+
			"COM4\tCP2102N\tUSB VID:PID=10C4:EA60\n",
		buf.String())
}

func TestOpenEmptyName(t *testing.T) {
	_, err := Open("")
	assert.EqualError(t, err, "serial port is empty")
}

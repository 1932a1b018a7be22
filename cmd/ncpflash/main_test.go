package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-ncpflash/bootloader"
	"github.com/moffa90/go-ncpflash/cp210x"
	"github.com/moffa90/go-ncpflash/internal/geckosim"
	"github.com/moffa90/go-ncpflash/protocol"
	"github.com/moffa90/go-ncpflash/serialport"
)

// fakeBridge is a CP210x that records latch writes.
type fakeBridge struct {
	pid     uint16
	claimed []int
	writes  int
}

func (d *fakeBridge) VendorID() uint16  { return cp210x.VendorSiliconLabs }
func (d *fakeBridge) ProductID() uint16 { return d.pid }
func (d *fakeBridge) Claim(iface int) error {
	d.claimed = append(d.claimed, iface)
	return nil
}
func (d *fakeBridge) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	d.writes++
	return len(data), nil
}
func (d *fakeBridge) Close() error { return nil }

type fakeBus struct {
	dev *fakeBridge
}

func (b *fakeBus) Open(match func(vid, pid uint16) bool) (cp210x.Device, error) {
	if b.dev == nil || !match(b.dev.VendorID(), b.dev.ProductID()) {
		return nil, nil
	}
	return b.dev, nil
}

type harness struct {
	app       *app
	stdout    bytes.Buffer
	stderr    bytes.Buffer
	target    *geckosim.Target
	bridge    *fakeBridge
	busOpens  int
	portOpens int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{"NCPFLASH_PORT", "NCPFLASH_INTERFACE", "NCPFLASH_LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	h := &harness{
		target: geckosim.New(),
		bridge: &fakeBridge{pid: cp210x.ProductCP2105},
	}
	h.app = &app{
		stdout: &h.stdout,
		stderr: &h.stderr,
		newBus: func() (cp210x.Bus, func() error, error) {
			h.busOpens++
			return &fakeBus{dev: h.bridge}, func() error { return nil }, nil
		},
		openPort: func(name string) (serialport.Port, error) {
			h.portOpens++
			return h.target, nil
		},
		scan: func(vid uint16) ([]serialport.PortInfo, error) {
			return nil, nil
		},
		isTerminal: func(io.Writer) bool { return false },
	}
	return h
}

func (h *harness) run(args ...string) int {
	return h.app.run(context.Background(), args)
}

// fastConfig writes a config with short protocol timeouts.
func fastConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ncpflash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timeouts:
  sentinel: 200ms
  line: 50ms
  ack: 20ms
logger:
  level: error
`), 0o600))
	return path
}

func imageFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ncp.gbl")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xA5}, size), 0o644))
	return path
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"no args", nil, exitUsage},
		{"unknown command", []string{"erase"}, exitUsage},
		{"help", []string{"--help"}, exitOK},
		{"scan with args", []string{"scan", "extra"}, exitUsage},
		{"flash unknown flag", []string{"flash", "--bogus"}, exitUsage},
		{"flash without port", []string{"flash", "-f", "x.gbl"}, exitUsage},
		{"flash without file", []string{"flash", "-p", "COM3"}, exitUsage},
		{"flash positional", []string{"flash", "-p", "COM3", "-f", "x.gbl", "extra"}, exitUsage},
		{"flash bad interface", []string{"flash", "-p", "COM3", "-f", "x.gbl", "-i", "4"}, exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			assert.Equal(t, tt.wantCode, h.run(tt.args...))
			assert.Zero(t, h.busOpens)
			assert.Zero(t, h.portOpens)
		})
	}
}

func TestRunVersion(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, exitOK, h.run("version"))
	assert.Equal(t, "ncpflash dev\n", h.stdout.String())
}

func TestRunScan(t *testing.T) {
	h := newHarness(t)
	h.app.scan = func(vid uint16) ([]serialport.PortInfo, error) {
		assert.Equal(t, uint16(cp210x.VendorSiliconLabs), vid)
		return []serialport.PortInfo{
			{Path: "/dev/ttyUSB0", Description: "CP2105 Dual USB to UART Bridge Controller", HardwareID: "USB VID:PID=10C4:EA70 SER=0001"},
		}, nil
	}

	assert.Equal(t, exitOK, h.run("scan"))
	assert.Equal(t, "/dev/ttyUSB0\tCP2105 Dual USB to UART Bridge Controller\tUSB VID:PID=10C4:EA70 SER=0001\n", h.stdout.String())
}

func TestRunScanEmptyAndError(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, exitOK, h.run("scan"))
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.stderr.String(), "no Silicon Labs serial ports found")

	h = newHarness(t)
	h.app.scan = func(uint16) ([]serialport.PortInfo, error) {
		return nil, errors.New("enumeration failed")
	}
	assert.Equal(t, exitError, h.run("scan"))
	assert.Contains(t, h.stderr.String(), "enumeration failed")
}

func TestFlashSuccess(t *testing.T) {
	h := newHarness(t)

	code := h.run("flash", "-p", "/dev/ttyUSB0", "-i", "0", "-f", imageFile(t, 300), "-c", fastConfig(t))
	require.Equal(t, exitOK, code, h.stderr.String())

	assert.Equal(t, []int{0}, h.bridge.claimed)
	assert.Equal(t, 3, h.bridge.writes)
	assert.Len(t, h.target.Sequences(), 3)
	assert.True(t, h.target.Rebooted())
	assert.Contains(t, h.stdout.String(), "Finished!")
}

func TestFlashNoActivate(t *testing.T) {
	h := newHarness(t)

	code := h.run("flash", "--port", "COM3", "--file", imageFile(t, 10), "--config", fastConfig(t), "--no-activate")
	require.Equal(t, exitOK, code, h.stderr.String())
	assert.Zero(t, h.busOpens)
	assert.True(t, h.target.Rebooted())
}

func TestFlashInvalidFile(t *testing.T) {
	h := newHarness(t)

	code := h.run("flash", "-p", "COM3", "-i", "0", "-f", filepath.Join(t.TempDir(), "missing.gbl"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, h.stderr.String(), "does not exist")
	assert.Zero(t, h.busOpens, "no hardware may be touched")
	assert.Zero(t, h.portOpens)
}

func TestFlashActivationErrors(t *testing.T) {
	tests := []struct {
		name    string
		bridge  *fakeBridge
		args    []string
		wantErr string
	}{
		{
			name:    "no bridge",
			bridge:  nil,
			args:    []string{"-i", "0"},
			wantErr: "no supported CP210x bridge found",
		},
		{
			name:    "dual interface without index",
			bridge:  &fakeBridge{pid: cp210x.ProductCP2105},
			wantErr: "interface index (0 or 1) is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.bridge = tt.bridge

			args := append([]string{"flash", "-p", "COM3", "-f", imageFile(t, 10)}, tt.args...)
			assert.Equal(t, exitError, h.run(args...))
			assert.Contains(t, h.stderr.String(), tt.wantErr)
			assert.Zero(t, h.portOpens, "upload must not start after a failed activation")
		})
	}
}

func TestFlashHandshakeTimeout(t *testing.T) {
	h := newHarness(t)
	h.target.Silent = true

	code := h.run("flash", "-p", "COM3", "-f", imageFile(t, 10), "-c", fastConfig(t), "--no-activate")
	assert.Equal(t, exitError, code)
	assert.Contains(t, h.stderr.String(), "failed to restart into bootloader mode")
	assert.False(t, h.target.Rebooted())
}

func TestFlashTransferFailure(t *testing.T) {
	h := newHarness(t)
	h.target.NAKs = map[byte]int{1: protocol.MaxRetries + 1}

	code := h.run("flash", "-p", "COM3", "-f", imageFile(t, 10), "-c", fastConfig(t), "--no-activate")
	assert.Equal(t, exitError, code)
	assert.Contains(t, h.stderr.String(), "transfer failed")
	assert.True(t, h.target.Cancelled())
	assert.False(t, h.target.Rebooted())
}

func TestFlashConfigFromEnv(t *testing.T) {
	h := newHarness(t)
	t.Setenv("NCPFLASH_PORT", "/dev/ttyUSB7")
	t.Setenv("NCPFLASH_INTERFACE", "1")

	var opened string
	h.app.openPort = func(name string) (serialport.Port, error) {
		opened = name
		return h.target, nil
	}

	code := h.run("flash", "-f", imageFile(t, 10), "-c", fastConfig(t))
	require.Equal(t, exitOK, code, h.stderr.String())
	assert.Equal(t, "/dev/ttyUSB7", opened)
	assert.Equal(t, []int{1}, h.bridge.claimed)
}

func TestProgressViewPlain(t *testing.T) {
	var buf bytes.Buffer
	v := newProgressView(&buf, false)

	v.update(progressAt("handshake", 0, 0))
	v.update(progressAt("transferring", 0, 3))
	v.update(progressAt("transferring", 1, 3))
	v.update(progressAt("rebooting", 3, 3))
	v.finish()

	assert.Equal(t,
		"Waiting for bootloader menu...\n"+
			"Bootloader ready, uploading 3 blocks...\n"+
			"Upload complete.\n",
		buf.String())
}

func TestProgressViewTerminal(t *testing.T) {
	var buf bytes.Buffer
	v := newProgressView(&buf, true)

	v.update(progressAt("transferring", 2, 4))
	v.finish()

	out := buf.String()
	assert.Contains(t, out, "\r")
	assert.Contains(t, out, "2/4 blocks")
	assert.Equal(t, byte('\n'), out[len(out)-1])
}

func progressAt(phase string, block, total int) bootloader.Progress {
	pct := 0.0
	if total > 0 {
		pct = float64(block) / float64(total) * 100
	}
	return bootloader.Progress{Phase: phase, Block: block, TotalBlocks: total, Percentage: pct}
}

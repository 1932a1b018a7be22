package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ncpflash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, -1, cfg.Interface)
	assert.True(t, cfg.Activate)
	assert.Equal(t, "crc16", cfg.Checksum)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Sentinel)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Line)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Ack)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.NoError(t, Validate(cfg))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
port: /dev/ttyUSB1
interface: 1
activate: false
timeouts:
  sentinel: 15s
  ack: 3s
logger:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Port)
	assert.Equal(t, 1, cfg.Interface)
	assert.False(t, cfg.Activate)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Sentinel)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Line, "unset keys keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Ack)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "port: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadValidation(t *testing.T) {
	path := writeConfig(t, `
interface: 2
checksum: crc32
logger:
  level: verbose
`)

	_, err := Load(path)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
	assert.Contains(t, err.Error(), "interface must be 0 (ECI) or 1 (SCI), got 2")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NCPFLASH_PORT", "COM7")
	t.Setenv("NCPFLASH_INTERFACE", "0")
	t.Setenv("NCPFLASH_LOG_LEVEL", "debug")

	path := writeConfig(t, "port: /dev/ttyUSB0\ninterface: 1\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "COM7", cfg.Port)
	assert.Equal(t, 0, cfg.Interface)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestApplyEnvOverridesIgnoresBadInterface(t *testing.T) {
	t.Setenv("NCPFLASH_INTERFACE", "sci")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	assert.Equal(t, -1, cfg.Interface)
}

func TestValidateTimeouts(t *testing.T) {
	cfg := Defaults()
	cfg.Timeouts = TimeoutConfig{}

	err := Validate(cfg)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{
		"timeouts.sentinel must be > 0",
		"timeouts.line must be > 0",
		"timeouts.ack must be > 0",
	}, ve.Errors)
}

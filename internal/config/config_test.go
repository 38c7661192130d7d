package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}

	assert.Equal(t, "", cfg.GetSerialPort())
	assert.Equal(t, 9600, cfg.GetBaudRate())
	assert.Equal(t, time.Second, cfg.GetReadTimeout())
	assert.Equal(t, 50*time.Millisecond, cfg.GetPollInterval())
	assert.Equal(t, 2*time.Second, cfg.GetSettleDelay())
	assert.Equal(t, time.Duration(0), cfg.GetReopenInterval())
	assert.Equal(t, ":8000", cfg.GetListen())
	assert.Equal(t, "", cfg.GetFixture())
	assert.False(t, cfg.GetVerbose())
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "tripwire.json", `{
  "serial_port": "/dev/ttyACM0",
  "baud_rate": 115200,
  "read_timeout": "500ms",
  "poll_interval": "2s",
  "reopen_interval": "10s",
  "listen": "127.0.0.1:9000",
  "verbose": true
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.GetSerialPort())
	assert.Equal(t, 115200, cfg.GetBaudRate())
	assert.Equal(t, 500*time.Millisecond, cfg.GetReadTimeout())
	assert.Equal(t, 2*time.Second, cfg.GetPollInterval())
	assert.Equal(t, 10*time.Second, cfg.GetReopenInterval())
	assert.Equal(t, "127.0.0.1:9000", cfg.GetListen())
	assert.True(t, cfg.GetVerbose())
	// omitted fields keep defaults
	assert.Equal(t, 2*time.Second, cfg.GetSettleDelay())
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "tripwire.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"baud_rate":`, "parse config JSON"},
		{"bad baud", "baud.json", `{"baud_rate": 0}`, "baud_rate"},
		{"bad duration", "dur.json", `{"poll_interval": "soon"}`, "poll_interval"},
		{"negative duration", "neg.json", `{"reopen_interval": "-1s"}`, "reopen_interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.file, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoad_TooLarge(t *testing.T) {
	body := `{"listen": "` + strings.Repeat("x", 1024*1024) + `"}`
	_, err := Load(writeConfig(t, "big.json", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestDurationFallbackOnGarbage(t *testing.T) {
	bad := "not-a-duration"
	cfg := &Config{PollInterval: &bad}
	assert.Equal(t, DefaultPollInterval, cfg.GetPollInterval())
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("../../config/tripwire.example.json")
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.GetSerialPort())
	assert.Equal(t, DefaultBaudRate, cfg.GetBaudRate())
	assert.Equal(t, DefaultPollInterval, cfg.GetPollInterval())
	assert.Equal(t, DefaultListen, cfg.GetListen())
	assert.Equal(t, time.Duration(0), cfg.GetReopenInterval())
}

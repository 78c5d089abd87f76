package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gieditor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
device_id: 0x11
timeout_ticks: -1
tick_period: 5ms
blacklist: ["0x10000000", "268435457"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x11), cfg.DeviceID)
	assert.Equal(t, uint32(0x4C), cfg.ModelID)
	assert.Equal(t, -1, cfg.TimeoutTicks)
	assert.Equal(t, 5*time.Millisecond, cfg.TickPeriod)

	addrs, err := cfg.BlacklistAddresses()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x10000000, 0x10000001}, addrs)
}

func TestLoadRejects(t *testing.T) {
	for name, body := range map[string]string{
		"device id": "device_id: 0x80\n",
		"model id":  "model_id: 0x800000\n",
		"clock":     "clock: crystal\n",
		"period":    "tick_period: 0s\n",
		"log level": "log_level: loud\n",
		"blacklist": "blacklist: [\"0x10000080\"]\n",
		"not yaml":  "device_id: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

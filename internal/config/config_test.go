package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func Test_Load_YAML_AppliesDefaults(t *testing.T) {
	path := writeTemp(t, "waveband.yaml", `
sampleRateHz: 2000000
centerFreqHz: 929000000
decimationFactor: 20
channels:
  - outFifo: /tmp/chan0.fifo
    chanCenterFreq: 929612500
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultNrSampBufs, c.NrSampBufs)
	assert.Equal(t, int64(2000000), c.SampleRateHz)
	assert.Len(t, c.Channels, 1)
	assert.Equal(t, "/tmp/chan0.fifo", c.Channels[0].OutFifo)
}

func Test_Load_JSON(t *testing.T) {
	path := writeTemp(t, "waveband.json", `{
		"sampleRateHz": 2000000,
		"decimationFactor": 20,
		"channels": [{"outFifo": "/tmp/chan0.fifo"}]
	}`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), c.SampleRateHz)
}

func Test_Load_RejectsMissingSampleRate(t *testing.T) {
	path := writeTemp(t, "bad.yaml", `
decimationFactor: 20
channels:
  - outFifo: /tmp/chan0.fifo
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func Test_Load_RejectsNoChannels(t *testing.T) {
	path := writeTemp(t, "bad.yaml", `
sampleRateHz: 2000000
decimationFactor: 20
`)
	_, err := Load(path)
	assert.Error(t, err)
}

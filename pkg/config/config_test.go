package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/chartfang/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "chartfang-*.yaml")
	require.NoError(t, err)

	_, writeErr := tmpFile.WriteString(content)
	require.NoError(t, writeErr)
	require.NoError(t, tmpFile.Close())

	return tmpFile.Name()
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://ws.audioscrobbler.com/2.0/", cfg.LastFM.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.LastFM.Timeout)
	assert.Empty(t, cfg.Backend.URL)
	assert.Equal(t, 8, cfg.Fetch.Workers)
	assert.Equal(t, "artist", cfg.Chart.Kind)
	assert.Equal(t, "last-6-months", cfg.Chart.Timeframe)
	assert.Equal(t, 20, cfg.Chart.Top)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 4096, cfg.Cache.MaxEntries)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.InDelta(t, 1.0, cfg.Telemetry.SampleRatio, 1e-9)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9000
  host: "127.0.0.1"
  read_timeout: "15s"
  cors_origins: ["https://charts.example.com"]

lastfm:
  api_key: "abc"

fetch:
  workers: 3

chart:
  kind: track
  top: 10

cache:
  max_entries: 64
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://charts.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "abc", cfg.LastFM.APIKey)
	assert.Equal(t, 3, cfg.Fetch.Workers)
	assert.Equal(t, "track", cfg.Chart.Kind)
	assert.Equal(t, 10, cfg.Chart.Top)
	assert.Equal(t, 64, cfg.Cache.MaxEntries)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("CHARTFANG_SERVER_PORT", "9090")
	t.Setenv("CHARTFANG_LASTFM_API_KEY", "from-env")
	t.Setenv("CHARTFANG_BACKEND_URL", "http://localhost:9090")
	t.Setenv("CHARTFANG_LOGGING_FORMAT", "json")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.LastFM.APIKey)
	assert.Equal(t, "http://localhost:9090", cfg.Backend.URL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "port", content: "server:\n  port: 70000\n", wantErr: config.ErrInvalidPort},
		{name: "workers", content: "fetch:\n  workers: 0\n", wantErr: config.ErrInvalidWorkers},
		{name: "top", content: "chart:\n  top: -1\n", wantErr: config.ErrInvalidTop},
		{name: "cache", content: "cache:\n  max_entries: 0\n", wantErr: config.ErrInvalidCacheSize},
		{name: "log format", content: "logging:\n  format: xml\n", wantErr: config.ErrInvalidLogFormat},
		{name: "sample ratio", content: "telemetry:\n  sample_ratio: 2\n", wantErr: config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigDisabledCacheSkipsSizeCheck(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "cache:\n  enabled: false\n  max_entries: 0\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig("/nonexistent/chartfang.yaml")
	require.Error(t, err)
}

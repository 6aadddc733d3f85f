package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/chartfang/cmd/chartfang/commands"
	"github.com/Sumatoshi-tech/chartfang/internal/server"
	"github.com/Sumatoshi-tech/chartfang/pkg/config"
	"github.com/Sumatoshi-tech/chartfang/pkg/lastfm"
	"github.com/Sumatoshi-tech/chartfang/pkg/plotpage"
	"github.com/Sumatoshi-tech/chartfang/pkg/render"
	"github.com/Sumatoshi-tech/chartfang/pkg/report"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticUpstream struct{}

func (staticUpstream) WeeklyChart(context.Context, string, lastfm.ChartKind, time.Time, time.Time) ([]rolling.Entry, error) {
	return []rolling.Entry{{Item: "Boards of Canada", Count: 7}, {Item: "Autechre", Count: 3}}, nil
}

func (staticUpstream) UserInfo(_ context.Context, user string) (lastfm.UserInfo, error) {
	return lastfm.UserInfo{Name: user, RegisteredAt: time.Now().AddDate(0, 0, -20)}, nil
}

// startBackend runs a real backend in front of a static upstream.
func startBackend(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{
		Fetch: config.FetchConfig{Workers: 2},
		Chart: config.ChartConfig{Kind: "artist", Timeframe: "last-month", Top: 20},
	}

	srv, err := server.New(cfg, server.Deps{Upstream: staticUpstream{}})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts.URL
}

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chartfang.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  workers: 2\nlogging:\n  level: error\n"), 0o600))

	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestChartCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := commands.NewChartCommand()
	assert.Equal(t, "chart <username>", cmd.Use)
	assert.Contains(t, cmd.Long, "last-12-months")

	for flag, def := range map[string]string{
		"kind":      "",
		"timeframe": "",
		"top":       "0",
		"format":    "text",
		"output":    "",
		"backend":   "",
		"workers":   "0",
		"theme":     "dark",
		"config":    "",
	} {
		f := cmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, def, f.DefValue, flag)
	}
}

func TestChartCommand_RequiresUsername(t *testing.T) {
	t.Parallel()

	_, err := execute(t, commands.NewChartCommand())
	require.Error(t, err)
}

func TestChartCommand_BackendJSON(t *testing.T) {
	t.Parallel()

	out, err := execute(t, commands.NewChartCommand(), "alice",
		"--config", writeConfig(t),
		"--backend", startBackend(t),
		"--timeframe", "last-7-days",
		"--top", "1",
		"--format", "json",
	)
	require.NoError(t, err)

	var rep report.Report

	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "alice", rep.Subject)
	assert.Equal(t, 1, rep.TopN)
	assert.Empty(t, rep.Failures)
	require.Len(t, rep.Series, 1)
	assert.Equal(t, rolling.ItemID("Boards of Canada"), rep.Series[0].Name)
	assert.Len(t, rep.Series[0].Points, len(rep.Periods))
}

func TestChartCommand_BackendOverallText(t *testing.T) {
	t.Parallel()

	out, err := execute(t, commands.NewChartCommand(), "alice",
		"--config", writeConfig(t),
		"--backend", startBackend(t),
		"--timeframe", "overall",
		"--kind", "track",
		"--no-color",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "ALICE: TOP 20 TRACKS, OVERALL")
	assert.Contains(t, out, "Autechre")
}

func TestChartCommand_PlotToFile(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "alice.html")

	out, err := execute(t, commands.NewChartCommand(), "alice",
		"--config", writeConfig(t),
		"--backend", startBackend(t),
		"--format", "plot",
		"--theme", "light",
		"--output", output,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
	assert.Contains(t, string(data), "Boards of Canada")
}

func TestChartCommand_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := execute(t, commands.NewChartCommand(), "alice", "--format", "csv")
	require.ErrorIs(t, err, render.ErrUnknownFormat)

	_, err = execute(t, commands.NewChartCommand(), "alice", "--theme", "neon")
	require.ErrorIs(t, err, plotpage.ErrUnknownTheme)

	_, err = execute(t, commands.NewChartCommand(), "alice",
		"--config", writeConfig(t),
		"--backend", startBackend(t),
		"--timeframe", "yesterday",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized timeframe")
}

func TestChartCommand_MissingAPIKey(t *testing.T) {
	t.Setenv("CHARTFANG_LASTFM_API_KEY", "")
	t.Setenv("CHARTFANG_BACKEND_URL", "")

	_, err := execute(t, commands.NewChartCommand(), "alice", "--config", writeConfig(t))
	require.ErrorIs(t, err, lastfm.ErrMissingAPIKey)
}

func TestServeCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := commands.NewServeCommand()
	assert.Equal(t, "serve", cmd.Use)
	assert.Contains(t, cmd.Long, "/api/v1/series")
	require.NotNil(t, cmd.Flags().Lookup("config"))
	require.NotNil(t, cmd.Flags().Lookup("debug"))
}

func TestMCPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := commands.NewMCPCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Long, "chartfang_top_series")

	flag := cmd.Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

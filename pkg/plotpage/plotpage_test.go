package plotpage_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/chartfang/pkg/plotpage"
)

func TestParseTheme(t *testing.T) {
	t.Parallel()

	got, err := plotpage.ParseTheme("")
	require.NoError(t, err)
	assert.Equal(t, plotpage.ThemeDark, got)

	got, err = plotpage.ParseTheme("light")
	require.NoError(t, err)
	assert.Equal(t, plotpage.ThemeLight, got)

	_, err = plotpage.ParseTheme("neon")
	require.ErrorIs(t, err, plotpage.ErrUnknownTheme)
}

func TestSeriesColorWraps(t *testing.T) {
	t.Parallel()

	cfg := plotpage.GetThemeConfig(plotpage.ThemeLight)
	require.NotEmpty(t, cfg.Palette)
	assert.Equal(t, cfg.SeriesColor(0), cfg.SeriesColor(len(cfg.Palette)))
	assert.Empty(t, plotpage.ThemeConfig{}.SeriesColor(3))
}

func TestStackedArea(t *testing.T) {
	t.Parallel()

	series := plotpage.StackedArea([]string{"a", "b"}, [][]uint64{{1, 2}, {3, 4}})
	require.Len(t, series, 2)
	assert.Equal(t, plotpage.StackTotal, series[1].Stack)
	assert.Equal(t, []uint64{3, 4}, series[1].Data)
	assert.Positive(t, series[0].AreaOpacity)
}

func TestPageRender(t *testing.T) {
	t.Parallel()

	labels := []string{"2024-06-09", "2024-06-16"}
	chart := plotpage.BuildLineChart(plotpage.NewChartOpts(plotpage.ThemeLight), labels,
		plotpage.StackedArea([]string{"Boards of Canada", "Autechre"}, [][]uint64{{5, 3}, {0, 4}}), "Plays")

	page := plotpage.NewPage("alice: top 2 Artists", "Last 7 days").WithTheme(plotpage.ThemeLight)
	page.Notes = []string{"1 period could not be fetched"}
	page.Add(plotpage.Section{Title: "Rolling plays", Chart: chart})

	var buf bytes.Buffer

	require.NoError(t, page.Render(&buf))

	html := buf.String()
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "alice: top 2 Artists")
	assert.Contains(t, html, "Rolling plays")
	assert.Contains(t, html, "1 period could not be fetched")
	assert.Contains(t, html, "Boards of Canada")
	assert.Contains(t, html, "2024-06-16")
	assert.Contains(t, html, `class="echart-box"`)
	assert.Contains(t, html, plotpage.DefaultAssetsHost+"echarts.min.js")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("<!DOCTYPE")))
}

type failingChart struct{}

func (failingChart) Render(io.Writer) error { return errors.New("broken chart") }

func TestPageRender_ChartError(t *testing.T) {
	t.Parallel()

	page := plotpage.NewPage("t", "")
	page.Add(plotpage.Section{Chart: failingChart{}}, plotpage.Section{})

	err := page.Render(io.Discard)
	require.ErrorContains(t, err, "broken chart")
}

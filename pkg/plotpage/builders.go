package plotpage

import (
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "560px"

	// StackTotal groups every series of a stacked area chart.
	StackTotal = "total"

	defaultAreaOpacity = 0.55
)

// LineSeries is one named series of a line chart.
type LineSeries struct {
	Name        string
	Data        []uint64
	Color       string  // Empty picks the theme palette color.
	Stack       string  // Series sharing a stack are drawn on top of each other.
	AreaOpacity float32 // Zero draws lines without filled areas.
}

// StackedArea returns series stacked into one filled area chart.
func StackedArea(names []string, values [][]uint64) []LineSeries {
	out := make([]LineSeries, len(names))

	for i, name := range names {
		out[i] = LineSeries{
			Name:        name,
			Data:        values[i],
			Stack:       StackTotal,
			AreaOpacity: defaultAreaOpacity,
		}
	}

	return out
}

// BuildLineChart builds a themed line chart with one x label per data point.
// A nil cOpts selects the dark theme.
func BuildLineChart(cOpts *ChartOpts, labels []string, series []LineSeries, yAxisLabel string) *charts.Line {
	if cOpts == nil {
		cOpts = NewChartOpts(ThemeDark)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(cOpts.Init(chartWidth, chartHeight)),
		charts.WithTooltipOpts(cOpts.Tooltip("axis")),
		charts.WithDataZoomOpts(cOpts.DataZoom()...),
		charts.WithGridOpts(cOpts.Grid()),
		charts.WithXAxisOpts(cOpts.XAxis("")),
		charts.WithYAxisOpts(cOpts.YAxis(yAxisLabel)),
		charts.WithLegendOpts(cOpts.Legend()),
	)

	line.SetXAxis(labels)

	for i, s := range series {
		data := make([]opts.LineData, len(s.Data))
		for j, v := range s.Data {
			data[j] = opts.LineData{Value: v}
		}

		color := s.Color
		if color == "" {
			color = cOpts.theme.SeriesColor(i)
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: color}),
		}

		if s.Stack != "" {
			seriesOpts = append(seriesOpts, charts.WithLineChartOpts(opts.LineChart{Stack: s.Stack}))
		}

		if s.AreaOpacity > 0 {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(s.AreaOpacity)}))
		}

		line.AddSeries(s.Name, data, seriesOpts...)
	}

	return line
}

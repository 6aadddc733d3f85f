// Package render writes reports as text tables, JSON, YAML or HTML plots.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/chartfang/pkg/plotpage"
	"github.com/Sumatoshi-tech/chartfang/pkg/report"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
	"github.com/Sumatoshi-tech/chartfang/pkg/safeconv"
)

// Format names an output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPlot Format = "plot"
)

// DefaultMaxColumns is how many of the most recent periods a text table shows.
const DefaultMaxColumns = 8

const (
	dateLayout  = "2006-01-02"
	yAxisLabel  = "Plays"
	msgNoSeries = "No chart data for this period."
)

// ErrUnknownFormat is returned for unsupported format names.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatPlot}

// ParseFormat resolves a format name. Empty selects text.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FormatText, nil
	}

	for _, f := range Formats {
		if string(f) == name {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Options tunes rendering.
type Options struct {
	Theme      plotpage.Theme
	NoColor    bool
	MaxColumns int // Zero uses DefaultMaxColumns.
}

// Render writes rep to w in the given format.
func Render(w io.Writer, rep *report.Report, format Format, opts Options) error {
	switch format {
	case FormatText, "":
		return Text(w, rep, opts)
	case FormatJSON:
		return JSON(w, rep)
	case FormatYAML:
		return YAML(w, rep)
	case FormatPlot:
		return Plot(w, rep, opts.Theme)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSON writes rep as indented JSON.
func JSON(w io.Writer, rep *report.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(rep)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// YAML writes rep as YAML.
func YAML(w io.Writer, rep *report.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(rep)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close()
}

// Text writes a table with one row per series and one column per recent period,
// followed by the periods that could not be fetched.
func Text(w io.Writer, rep *report.Report, opts Options) error {
	header := color.New(color.Bold)
	warn := color.New(color.FgYellow)

	if opts.NoColor {
		header.DisableColor()
		warn.DisableColor()
	}

	header.Fprintf(w, "=== %s ===\n", strings.ToUpper(rep.Title()))
	fmt.Fprintf(w, "%s to %s, %d periods\n\n", rep.From.Format(dateLayout), rep.To.Format(dateLayout), len(rep.Periods))

	if len(rep.Series) == 0 {
		fmt.Fprintln(w, msgNoSeries)
	} else {
		fmt.Fprintln(w, seriesTable(rep, opts.MaxColumns))
	}

	if len(rep.Failures) > 0 {
		warn.Fprintf(w, "\n%s could not be fetched and were charted as empty:\n",
			pluralize(len(rep.Failures), "period"))

		for _, f := range rep.Failures {
			warn.Fprintf(w, "  - %s: %s\n", f.Span.End.Format(dateLayout), f.Error)
		}
	}

	return nil
}

func seriesTable(rep *report.Report, maxColumns int) string {
	if maxColumns <= 0 {
		maxColumns = DefaultMaxColumns
	}

	first := max(0, len(rep.Periods)-maxColumns)
	periods := rep.Periods[first:]

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	header := table.Row{"#", rep.Kind.Label()}
	for _, p := range periods {
		header = append(header, p.Format(dateLayout))
	}

	header = append(header, "Peak", "Total")
	tbl.AppendHeader(header)

	for i, s := range rep.Series {
		row := table.Row{i + 1, string(s.Name)}
		for _, pt := range s.Points[first:] {
			row = append(row, comma(pt.Count))
		}

		row = append(row, comma(s.Peak()), comma(s.Total()))
		tbl.AppendRow(row)
	}

	numeric := make([]table.ColumnConfig, 0, len(periods)+2)
	for col := 3; col <= len(header); col++ {
		numeric = append(numeric, table.ColumnConfig{Number: col, Align: text.AlignRight})
	}

	tbl.SetColumnConfigs(numeric)

	if first > 0 {
		tbl.SetCaption("showing the last %d of %d periods", len(periods), len(rep.Periods))
	}

	return tbl.Render()
}

// Plot writes a standalone HTML page with a stacked area chart of the series.
func Plot(w io.Writer, rep *report.Report, theme plotpage.Theme) error {
	if theme == "" {
		theme = plotpage.ThemeDark
	}

	labels := make([]string, len(rep.Periods))
	for i, p := range rep.Periods {
		labels[i] = p.Format(dateLayout)
	}

	names := make([]string, len(rep.Series))
	values := make([][]uint64, len(rep.Series))

	for i, s := range rep.Series {
		names[i] = string(s.Name)
		values[i] = countsToUint(s.Values())
	}

	chart := plotpage.BuildLineChart(plotpage.NewChartOpts(theme), labels,
		plotpage.StackedArea(names, values), yAxisLabel)

	page := plotpage.NewPage(rep.Title(), rangeSubtitle(rep.From, rep.To)).WithTheme(theme)
	page.Notes = failureNotes(rep.Failures)
	page.Add(plotpage.Section{
		Title:    "Rolling " + strings.ToLower(rep.Kind.Label()),
		Subtitle: "Windowed play counts of each period's top entries.",
		Chart:    chart,
	})

	return page.Render(w)
}

func failureNotes(failures []report.FailedSpan) []string {
	if len(failures) == 0 {
		return nil
	}

	notes := make([]string, 0, len(failures))
	for _, f := range failures {
		notes = append(notes, fmt.Sprintf("Server error for the week ending %s; charted as empty.",
			f.Span.End.Format(dateLayout)))
	}

	return notes
}

func rangeSubtitle(from, to time.Time) string {
	return fmt.Sprintf("%s to %s", from.Format(dateLayout), to.Format(dateLayout))
}

func countsToUint(counts []rolling.Count) []uint64 {
	out := make([]uint64, len(counts))
	for i, c := range counts {
		out[i] = uint64(c)
	}

	return out
}

func comma(c rolling.Count) string {
	return humanize.Comma(safeconv.ClampToInt64(uint64(c)))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return fmt.Sprintf("%d %ss", n, noun)
}

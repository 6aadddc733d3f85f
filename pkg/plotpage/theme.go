package plotpage

import (
	"errors"
	"fmt"
)

// Theme is a page color theme.
type Theme string

const (
	// ThemeLight is the light color theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark color theme.
	ThemeDark Theme = "dark"
)

// ErrUnknownTheme is returned by ParseTheme.
var ErrUnknownTheme = errors.New("unknown theme")

// ParseTheme validates a theme name. Empty selects ThemeDark.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case "":
		return ThemeDark, nil
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
	}
}

// ThemeConfig holds the page and chart colors of a theme.
type ThemeConfig struct {
	Background    string
	Surface       string
	Border        string
	TextPrimary   string
	TextMuted     string
	Accent        string
	Warning       string
	WarningSubtle string

	ChartBackground string
	ChartGrid       string
	ChartAxis       string
	ChartText       string
	ChartTextMuted  string

	// Palette colors series in order, wrapping around.
	Palette []string
}

// GetThemeConfig returns the configuration for theme, light for unknown values.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeDark {
		return darkTheme
	}

	return lightTheme
}

// SeriesColor returns the palette color for the i-th series.
func (tc ThemeConfig) SeriesColor(i int) string {
	if len(tc.Palette) == 0 {
		return ""
	}

	return tc.Palette[i%len(tc.Palette)]
}

var lightTheme = ThemeConfig{
	Background:    "#fafaf9", // stone-50.
	Surface:       "#ffffff",
	Border:        "#e7e5e4", // stone-200.
	TextPrimary:   "#1c1917", // stone-900.
	TextMuted:     "#78716c", // stone-500.
	Accent:        "#b91c1c", // red-700.
	Warning:       "#ca8a04", // yellow-600.
	WarningSubtle: "#fef9c3", // yellow-100.

	ChartBackground: "transparent",
	ChartGrid:       "#e7e5e4",
	ChartAxis:       "#a8a29e", // stone-400.
	ChartText:       "#44403c", // stone-700.
	ChartTextMuted:  "#78716c",

	Palette: []string{
		"#b91c1c", "#0284c7", "#65a30d", "#7c3aed", "#db2777",
		"#0891b2", "#ea580c", "#4f46e5", "#16a34a", "#a16207",
	},
}

var darkTheme = ThemeConfig{
	Background:    "#0c0a09", // stone-950.
	Surface:       "#1c1917", // stone-900.
	Border:        "#44403c", // stone-700.
	TextPrimary:   "#fafaf9",
	TextMuted:     "#a8a29e",
	Accent:        "#f87171", // red-400.
	Warning:       "#eab308", // yellow-500.
	WarningSubtle: "#422006", // yellow-950.

	ChartBackground: "transparent",
	ChartGrid:       "#292524", // stone-800.
	ChartAxis:       "#57534e", // stone-600.
	ChartText:       "#d6d3d1", // stone-300.
	ChartTextMuted:  "#a8a29e",

	Palette: []string{
		"#f87171", "#38bdf8", "#a3e635", "#a78bfa", "#f472b6",
		"#22d3ee", "#fb923c", "#818cf8", "#4ade80", "#fbbf24",
	},
}

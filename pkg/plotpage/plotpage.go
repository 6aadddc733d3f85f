// Package plotpage renders themed HTML pages of go-echarts charts.
package plotpage

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
)

// DefaultAssetsHost serves echarts.min.js.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

const styleCloseTag = "</style>"

//go:embed templates/page.html
var templateFS embed.FS

var (
	pageTemplate  *template.Template
	templateOnce  sync.Once
	errTemplateFS error
)

// Renderable is anything that writes itself as HTML, such as a go-echarts chart.
type Renderable interface {
	Render(w io.Writer) error
}

// Section is one chart on a page.
type Section struct {
	Title    string
	Subtitle string
	Chart    Renderable
}

// Page is a complete standalone HTML page.
type Page struct {
	Title      string
	Subtitle   string
	Theme      Theme
	AssetsHost string
	Notes      []string // Shown above the charts, e.g. periods that could not be fetched.
	Sections   []Section
}

// NewPage creates a dark-themed page.
func NewPage(title, subtitle string) *Page {
	return &Page{
		Title:      title,
		Subtitle:   subtitle,
		Theme:      ThemeDark,
		AssetsHost: DefaultAssetsHost,
	}
}

// WithTheme sets the theme.
func (p *Page) WithTheme(theme Theme) *Page {
	p.Theme = theme

	return p
}

// Add appends sections.
func (p *Page) Add(sections ...Section) {
	p.Sections = append(p.Sections, sections...)
}

type sectionData struct {
	Title    string
	Subtitle string
	Chart    template.HTML
}

type pageData struct {
	Title      string
	Subtitle   string
	ThemeName  string
	AssetsHost string
	Theme      ThemeConfig
	Notes      []string
	Sections   []sectionData
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	tmpl, err := loadTemplate()
	if err != nil {
		return err
	}

	data := pageData{
		Title:      p.Title,
		Subtitle:   p.Subtitle,
		ThemeName:  string(p.Theme),
		AssetsHost: p.AssetsHost,
		Theme:      GetThemeConfig(p.Theme),
		Notes:      p.Notes,
		Sections:   make([]sectionData, 0, len(p.Sections)),
	}

	for i, s := range p.Sections {
		chartHTML, chartErr := renderChart(s.Chart)
		if chartErr != nil {
			return fmt.Errorf("render section %d: %w", i, chartErr)
		}

		data.Sections = append(data.Sections, sectionData{
			Title:    s.Title,
			Subtitle: s.Subtitle,
			Chart:    template.HTML(chartHTML), //nolint:gosec // generated by go-echarts from escaped options.
		})
	}

	err = tmpl.Execute(w, data)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	return nil
}

func loadTemplate() (*template.Template, error) {
	templateOnce.Do(func() {
		pageTemplate, errTemplateFS = template.ParseFS(templateFS, "templates/page.html")
		if errTemplateFS != nil {
			errTemplateFS = fmt.Errorf("parse page template: %w", errTemplateFS)
		}
	})

	return pageTemplate, errTemplateFS
}

func renderChart(chart Renderable) (string, error) {
	if chart == nil {
		return "", nil
	}

	var buf bytes.Buffer

	err := chart.Render(&buf)
	if err != nil {
		return "", err
	}

	return extractChartContent(buf.String()), nil
}

// extractChartContent strips the document shell go-echarts wraps around a
// chart, keeping the container div and its init script.
func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	end := strings.Index(html, `</body>`)

	if start == -1 || end == -1 || end < start {
		return html
	}

	content := strings.ReplaceAll(html[start:end], `class="container"`, `class="echart-box"`)

	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, "<style>")
		if i == -1 {
			return content
		}

		j := strings.Index(content[i:], styleCloseTag)
		if j == -1 {
			return content
		}

		content = content[:i] + content[i+j+len(styleCloseTag):]
	}
}

// ABOUTME: Lays out the dashboard report: evaluation, analysis text and tables.
// ABOUTME: Table headers repeat after a page break; cells are truncated to fit.

package layout

import (
	"strings"
	"time"
)

// Table is a titled grid of text cells.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Report is the content of the dashboard export.
type Report struct {
	Title           string
	Evaluation      string
	MistakeAnalysis string
	Tables          []Table
}

var (
	reportTitle   = Font{Size: 12, Bold: true}
	reportHeading = Font{Size: 9, Bold: true}
	reportBody    = Font{Size: 7.5}
	reportItalic  = Font{Size: 7.5, Italic: true}
	tableFont     = Font{Size: 6.5}
	tableHeader   = Font{Size: 6.5, Bold: true}
)

// LayoutReport lays out r on geo.
func LayoutReport(geo Geometry, m Measurer, r Report, label string, generated time.Time) *Document {
	f := NewFlow(geo, m)
	f.Paragraph(r.Title, reportTitle, ColorHeading, 0)
	f.Space(2)

	heading(f, "AI evaluation")
	f.Paragraph(r.Evaluation, reportItalic, ColorText, 0)

	if strings.TrimSpace(r.MistakeAnalysis) != "" {
		f.Space(3)
		heading(f, "Mistake analysis")
		markdown(f, r.MistakeAnalysis)
	}

	for _, t := range r.Tables {
		f.Space(3)
		table(f, t)
	}

	return f.Finish(r.Title, label, generated)
}

func heading(f *Flow, text string) {
	f.Ensure(LineHeight(reportHeading) + LineHeight(reportBody))
	f.Paragraph(text, reportHeading, ColorAccent, 0)
	f.Space(0.8)
}

// markdown renders the small subset of markdown the analysis uses:
// headings, bullets and paragraphs, with emphasis markers removed.
func markdown(f *Flow, text string) {
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			f.Space(1.2)
		case strings.HasPrefix(line, "#"):
			f.Space(0.8)
			f.Ensure(LineHeight(reportHeading) + LineHeight(reportBody))
			f.Paragraph(plain(strings.TrimLeft(line, "# ")), reportHeading, ColorHeading, 0)
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			f.Bullet(plain(line[2:]), reportBody, ColorText, 1.5)
		default:
			f.Paragraph(plain(line), reportBody, ColorText, 0)
		}
	}
}

func plain(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimSpace(s)
}

func table(f *Flow, t Table) {
	cols := len(t.Header)
	if cols == 0 {
		return
	}
	width := f.geo.ContentWidth()
	first := width * 0.22
	if cols == 1 {
		first = width
	}
	rest := 0.0
	if cols > 1 {
		rest = (width - first) / float64(cols-1)
	}
	colX := func(i int) float64 {
		if i == 0 {
			return 0
		}
		return first + rest*float64(i-1)
	}
	colW := func(i int) float64 {
		if i == 0 {
			return first
		}
		return rest
	}

	const pad = 0.8
	rowH := LineHeight(tableFont) + pad
	drawRow := func(cells []string, font Font, color Color) {
		f.Ensure(rowH)
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			cell = Truncate(cell, colW(i)-pad, font, f.m)
			f.add(Op{
				Kind: OpText, X: f.geo.Margins.Left + colX(i), Y: f.y,
				W: f.m.Width(cell, font), H: rowH,
				Text: cell, Font: font, Color: color,
			})
		}
		f.y += rowH
	}
	drawHeader := func() {
		drawRow(t.Header, tableHeader, ColorHeading)
		f.Rule(ColorRule)
	}

	f.Ensure(LineHeight(reportHeading) + 2*rowH)
	heading(f, t.Title)
	drawHeader()
	if len(t.Rows) == 0 {
		f.Line(Line{Text: "No data", Font: tableFont, Color: ColorMuted})
		return
	}
	for _, r := range t.Rows {
		if !f.Fits(rowH) {
			f.Break()
			drawHeader()
		}
		drawRow(r, tableFont, ColorText)
	}
}

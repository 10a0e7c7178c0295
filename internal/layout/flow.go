// ABOUTME: Height-aware flow engine that places content onto fixed-size pages.
// ABOUTME: Every line is fit-checked; footers are added once the page count is known.

package layout

import (
	"fmt"
	"time"
)

// fitSlack absorbs float rounding when comparing heights.
const fitSlack = 1e-6

// OpKind identifies a drawing operation.
type OpKind int

const (
	OpText OpKind = iota
	OpImage
	OpRule
)

// Op is one positioned drawing operation. Y is the top of the box.
type Op struct {
	Kind  OpKind
	X, Y  float64
	W, H  float64
	Text  string
	Font  Font
	Color Color
	Link  string
	Image *Thumb
}

// Thumb is an embedded raster image with its pixel size.
type Thumb struct {
	ID     string
	Data   []byte
	Width  int
	Height int
}

// Page is one laid-out page.
type Page struct {
	Number int
	Ops    []Op
}

// Document is the result of a layout pass.
type Document struct {
	Geometry Geometry
	Title    string
	Pages    []Page
}

// Count returns the number of ops of kind k across all pages.
func (d *Document) Count(k OpKind) int {
	n := 0
	for _, p := range d.Pages {
		for _, op := range p.Ops {
			if op.Kind == k {
				n++
			}
		}
	}
	return n
}

// Texts returns the text of every text op on page i (0-based).
func (d *Document) Texts(i int) []string {
	var out []string
	for _, op := range d.Pages[i].Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// Line is one already-wrapped line of styled text.
type Line struct {
	Text   string
	Font   Font
	Color  Color
	Indent float64
	Link   string
}

// Flow places content top to bottom, starting new pages as needed.
type Flow struct {
	geo   Geometry
	m     Measurer
	pages []Page
	y     float64
}

// NewFlow starts a flow with one empty page.
func NewFlow(geo Geometry, m Measurer) *Flow {
	f := &Flow{geo: geo, m: m}
	f.newPage()
	return f
}

// Geometry returns the page geometry.
func (f *Flow) Geometry() Geometry { return f.geo }

// Measurer returns the measurer.
func (f *Flow) Measurer() Measurer { return f.m }

// Y returns the cursor position.
func (f *Flow) Y() float64 { return f.y }

// PageCount returns the number of pages so far.
func (f *Flow) PageCount() int { return len(f.pages) }

// Remaining is the height left above the footer reserve.
func (f *Flow) Remaining() float64 {
	return f.geo.ContentBottom() - f.y
}

// Fits reports whether h fits on the current page.
func (f *Flow) Fits(h float64) bool {
	return h <= f.Remaining()+fitSlack
}

// AtTop reports whether nothing has been placed on the current page.
func (f *Flow) AtTop() bool {
	return f.y <= f.geo.ContentTop()+fitSlack
}

// Break starts a new page and resets the cursor to the top margin.
func (f *Flow) Break() {
	f.newPage()
}

// Ensure breaks the page unless h fits. A fresh page is never broken again,
// so content taller than a page spills instead of looping.
func (f *Flow) Ensure(h float64) {
	if !f.Fits(h) && !f.AtTop() {
		f.Break()
	}
}

// Space advances the cursor. Space that does not fit ends the page.
func (f *Flow) Space(h float64) {
	if f.AtTop() {
		return
	}
	if !f.Fits(h) {
		f.Break()
		return
	}
	f.y += h
}

// Line places one line, breaking the page first when it does not fit.
func (f *Flow) Line(l Line) {
	lh := LineHeight(l.Font)
	f.Ensure(lh)
	x := f.geo.Margins.Left + l.Indent
	f.add(Op{
		Kind: OpText, X: x, Y: f.y,
		W: f.m.Width(l.Text, l.Font), H: lh,
		Text: l.Text, Font: l.Font, Color: l.Color, Link: l.Link,
	})
	f.y += lh
}

// Block places lines that belong together: when the whole block does not
// fit, it moves to a new page first.
func (f *Flow) Block(lines []Line) {
	total := 0.0
	for _, l := range lines {
		total += LineHeight(l.Font)
	}
	f.Ensure(total)
	for _, l := range lines {
		f.Line(l)
	}
}

// Paragraph wraps text to the available width and places it line by line.
func (f *Flow) Paragraph(text string, font Font, color Color, indent float64) {
	for _, s := range Wrap(text, f.geo.ContentWidth()-indent, font, f.m) {
		f.Line(Line{Text: s, Font: font, Color: color, Indent: indent})
	}
}

// Bullet places a bulleted item. Continuation lines hang under the text and
// each wrapped line is fit-checked on its own.
func (f *Flow) Bullet(text string, font Font, color Color, indent float64) {
	const marker = "• "
	hang := f.m.Width(marker, font)
	lines := Wrap(text, f.geo.ContentWidth()-indent-hang, font, f.m)
	for i, s := range lines {
		if i == 0 {
			f.Line(Line{Text: marker + s, Font: font, Color: color, Indent: indent})
			continue
		}
		f.Line(Line{Text: s, Font: font, Color: color, Indent: indent + hang})
	}
}

// Rule draws a horizontal line across the content width.
func (f *Flow) Rule(color Color) {
	f.Ensure(0)
	f.add(Op{Kind: OpRule, X: f.geo.Margins.Left, Y: f.y, W: f.geo.ContentWidth(), Color: color})
}

// Images places thumbnails in rows of fixed width, keeping aspect ratio. A
// row moves to a new page when it does not fit.
func (f *Flow) Images(thumbs []Thumb, width, gap float64) {
	if len(thumbs) == 0 {
		return
	}
	cw := f.geo.ContentWidth()
	width = min(width, cw)
	perRow := max(1, int((cw+gap)/(width+gap)))

	for start := 0; start < len(thumbs); start += perRow {
		row := thumbs[start:min(start+perRow, len(thumbs))]

		rowH := 0.0
		sizes := make([][2]float64, len(row))
		for i, t := range row {
			w, h := width, width
			if t.Width > 0 && t.Height > 0 {
				h = width * float64(t.Height) / float64(t.Width)
			}
			if h > f.geo.ContentHeight() {
				w = w * f.geo.ContentHeight() / h
				h = f.geo.ContentHeight()
			}
			sizes[i] = [2]float64{w, h}
			rowH = max(rowH, h)
		}

		f.Ensure(rowH)
		x := f.geo.Margins.Left
		for i := range row {
			t := row[i]
			f.add(Op{Kind: OpImage, X: x, Y: f.y, W: sizes[i][0], H: sizes[i][1], Image: &t})
			x += width + gap
		}
		f.y += rowH + gap
	}
}

// Finish appends a footer to every page and returns the document. The
// footer shows label, the generation time and, for more than one page,
// "Page n/N".
func (f *Flow) Finish(title, label string, generated time.Time) *Document {
	total := len(f.pages)
	font := Font{Size: 5}
	lh := LineHeight(font)
	ruleY := f.geo.Height - f.geo.Margins.Bottom - f.geo.FooterReserve + lh*0.3
	textY := f.geo.Height - f.geo.Margins.Bottom - lh

	for i := range f.pages {
		p := &f.pages[i]
		text := fmt.Sprintf("%s | %s", label, generated.Format("02/01/2006 15:04"))
		if total > 1 {
			text += fmt.Sprintf(" | Page %d/%d", p.Number, total)
		}
		text = Truncate(text, f.geo.ContentWidth(), font, f.m)
		p.Ops = append(p.Ops,
			Op{Kind: OpRule, X: f.geo.Margins.Left, Y: ruleY, W: f.geo.ContentWidth(), Color: ColorRule},
			Op{Kind: OpText, X: f.geo.Margins.Left, Y: textY, W: f.m.Width(text, font), H: lh, Text: text, Font: font, Color: ColorMuted},
		)
	}
	return &Document{Geometry: f.geo, Title: title, Pages: f.pages}
}

func (f *Flow) add(op Op) {
	p := &f.pages[len(f.pages)-1]
	p.Ops = append(p.Ops, op)
}

func (f *Flow) newPage() {
	f.pages = append(f.pages, Page{Number: len(f.pages) + 1})
	f.y = f.geo.ContentTop()
}

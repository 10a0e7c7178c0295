// ABOUTME: Page geometry, fonts, colour roles and text measurement for layout.
// ABOUTME: Units are millimetres; font sizes are points.

package layout

import "unicode/utf8"

// PtToMM converts typographic points to millimetres.
const PtToMM = 25.4 / 72

// Font is the text style used for measuring and drawing.
type Font struct {
	Size   float64
	Bold   bool
	Italic bool
}

// LineHeight returns the vertical advance for one line of f.
func LineHeight(f Font) float64 {
	return f.Size * PtToMM * 1.3
}

// Measurer reports the drawn width of text in millimetres.
type Measurer interface {
	Width(text string, f Font) float64
}

// MonoMeasurer treats every rune as Advance em wide. It makes layout
// deterministic without font files.
type MonoMeasurer struct {
	Advance float64
}

func (m MonoMeasurer) Width(text string, f Font) float64 {
	adv := m.Advance
	if adv == 0 {
		adv = 0.5
	}
	return float64(utf8.RuneCountInString(text)) * f.Size * PtToMM * adv
}

// Margins are page margins in millimetres.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Geometry fixes the page size and the printable area.
type Geometry struct {
	Width, Height float64
	Margins       Margins
	// FooterReserve is kept free above the bottom margin for the footer.
	FooterReserve float64
}

// NotesPage is the pocket-sized page used for note exports.
var NotesPage = Geometry{
	Width:         67,
	Height:        130,
	Margins:       Margins{Top: 2, Right: 1.5, Bottom: 1.5, Left: 1.5},
	FooterReserve: 4,
}

// ReportPage is the wider page used for the dashboard report.
var ReportPage = Geometry{
	Width:         105,
	Height:        148,
	Margins:       Margins{Top: 6, Right: 6, Bottom: 4, Left: 6},
	FooterReserve: 5,
}

// ContentWidth is the usable width between the side margins.
func (g Geometry) ContentWidth() float64 {
	return g.Width - g.Margins.Left - g.Margins.Right
}

// ContentTop is where the cursor starts on a fresh page.
func (g Geometry) ContentTop() float64 {
	return g.Margins.Top
}

// ContentBottom is the lowest y content may reach.
func (g Geometry) ContentBottom() float64 {
	return g.Height - g.Margins.Bottom - g.FooterReserve
}

// ContentHeight is the usable height of an empty page.
func (g Geometry) ContentHeight() float64 {
	return g.ContentBottom() - g.ContentTop()
}

// Color is a semantic colour role resolved by the renderer.
type Color int

const (
	ColorText Color = iota
	ColorMuted
	ColorHeading
	ColorAccent
	ColorDanger
	ColorSuccess
	ColorLink
	ColorRule
)

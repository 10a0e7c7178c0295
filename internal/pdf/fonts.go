// ABOUTME: Font setup and fpdf-backed text measurement.
// ABOUTME: Core Helvetica with cp1252 translation, or a UTF-8 TrueType file.

package pdf

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/harper/eureka/internal/layout"
)

const utf8Family = "eureka"

// ErrUnsupportedText means the active font cannot encode some characters.
var ErrUnsupportedText = errors.New("font cannot encode text")

// FontConfig selects the font used for measuring and drawing. An empty File
// uses the built-in Helvetica, which covers Western European text only.
type FontConfig struct {
	File string
}

type fontSet struct {
	family    string
	translate func(string) string
	// lossy is set when translate replaces runes it cannot encode with '.'.
	lossy bool
}

// dropped returns the first rune of text that translated came out as a
// substitute '.'. The cp1252 translator maps every rune to exactly one byte.
func dropped(text, translated string) (rune, bool) {
	if len(translated) != utf8.RuneCountInString(text) {
		return 0, false
	}
	i := 0
	for _, r := range text {
		if translated[i] == '.' && r != '.' {
			return r, true
		}
		i++
	}
	return 0, false
}

func (fs fontSet) style(f layout.Font) string {
	switch {
	case f.Bold && f.Italic:
		return "BI"
	case f.Bold:
		return "B"
	case f.Italic:
		return "I"
	}
	return ""
}

// setupFonts registers fc's font on p.
func setupFonts(p *fpdf.Fpdf, fc FontConfig) (fontSet, error) {
	if fc.File == "" {
		return fontSet{
			family:    "Helvetica",
			translate: p.UnicodeTranslatorFromDescriptor(""),
			lossy:     true,
		}, nil
	}

	data, err := os.ReadFile(fc.File)
	if err != nil {
		return fontSet{}, fmt.Errorf("read font file: %w", err)
	}
	for _, style := range []string{"", "B", "I", "BI"} {
		p.AddUTF8FontFromBytes(utf8Family, style, data)
	}
	if err := p.Error(); err != nil {
		return fontSet{}, fmt.Errorf("load font %s: %w", fc.File, err)
	}
	return fontSet{family: utf8Family, translate: func(s string) string { return s }}, nil
}

// Measurer reports text widths with the same metrics the renderer uses.
// It is not safe for concurrent use.
type Measurer struct {
	p     *fpdf.Fpdf
	fonts fontSet
	err   error
}

// NewMeasurer loads fc for measuring.
func NewMeasurer(fc FontConfig) (*Measurer, error) {
	p := fpdf.New("P", "mm", "A4", "")
	fonts, err := setupFonts(p, fc)
	if err != nil {
		return nil, err
	}
	return &Measurer{p: p, fonts: fonts}, nil
}

// Width implements layout.Measurer.
func (m *Measurer) Width(text string, f layout.Font) float64 {
	m.p.SetFont(m.fonts.family, m.fonts.style(f), f.Size)
	encoded := m.fonts.translate(text)
	if m.fonts.lossy && m.err == nil {
		if r, ok := dropped(text, encoded); ok {
			m.err = fmt.Errorf("%w: %s has no glyph for %q in %q", ErrUnsupportedText, m.fonts.family, r, text)
		}
	}
	return m.p.GetStringWidth(encoded)
}

// Err returns the first text the font could not encode, or the first
// metrics error fpdf recorded.
func (m *Measurer) Err() error {
	if m.err != nil {
		return m.err
	}
	return m.p.Error()
}

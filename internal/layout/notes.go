// ABOUTME: Lays out study notes for the pocket-sized PDF export.
// ABOUTME: Fixed order per note: header, text sections, error items, thumbnails.

package layout

import (
	"fmt"
	"strings"
	"time"

	"github.com/harper/eureka/internal/models"
)

// Entry is one note to export with an optional selection of its error
// items. A nil Selected exports every item.
type Entry struct {
	Note     models.Note
	Selected []int
}

// Styles are the fonts used by the notes layout.
type Styles struct {
	Title     Font
	NoteTitle Font
	Meta      Font
	Label     Font
	Body      Font
	Thumb     float64
	Gap       float64
}

// DefaultStyles fit the 67mm notes page.
var DefaultStyles = Styles{
	Title:     Font{Size: 9, Bold: true},
	NoteTitle: Font{Size: 7.5, Bold: true},
	Meta:      Font{Size: 5.5, Italic: true},
	Label:     Font{Size: 6, Bold: true},
	Body:      Font{Size: 6.5},
	Thumb:     20,
	Gap:       1.5,
}

// NoDataMessage is printed when there is nothing to export.
const NoDataMessage = "No notes to export."

// Notes builds a notes document incrementally so callers can report
// progress between notes.
type Notes struct {
	flow   *Flow
	styles Styles
	title  string
	count  int
}

// NewNotes starts a notes document with its title line.
func NewNotes(geo Geometry, m Measurer, title string, styles Styles) *Notes {
	n := &Notes{flow: NewFlow(geo, m), styles: styles, title: title}
	n.flow.Paragraph(title, styles.Title, ColorHeading, 0)
	n.flow.Space(1.5)
	return n
}

// Add lays out one note. seq is its 1-based position in the export.
func (n *Notes) Add(seq int, e Entry, thumbs []Thumb) {
	f, st := n.flow, n.styles
	note := e.Note
	n.count++

	if n.count > 1 {
		f.Space(1)
		f.Rule(ColorRule)
		f.Space(1.5)
	}

	var header []Line
	for _, s := range Wrap(fmt.Sprintf("%d. %s", seq, note.Lesson), f.geo.ContentWidth(), st.NoteTitle, f.m) {
		header = append(header, Line{Text: s, Font: st.NoteTitle, Color: ColorHeading})
	}
	for _, s := range Wrap(metaLine(note), f.geo.ContentWidth(), st.Meta, f.m) {
		header = append(header, Line{Text: s, Font: st.Meta, Color: ColorMuted})
	}
	f.Block(header)

	n.section("Source", note.Source, ColorMuted, "")
	n.section("Mistake", note.Mistake, ColorDanger, "")
	n.section("Correction", note.Correction, ColorSuccess, "")
	n.section("Remember", note.FutureNote, ColorText, "")
	n.section("Reference", note.ReferenceLink, ColorLink, note.ReferenceLink)

	if items := note.ErrorItems(e.Selected); len(items) > 0 {
		n.label("Errors")
		for _, item := range items {
			f.Bullet(item, st.Body, ColorText, 1)
		}
	}

	if len(thumbs) > 0 {
		f.Space(1)
		f.Images(thumbs, st.Thumb, st.Gap)
	}
}

// Finish completes the document. An export with no notes gets the no-data
// message so it is never empty.
func (n *Notes) Finish(label string, generated time.Time) *Document {
	if n.count == 0 {
		n.flow.Paragraph(NoDataMessage, n.styles.Body, ColorMuted, 0)
	}
	return n.flow.Finish(n.title, label, generated)
}

// PageCount returns the pages used so far.
func (n *Notes) PageCount() int {
	return n.flow.PageCount()
}

func (n *Notes) section(name, text string, color Color, link string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	f, st := n.flow, n.styles
	f.Space(0.8)
	// Keep the label with the first line of its text.
	f.Ensure(LineHeight(st.Label) + LineHeight(st.Body))
	f.Line(Line{Text: name, Font: st.Label, Color: color})
	for _, s := range Wrap(text, f.geo.ContentWidth()-1, st.Body, f.m) {
		f.Line(Line{Text: s, Font: st.Body, Color: ColorText, Indent: 1, Link: link})
	}
}

func (n *Notes) label(name string) {
	f, st := n.flow, n.styles
	f.Space(0.8)
	f.Ensure(LineHeight(st.Label) + LineHeight(st.Body))
	f.Line(Line{Text: name, Font: st.Label, Color: ColorAccent})
}

func metaLine(n models.Note) string {
	parts := []string{n.Subject.Label(), n.Difficulty.Label()}
	if !n.CreatedAt.IsZero() {
		parts = append(parts, n.CreatedAt.Local().Format("02/01/2006"))
	}
	return strings.Join(parts, " · ")
}

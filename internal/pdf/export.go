// ABOUTME: Notes and dashboard exporters producing finished PDF bytes.
// ABOUTME: Failures collapse into one ExportError; files are written atomically.

package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/eureka/internal/analysis"
	"github.com/harper/eureka/internal/imaging"
	"github.com/harper/eureka/internal/layout"
	"github.com/harper/eureka/internal/models"
)

// AppName prefixes every export filename and footer.
const AppName = "Eureka"

// DefaultConfirmThreshold is the note count above which callers should ask
// before exporting.
const DefaultConfirmThreshold = 20

// Kind names an export in its filename.
type Kind string

const (
	KindNotes  Kind = "Notes"
	KindReport Kind = "Report"
)

// Filename returns the file name for an export of kind made at t.
func Filename(kind Kind, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s.pdf", AppName, kind, t.Format("2006-01-02"))
}

// NeedsConfirmation reports whether exporting n notes should be confirmed.
func NeedsConfirmation(n, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultConfirmThreshold
	}
	return n > threshold
}

// ExportError is the single error an export reports.
type ExportError struct {
	Err  error
	Hint string
}

func (e *ExportError) Error() string {
	msg := "export failed: " + e.Err.Error()
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

const fontHint = "the font could not measure or draw this text; set export.font_file to a TrueType font that covers it"

// exportFailure wraps err in an ExportError. Cancellation passes through
// unchanged.
func exportFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ee *ExportError
	if errors.As(err, &ee) {
		return err
	}
	out := &ExportError{Err: err}
	if errors.Is(err, ErrUnsupportedText) {
		out.Hint = fontHint
		return out
	}
	msg := strings.ToLower(err.Error())
	for _, word := range []string{"font", "width", "glyph", "metric"} {
		if strings.Contains(msg, word) {
			out.Hint = fontHint
			break
		}
	}
	return out
}

// Progress is reported after each note is laid out.
type Progress struct {
	Current int
	Total   int
	Lesson  string
}

// Options control a notes export.
type Options struct {
	Title         string
	IncludeImages bool
}

// Exporter turns notes and reports into PDF bytes.
type Exporter struct {
	fonts    FontConfig
	resolver *imaging.Resolver
	logger   *log.Logger
	now      func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFonts sets the font configuration.
func WithFonts(fc FontConfig) Option {
	return func(e *Exporter) { e.fonts = fc }
}

// WithResolver sets the image resolver.
func WithResolver(r *imaging.Resolver) Option {
	return func(e *Exporter) { e.resolver = r }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithClock sets the time source used for footers and filenames.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// NewExporter returns an exporter with the built-in font.
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{logger: log.New(io.Discard), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = imaging.NewResolver(imaging.WithLogger(e.logger))
	}
	return e
}

// ExportNotes lays out and renders entries in order. progress, if not nil,
// is called after each note. ctx is checked before every note and during
// image resolution; a cancelled export returns ctx's error and no bytes.
func (e *Exporter) ExportNotes(ctx context.Context, entries []layout.Entry, opts Options, progress func(Progress)) ([]byte, error) {
	if opts.Title == "" {
		opts.Title = AppName + " notes"
	}
	m, err := NewMeasurer(e.fonts)
	if err != nil {
		return nil, exportFailure(err)
	}

	notes := layout.NewNotes(layout.NotesPage, m, opts.Title, layout.DefaultStyles)
	imageSeq := 0
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var thumbs []layout.Thumb
		if opts.IncludeImages && len(entry.Note.ImageURLs) > 0 {
			imgs, err := e.resolver.ResolveAll(ctx, entry.Note.ImageURLs)
			if err != nil {
				return nil, err
			}
			for _, img := range imgs {
				imageSeq++
				thumbs = append(thumbs, layout.Thumb{
					ID:     fmt.Sprintf("img%d", imageSeq),
					Data:   img.Data,
					Width:  img.Width,
					Height: img.Height,
				})
			}
		}

		notes.Add(i+1, entry, thumbs)
		if progress != nil {
			progress(Progress{Current: i + 1, Total: len(entries), Lesson: entry.Note.Lesson})
		}
	}
	if err := m.Err(); err != nil {
		return nil, exportFailure(err)
	}

	doc := notes.Finish(AppName, e.now())
	e.logger.Debug("notes laid out", "notes", len(entries), "pages", len(doc.Pages))
	return e.render(doc)
}

// ExportReport renders the dashboard report.
func (e *Exporter) ExportReport(ctx context.Context, r layout.Report) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := NewMeasurer(e.fonts)
	if err != nil {
		return nil, exportFailure(err)
	}
	doc := layout.LayoutReport(layout.ReportPage, m, r, AppName, e.now())
	if err := m.Err(); err != nil {
		return nil, exportFailure(err)
	}
	return e.render(doc)
}

func (e *Exporter) render(doc *layout.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(doc, e.fonts, &buf); err != nil {
		return nil, exportFailure(err)
	}
	return buf.Bytes(), nil
}

// Save writes data into dir under the export filename. The file appears
// complete or not at all.
func (e *Exporter) Save(dir string, kind Kind, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", exportFailure(fmt.Errorf("create output directory: %w", err))
	}
	path := filepath.Join(dir, Filename(kind, e.now()))
	if err := writeAtomic(path, data); err != nil {
		return "", exportFailure(err)
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".eureka-*.pdf.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// BuildReport assembles the dashboard content. When the model returned no
// chart data the tables are counted locally from notes.
func BuildReport(notes []models.Note, progress analysis.Progress, mistakes string) layout.Report {
	diffs, subjects := progress.ChartDataByDifficulty, progress.ChartDataBySubject
	if progress.IsEmpty() {
		diffs, subjects = analysis.Tally(notes)
	}

	byDifficulty := layout.Table{Title: "Notes by difficulty", Header: []string{"Period"}}
	for _, d := range models.Difficulties {
		byDifficulty.Header = append(byDifficulty.Header, d.Label())
	}
	for _, p := range diffs {
		row := []string{p.Name}
		for _, d := range models.Difficulties {
			row = append(row, fmt.Sprint(p.Count(d)))
		}
		byDifficulty.Rows = append(byDifficulty.Rows, row)
	}

	// Only subjects that occur get a column.
	var present []models.Subject
	for _, s := range models.Subjects {
		for _, p := range subjects {
			if p.Count(s) > 0 {
				present = append(present, s)
				break
			}
		}
	}
	bySubject := layout.Table{Title: "Notes by subject", Header: []string{"Period"}}
	for _, s := range present {
		bySubject.Header = append(bySubject.Header, s.Label())
	}
	if len(present) > 0 {
		for _, p := range subjects {
			row := []string{p.Name}
			for _, s := range present {
				row = append(row, fmt.Sprint(p.Count(s)))
			}
			bySubject.Rows = append(bySubject.Rows, row)
		}
	}

	return layout.Report{
		Title:           AppName + " dashboard",
		Evaluation:      progress.Evaluation,
		MistakeAnalysis: mistakes,
		Tables:          []layout.Table{byDifficulty, bySubject},
	}
}

// ABOUTME: Tests for the PDF exporters, filenames and atomic saving.
// ABOUTME: Renders real PDFs with the built-in font and inline PNG images.

package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/eureka/internal/analysis"
	"github.com/harper/eureka/internal/layout"
	"github.com/harper/eureka/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)

func testExporter() *Exporter {
	return NewExporter(WithClock(func() time.Time { return fixed }))
}

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func entry(lesson string) layout.Entry {
	return layout.Entry{Note: models.Note{
		ID: lesson, Lesson: lesson, Subject: models.SubjectScience, Difficulty: models.DifficultyEasy,
		Mistake: "Mixed up mass and weight", Correction: "Weight is a force",
		Errors:    []string{"units", "sign of g"},
		CreatedAt: fixed,
	}}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Eureka-Notes-2024-07-01.pdf", Filename(KindNotes, fixed))
	assert.Equal(t, "Eureka-Report-2024-07-01.pdf", Filename(KindReport, fixed))
}

func TestNeedsConfirmation(t *testing.T) {
	assert.False(t, NeedsConfirmation(20, 0))
	assert.True(t, NeedsConfirmation(21, 0))
	assert.True(t, NeedsConfirmation(4, 3))
	assert.False(t, NeedsConfirmation(0, 3))
}

func TestExportFailureHint(t *testing.T) {
	assert.Nil(t, exportFailure(nil))
	assert.Equal(t, context.Canceled, exportFailure(context.Canceled))

	err := exportFailure(errors.New("undefined font: helvetica"))
	var ee *ExportError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, fontHint, ee.Hint)
	assert.Contains(t, err.Error(), fontHint)

	err = exportFailure(errors.New("disk full"))
	require.ErrorAs(t, err, &ee)
	assert.Empty(t, ee.Hint)
	assert.Equal(t, "export failed: disk full", err.Error())
}

func TestExportNotesEmpty(t *testing.T) {
	data, err := testExporter().ExportNotes(context.Background(), nil, Options{}, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestExportNotesReportsProgress(t *testing.T) {
	entries := []layout.Entry{entry("Forces"), entry("Energy"), entry("Waves")}
	var seen []Progress
	data, err := testExporter().ExportNotes(context.Background(), entries, Options{Title: "Physics"}, func(p Progress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	require.Len(t, seen, 3)
	assert.Equal(t, Progress{Current: 3, Total: 3, Lesson: "Waves"}, seen[2])
}

func TestExportNotesEmbedsImages(t *testing.T) {
	e := entry("Pictures")
	e.Note.ImageURLs = []string{pngDataURI(t, 40, 20), "not an image", pngDataURI(t, 10, 30)}

	data, err := testExporter().ExportNotes(context.Background(), []layout.Entry{e}, Options{IncludeImages: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("/Subtype /Image")))

	data, err = testExporter().ExportNotes(context.Background(), []layout.Entry{e}, Options{}, nil)
	require.NoError(t, err)
	assert.Zero(t, bytes.Count(data, []byte("/Subtype /Image")))
}

func TestExportNotesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	data, err := testExporter().ExportNotes(ctx, []layout.Entry{entry("a"), entry("b"), entry("c")}, Options{}, func(Progress) {
		calls++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, data)
	assert.Equal(t, 1, calls)
}

func TestExportNotesBadFont(t *testing.T) {
	e := NewExporter(WithFonts(FontConfig{File: filepath.Join(t.TempDir(), "missing.ttf")}))
	_, err := e.ExportNotes(context.Background(), nil, Options{}, nil)
	var ee *ExportError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, fontHint, ee.Hint)
}

func TestExportReport(t *testing.T) {
	notes := []models.Note{entry("a").Note, entry("b").Note}
	r := BuildReport(notes, analysis.Fallback("Not enough data."), "## Patterns\n- units")
	data, err := testExporter().ExportReport(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestBuildReportFallsBackToTally(t *testing.T) {
	notes := []models.Note{entry("a").Note, entry("b").Note}
	r := BuildReport(notes, analysis.Fallback("x"), "")

	require.Len(t, r.Tables, 2)
	assert.Equal(t, []string{"Period", "Easy", "Medium", "Hard", "Critical"}, r.Tables[0].Header)
	assert.Equal(t, [][]string{{"2024-07", "2", "0", "0", "0"}}, r.Tables[0].Rows)
	assert.Equal(t, []string{"Period", "Science"}, r.Tables[1].Header)
	assert.Equal(t, [][]string{{"2024-07", "2"}}, r.Tables[1].Rows)
	assert.Equal(t, "x", r.Evaluation)
}

func TestBuildReportUsesModelCharts(t *testing.T) {
	p := analysis.Progress{
		Evaluation:            "Good",
		ChartDataByDifficulty: []analysis.DifficultyPoint{{Name: "Week 1", Hard: 3}},
		ChartDataBySubject:    []analysis.SubjectPoint{{Name: "Week 1", Counts: map[models.Subject]int{models.SubjectMath: 3}}},
	}
	r := BuildReport(nil, p, "")
	assert.Equal(t, [][]string{{"Week 1", "0", "0", "3", "0"}}, r.Tables[0].Rows)
	assert.Equal(t, [][]string{{"Week 1", "3"}}, r.Tables[1].Rows)
}

func TestSaveIsAtomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := testExporter().Save(dir, KindNotes, []byte("%PDF-1.3 test"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Eureka-Notes-2024-07-01.pdf"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 test", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestMeasurer(t *testing.T) {
	m, err := NewMeasurer(FontConfig{})
	require.NoError(t, err)

	body := layout.Font{Size: 10}
	assert.Greater(t, m.Width("ab", body), m.Width("a", body))
	assert.Greater(t, m.Width("bcd", layout.Font{Size: 10, Bold: true}), m.Width("bcd", body))
	assert.Greater(t, m.Width("é", body), 0.0)
	assert.Zero(t, m.Width("", body))
	assert.NoError(t, m.Err())
}

func TestMeasurerFlagsTextOutsideCoreFont(t *testing.T) {
	m, err := NewMeasurer(FontConfig{})
	require.NoError(t, err)

	m.Width("Café · naïve … • ok.", layout.Font{Size: 10})
	require.NoError(t, m.Err())

	m.Width("Tổng hợp lỗi: phương trình bậc hai", layout.Font{Size: 10})
	err = m.Err()
	require.ErrorIs(t, err, ErrUnsupportedText)
	assert.Contains(t, err.Error(), "'ổ'")
}

func TestExportNotesRejectsUnencodableText(t *testing.T) {
	e := entry("Phương trình bậc hai")
	_, err := testExporter().ExportNotes(context.Background(), []layout.Entry{e}, Options{}, nil)

	var ee *ExportError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, ErrUnsupportedText)
	assert.Equal(t, fontHint, ee.Hint)
}

func TestDropped(t *testing.T) {
	r, ok := dropped("a.b", "a.b")
	assert.False(t, ok, "a literal dot is not a substitution")
	r, ok = dropped("aờb", "a.b")
	assert.True(t, ok)
	assert.Equal(t, 'ờ', r)
}

// ABOUTME: Tests for MCP tool, resource and prompt handlers.
// ABOUTME: Runs against a temp SQLite store and a canned AI completer.

package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harper/eureka/internal/analysis"
	"github.com/harper/eureka/internal/config"
	"github.com/harper/eureka/internal/db"
	"github.com/harper/eureka/internal/models"
	"github.com/harper/eureka/internal/notebook"
	"github.com/harper/eureka/internal/pdf"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedCompleter struct{ reply string }

func (c cannedCompleter) Complete(ctx context.Context, req analysis.Request) (string, error) {
	return c.reply, nil
}

func newTestServer(t *testing.T) (*Server, *notebook.Store) {
	t.Helper()
	dir := t.TempDir()
	sqlDB, err := db.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	remote := db.NewStore(sqlDB, db.WithPollInterval(20*time.Millisecond))
	t.Cleanup(func() { _ = remote.Close() })

	store := notebook.New(remote, notebook.Session{UserID: "tester"})
	sub, err := store.Subscribe(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(sub.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = sub.Next(ctx)
	require.NoError(t, err)

	s := NewServer(Deps{
		Store:            store,
		Analyst:          analysis.New(config.AIConfig{}, analysis.WithCompleter(cannedCompleter{reply: "## Patterns\n- signs"})),
		Exporter:         pdf.NewExporter(),
		OutputDir:        filepath.Join(dir, "out"),
		ConfirmThreshold: 2,
	})
	return s, store
}

func call(t *testing.T, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args string) *mcp.CallToolResult {
	t.Helper()
	res, err := handler(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(args)},
	})
	require.NoError(t, err)
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(*mcp.TextContent).Text
}

func addNote(t *testing.T, s *Server, store *notebook.Store, lesson string) models.Note {
	t.Helper()
	res := call(t, s.handleAddNote, `{"lesson":"`+lesson+`","mistake":"m","correction":"c","subject":"math","errors":["one","two","three"]}`)
	require.False(t, res.IsError, text(res))
	id := strings.TrimPrefix(text(res), "Created note ")

	var note models.Note
	require.Eventually(t, func() bool {
		n, err := store.Get(id)
		note = n
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	return note
}

func TestAddAndGetNote(t *testing.T) {
	s, store := newTestServer(t)
	note := addNote(t, s, store, "Fractions")
	assert.Equal(t, models.SubjectMath, note.Subject)
	assert.Equal(t, models.DifficultyMedium, note.Difficulty)

	res := call(t, s.handleGetNote, `{"id":"`+note.ID[:8]+`"}`)
	require.False(t, res.IsError)
	var view struct {
		DisplayID int      `json:"displayId"`
		Lesson    string   `json:"lesson"`
		Errors    []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(res)), &view))
	assert.Equal(t, 1, view.DisplayID)
	assert.Equal(t, "Fractions", view.Lesson)
	assert.Equal(t, []string{"one", "two", "three"}, view.Errors)
}

func TestAddNoteValidation(t *testing.T) {
	s, _ := newTestServer(t)
	res := call(t, s.handleAddNote, `{"lesson":"x","mistake":"m"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "correction")
}

func TestListNotesFilters(t *testing.T) {
	s, store := newTestServer(t)
	addNote(t, s, store, "Alpha")
	addNote(t, s, store, "Beta")

	res := call(t, s.handleListNotes, `{"query":"beta"}`)
	var views []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(res)), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Beta", views[0]["lesson"])

	res = call(t, s.handleListNotes, `{"subject":"history"}`)
	assert.Equal(t, "[]", text(res))
}

func TestUpdateNote(t *testing.T) {
	s, store := newTestServer(t)
	note := addNote(t, s, store, "Old")

	res := call(t, s.handleUpdateNote, `{"id":"`+note.ID+`","lesson":"New","difficulty":"critical"}`)
	require.False(t, res.IsError, text(res))

	require.Eventually(t, func() bool {
		n, err := store.Get(note.ID)
		return err == nil && n.Lesson == "New" && n.Difficulty == models.DifficultyCritical
	}, 2*time.Second, 10*time.Millisecond)

	res = call(t, s.handleUpdateNote, `{"id":"`+note.ID+`"}`)
	assert.True(t, res.IsError)
}

func TestDeleteNote(t *testing.T) {
	s, store := newTestServer(t)
	note := addNote(t, s, store, "Gone")

	res := call(t, s.handleDeleteNote, `{"id":"`+note.ID+`"}`)
	require.False(t, res.IsError, text(res))
	_, err := store.Get(note.ID)
	assert.ErrorIs(t, err, models.ErrNoteNotFound)

	res = call(t, s.handleGetNote, `{"id":"`+note.ID+`"}`)
	assert.True(t, res.IsError)
}

func TestAnalyzeTools(t *testing.T) {
	s, store := newTestServer(t)

	res := call(t, s.handleAnalyzeMistakes, `{}`)
	assert.Equal(t, analysis.MsgNoNotes, text(res))

	addNote(t, s, store, "Signs")
	res = call(t, s.handleAnalyzeMistakes, `{}`)
	assert.Equal(t, "## Patterns\n- signs", text(res))

	res = call(t, s.handleAnalyzeProgress, `{}`)
	var p analysis.Progress
	require.NoError(t, json.Unmarshal([]byte(text(res)), &p))
	assert.Equal(t, analysis.MsgMalformed, p.Evaluation)
}

func TestExportPDFRequiresConfirmation(t *testing.T) {
	s, store := newTestServer(t)
	for _, l := range []string{"A", "B", "C"} {
		addNote(t, s, store, l)
	}

	res := call(t, s.handleExportPDF, `{}`)
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "confirm=true")

	res = call(t, s.handleExportPDF, `{"confirm":true,"include_images":false}`)
	require.False(t, res.IsError, text(res))

	path := filepath.Join(s.deps.OutputDir, pdf.Filename(pdf.KindNotes, time.Now()))
	assert.Contains(t, text(res), "Exported 3 notes")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestExportPDFSelectedErrors(t *testing.T) {
	s, store := newTestServer(t)
	note := addNote(t, s, store, "Pick")

	res := call(t, s.handleExportPDF, `{"ids":["`+note.ID+`"],"selected_errors":{"`+note.ID[:6]+`":[2]}}`)
	require.False(t, res.IsError, text(res))
	assert.Contains(t, text(res), "Exported 1 notes")
}

func TestReadResource(t *testing.T) {
	s, store := newTestServer(t)
	note := addNote(t, s, store, "Readable")

	res, err := s.handleReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: noteURIPrefix + note.ID},
	})
	require.NoError(t, err)
	content := res.Contents[0].Text
	assert.Contains(t, content, "# Readable")
	assert.Contains(t, content, "## Mistake")

	_, err = s.handleReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "other://x"},
	})
	assert.Error(t, err)
}

func TestReviewPrompt(t *testing.T) {
	s, store := newTestServer(t)
	addNote(t, s, store, "Limits")

	res, err := s.getReviewMistakesPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "review-mistakes", Arguments: map[string]string{"subject": "math"}},
	})
	require.NoError(t, err)
	body := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, body, "[Math/Medium] Limits: m -> c")

	res, err = s.getReviewMistakesPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "review-mistakes", Arguments: map[string]string{"subject": "history"}},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "no notes yet")
}

// ABOUTME: MCP tools for note CRUD, AI analysis and PDF export.
// ABOUTME: Maps CLI functionality to MCP tool interface.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harper/eureka/internal/layout"
	"github.com/harper/eureka/internal/models"
	"github.com/harper/eureka/internal/notebook"
	"github.com/harper/eureka/internal/pdf"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const noteProperties = `
				"lesson": {"type": "string", "description": "Lesson or topic title"},
				"mistake": {"type": "string", "description": "What went wrong"},
				"correction": {"type": "string", "description": "The right way"},
				"subject": {"type": "string", "description": "math, science, history, literature, code, english or other"},
				"difficulty": {"type": "string", "description": "easy, medium, hard or critical"},
				"source": {"type": "string", "description": "Where the mistake came from (exam, book, exercise)"},
				"future_note": {"type": "string", "description": "Reminder for next time"},
				"reference_link": {"type": "string", "description": "URL with more material"},
				"errors": {"type": "array", "items": {"type": "string"}, "description": "Individual error items"},
				"image_urls": {"type": "array", "items": {"type": "string"}, "description": "Image URLs or data URIs"}`

const filterProperties = `
				"subject": {"type": "string", "description": "Filter by subject"},
				"difficulty": {"type": "string", "description": "Filter by difficulty"},
				"query": {"type": "string", "description": "Text to search for"}`

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "list_notes",
		Description: "List study notes with optional filtering",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {` + filterProperties + `,
				"sort": {"type": "string", "description": "updated, created or difficulty", "default": "updated"},
				"limit": {"type": "integer", "description": "Max results", "default": 20}
			}
		}`),
	}, s.handleListNotes)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_note",
		Description: "Get a note by ID prefix",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Note ID or prefix (6+ chars)"}
			},
			"required": ["id"]
		}`),
	}, s.handleGetNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "add_note",
		Description: "Record a new mistake with its correction",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {` + noteProperties + `
			},
			"required": ["lesson", "mistake", "correction"]
		}`),
	}, s.handleAddNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "update_note",
		Description: "Update some fields of a note",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Note ID or prefix"},` + noteProperties + `
			},
			"required": ["id"]
		}`),
	}, s.handleUpdateNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Note ID or prefix"}
			},
			"required": ["id"]
		}`),
	}, s.handleDeleteNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze_mistakes",
		Description: "Ask the AI for recurring mistake patterns (markdown)",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {` + filterProperties + `
			}
		}`),
	}, s.handleAnalyzeMistakes)

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze_progress",
		Description: "Ask the AI for a progress evaluation with monthly chart data (JSON)",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {` + filterProperties + `
			}
		}`),
	}, s.handleAnalyzeProgress)

	s.server.AddTool(&mcp.Tool{
		Name:        "export_pdf",
		Description: "Export notes to a pocket-sized PDF and return the file path",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {` + filterProperties + `,
				"ids": {"type": "array", "items": {"type": "string"}, "description": "Only these note IDs or prefixes"},
				"selected_errors": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "integer"}}, "description": "Note ID prefix to 1-based error item numbers to include"},
				"include_images": {"type": "boolean", "default": true},
				"confirm": {"type": "boolean", "description": "Required when exporting many notes", "default": false}
			}
		}`),
	}, s.handleExportPDF)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to encode result: %v", err)
	}
	return textResult(string(data))
}

type noteView struct {
	DisplayID int `json:"displayId"`
	models.Document
}

func viewOf(n models.Note) noteView {
	return noteView{DisplayID: n.DisplayID, Document: models.DocumentFromNote(n)}
}

type filterParams struct {
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Query      string `json:"query"`
}

func (p filterParams) filter() notebook.Filter {
	f := notebook.Filter{Query: p.Query}
	if p.Subject != "" {
		f.Subject = models.ParseSubject(p.Subject)
	}
	if p.Difficulty != "" {
		f.Difficulty = models.ParseDifficulty(p.Difficulty)
	}
	return f
}

type noteParams struct {
	Lesson        *string   `json:"lesson"`
	Mistake       *string   `json:"mistake"`
	Correction    *string   `json:"correction"`
	Subject       *string   `json:"subject"`
	Difficulty    *string   `json:"difficulty"`
	Source        *string   `json:"source"`
	FutureNote    *string   `json:"future_note"`
	ReferenceLink *string   `json:"reference_link"`
	Errors        *[]string `json:"errors"`
	ImageURLs     *[]string `json:"image_urls"`
}

func (p noteParams) patch() models.Patch {
	patch := models.Patch{
		Lesson:        p.Lesson,
		Mistake:       p.Mistake,
		Correction:    p.Correction,
		Source:        p.Source,
		FutureNote:    p.FutureNote,
		ReferenceLink: p.ReferenceLink,
		Errors:        p.Errors,
		ImageURLs:     p.ImageURLs,
	}
	if p.Subject != nil {
		subject := models.ParseSubject(*p.Subject)
		patch.Subject = &subject
	}
	if p.Difficulty != nil {
		difficulty := models.ParseDifficulty(*p.Difficulty)
		patch.Difficulty = &difficulty
	}
	return patch
}

func (p noteParams) draft() models.Draft {
	base := models.Note{Subject: models.SubjectOther, Difficulty: models.DifficultyMedium}
	return p.patch().Apply(base).Draft()
}

// Tool handlers.
func (s *Server) handleListNotes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		filterParams
		Sort  string `json:"sort"`
		Limit int    `json:"limit"`
	}
	params.Limit = 20
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, err
	}

	f := params.filter()
	f.Sort = notebook.ParseSortOrder(params.Sort)
	f.Limit = params.Limit

	notes := f.Apply(s.deps.Store.Notes())
	views := make([]noteView, 0, len(notes))
	for _, n := range notes {
		views = append(views, viewOf(n))
	}
	return jsonResult(views), nil
}

func (s *Server) handleGetNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, err
	}

	note, err := s.deps.Store.Find(params.ID)
	if err != nil {
		return errorResult("failed to get note: %v", err), nil
	}
	return jsonResult(viewOf(note)), nil
}

func (s *Server) handleAddNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params noteParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, err
	}

	note, err := s.deps.Store.Create(ctx, params.draft())
	if err != nil {
		return errorResult("failed to create note: %v", err), nil
	}
	return textResult(fmt.Sprintf("Created note %s", note.ID)), nil
}

func (s *Server) handleUpdateNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID string `json:"id"`
		noteParams
	}
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, err
	}

	note, err := s.deps.Store.Find(params.ID)
	if err != nil {
		return errorResult("failed to find note: %v", err), nil
	}
	patch := params.patch()
	if patch.IsEmpty() {
		return errorResult("nothing to update"), nil
	}
	if err := s.deps.Store.Update(ctx, note.ID, patch); err != nil {
		return errorResult("failed to update note: %v", err), nil
	}
	return textResult(fmt.Sprintf("Updated note %s", note.ID)), nil
}

func (s *Server) handleDeleteNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, err
	}

	note, err := s.deps.Store.Find(params.ID)
	if err != nil {
		return errorResult("failed to find note: %v", err), nil
	}
	pending, err := s.deps.Store.Delete(ctx, note.ID)
	if err != nil {
		return errorResult("failed to delete note: %v", err), nil
	}
	if err := pending.Wait(ctx); err != nil {
		return errorResult("failed to delete note: %v", err), nil
	}
	return textResult(fmt.Sprintf("Deleted note %s", note.ID)), nil
}

func (s *Server) handleAnalyzeMistakes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params filterParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, err
	}
	notes := params.filter().Apply(s.deps.Store.Notes())
	return textResult(s.deps.Analyst.AnalyzeMistakes(ctx, notes)), nil
}

func (s *Server) handleAnalyzeProgress(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params filterParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, err
	}
	notes := params.filter().Apply(s.deps.Store.Notes())
	return jsonResult(s.deps.Analyst.AnalyzeProgress(ctx, notes)), nil
}

func (s *Server) handleExportPDF(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		filterParams
		IDs            []string         `json:"ids"`
		SelectedErrors map[string][]int `json:"selected_errors"`
		IncludeImages  *bool            `json:"include_images"`
		Confirm        bool             `json:"confirm"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return nil, err
	}

	f := params.filter()
	f.Sort = notebook.SortCreated
	notes := f.Apply(s.deps.Store.Notes())
	if len(params.IDs) > 0 {
		var picked []models.Note
		for _, ref := range params.IDs {
			n, err := s.deps.Store.Find(ref)
			if err != nil {
				return errorResult("failed to find note %s: %v", ref, err), nil
			}
			picked = append(picked, n)
		}
		notes = picked
	}

	if pdf.NeedsConfirmation(len(notes), s.deps.ConfirmThreshold) && !params.Confirm {
		return errorResult("exporting %d notes; call again with confirm=true to proceed", len(notes)), nil
	}

	selected := map[string][]int{}
	for ref, items := range params.SelectedErrors {
		n, err := s.deps.Store.Find(ref)
		if err != nil {
			return errorResult("failed to find note %s: %v", ref, err), nil
		}
		selected[n.ID] = []int{}
		for _, item := range items {
			selected[n.ID] = append(selected[n.ID], item-1)
		}
	}

	entries := make([]layout.Entry, 0, len(notes))
	for _, n := range notes {
		entries = append(entries, layout.Entry{Note: n, Selected: selected[n.ID]})
	}

	includeImages := params.IncludeImages == nil || *params.IncludeImages
	data, err := s.deps.Exporter.ExportNotes(ctx, entries, pdf.Options{IncludeImages: includeImages}, nil)
	if err != nil {
		return errorResult("%v", err), nil
	}
	path, err := s.deps.Exporter.Save(s.deps.OutputDir, pdf.KindNotes, data)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(fmt.Sprintf("Exported %d notes to %s", len(entries), path)), nil
}

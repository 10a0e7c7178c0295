// ABOUTME: MCP resources for exposing notes as readable resources.
// ABOUTME: Allows AI agents to read a note as markdown via eureka://note/{id}.

package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/eureka/internal/ui"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const noteURIPrefix = "eureka://note/"

func (s *Server) registerResources() {
	s.server.AddResourceTemplate(
		&mcp.ResourceTemplate{
			URITemplate: noteURIPrefix + "{id}",
			Name:        "Note",
			Description: "A study note with its mistake, correction and error items",
			MIMEType:    "text/markdown",
		},
		s.handleReadResource,
	)
}

func (s *Server) handleReadResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id, ok := strings.CutPrefix(req.Params.URI, noteURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid resource URI: %s", req.Params.URI)
	}

	note, err := s.deps.Store.Find(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	content := fmt.Sprintf("# %s\n\n**Subject:** %s  \n**Difficulty:** %s\n\n",
		note.Lesson, note.Subject.Label(), note.Difficulty.Label())
	if note.Source != "" {
		content += fmt.Sprintf("**Source:** %s\n\n", note.Source)
	}
	content += ui.NoteMarkdown(note)

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     content,
			},
		},
	}, nil
}

package mcpserver

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

var safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func (s *Server) createDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := deckFilename(req.GetString("filename", ""))

	imp, err := s.svc.ImportDeck(ctx, name, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(imp)
}

// deckFilename strips path separators and unsafe characters and forces a .md extension.
// An empty name gets a generated one.
func deckFilename(name string) string {
	name = safeFilenameRe.ReplaceAllString(filepath.Base(strings.TrimSpace(name)), "_")
	stem := strings.TrimLeft(strings.TrimSuffix(name, filepath.Ext(name)), "._")
	if stem == "" {
		stem = "deck-" + uuid.New().String()[:8]
	}
	return stem + ".md"
}

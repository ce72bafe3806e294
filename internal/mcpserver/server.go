// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lexa drill tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"github.com/starford/lexa/internal/drillservice"
	"github.com/starford/lexa/internal/models"
)

// DeckFormatURI is the resource URI of the deck format contract.
const DeckFormatURI = "lexa://deck-format"

// Server wraps the MCP server with Lexa tools.
type Server struct {
	mcp *server.MCPServer
	svc *drillservice.Service
}

// New creates a new MCP server with all Lexa tools registered.
func New(svc *drillservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lexa",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_groups",
		mcp.WithDescription("List word groups in unlock order with their progress."),
	), s.listGroups)

	s.mcp.AddTool(mcp.NewTool("due_items",
		mcp.WithDescription("List vocabulary items due for review, weakest first. Translations are withheld."),
	), s.dueItems)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Search vocabulary by term or translation."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a drill session over due items. Returns the session and its first prompt."),
		mcp.WithString("group_id", mcp.Description("Optional unlocked group to drill (empty for all unlocked groups)")),
		mcp.WithNumber("goal", mcp.Description("Optional session size (1-200)")),
	), s.startSession)

	s.mcp.AddTool(mcp.NewTool("current_item",
		mcp.WithDescription("Show the current prompt of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.currentItem)

	s.mcp.AddTool(mcp.NewTool("submit_answer",
		mcp.WithDescription("Answer the current prompt of a session with a translation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("ID of the current item")),
		mcp.WithString("answer", mcp.Required(), mcp.Description("The learner's translation")),
	), s.submitAnswer)

	s.mcp.AddTool(mcp.NewTool("complete_session",
		mcp.WithDescription("Complete a session, applying level changes and group unlocks."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.completeSession)

	s.mcp.AddTool(mcp.NewTool("get_deck_format",
		mcp.WithDescription("Returns the Lexa deck format. Call this before creating decks."),
	), s.getDeckFormat)

	s.mcp.AddTool(mcp.NewTool("create_deck",
		mcp.WithDescription("Create and import a Markdown deck. Content MUST follow the deck format "+
			"returned by get_deck_format or the "+DeckFormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown deck content")),
		mcp.WithString("filename", mcp.Description("Optional file name ending in .md (generated when empty)")),
	), s.createDeck)

	s.mcp.AddResource(
		mcp.NewResource(DeckFormatURI, "Deck Format",
			mcp.WithResourceDescription("Markdown deck format for word groups."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDeckFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// prompt is an item as shown to the learner: no translation.
type prompt struct {
	ID      string        `json:"id"`
	GroupID string        `json:"group_id"`
	Term    string        `json:"term"`
	Level   int           `json:"level"`
	Status  models.Status `json:"status"`
}

func (s *Server) listGroups(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups, err := s.svc.Groups(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(groups)
}

func (s *Server) dueItems(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.DueItems(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(lo.Map(items, func(it *models.VocabularyItem, _ int) prompt {
		return prompt{ID: it.ID, GroupID: it.GroupID, Term: it.Term, Level: it.Level, Status: it.Status()}
	}))
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits)
}

func (s *Server) startSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.svc.StartSession(ctx, drillservice.StartRequest{
		GroupID: req.GetString("group_id", ""),
		Goal:    req.GetInt("goal", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) currentItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.Current(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) submitAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := req.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.SubmitAnswer(ctx, id, itemID, answer)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) completeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comp, err := s.svc.CompleteSession(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(comp)
}

func (s *Server) getDeckFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DeckFormatContract), nil
}

func (s *Server) readDeckFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DeckFormatURI,
			MIMEType: "text/markdown",
			Text:     DeckFormatContract,
		},
	}, nil
}

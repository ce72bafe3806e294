package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lexa/internal/drill"
	"github.com/starford/lexa/internal/drillservice"
	"github.com/starford/lexa/internal/testutil"
)

const basicsDeck = "---\ntitle: Basics\nsequence: 1\n---\ncat :: gato\ndog :: perro\n"

func testServer(t *testing.T) *Server {
	t.Helper()
	db := testutil.TestDB(t)
	_, files := testutil.TestLibrary(t)
	svc := drillservice.New(db, drill.NewEngine(drill.WithSeed(7)),
		drillservice.WithFiles(files),
		drillservice.WithLogger(testutil.Logger()))
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_groups":      srv.listGroups,
		"due_items":        srv.dueItems,
		"search_items":     srv.searchItems,
		"start_session":    srv.startSession,
		"current_item":     srv.currentItem,
		"submit_answer":    srv.submitAnswer,
		"complete_session": srv.completeSession,
		"get_deck_format":  srv.getDeckFormat,
		"create_deck":      srv.createDeck,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeResult[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var v T
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return v
}

func TestCreateDeckAndListGroups(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_deck", map[string]any{"filename": "basics", "content": basicsDeck})
	imp := decodeResult[map[string]any](t, r)
	if imp["path"] != "basics.md" || imp["added"] != float64(2) {
		t.Errorf("import = %v", imp)
	}

	groups := decodeResult[[]map[string]any](t, callTool(t, srv, "list_groups", nil))
	if len(groups) != 1 || groups[0]["name"] != "Basics" || groups[0]["unlocked"] != true {
		t.Errorf("groups = %v", groups)
	}
}

func TestCreateDeck_Invalid(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_deck", map[string]any{"content": "no pairs here"})
	if !r.IsError {
		t.Error("expected error for deck without pairs")
	}
	r = callTool(t, srv, "create_deck", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing content")
	}
}

func TestDrillThroughTools(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_deck", map[string]any{"filename": "basics.md", "content": basicsDeck})

	due := decodeResult[[]prompt](t, callTool(t, srv, "due_items", nil))
	if len(due) != 2 {
		t.Fatalf("due = %+v", due)
	}
	if strings.Contains(resultText(callTool(t, srv, "due_items", nil)), "gato") {
		t.Error("due items leak translations")
	}

	view := decodeResult[drillservice.SessionView](t, callTool(t, srv, "start_session", map[string]any{"goal": 1}))
	if view.Size != 1 || view.Current == nil {
		t.Fatalf("view = %+v", view)
	}
	answers := map[string]string{"cat": "gato", "dog": "perro"}

	for i := 0; view.Current != nil; i++ {
		if i > 10 {
			t.Fatal("queue never drained")
		}
		res := decodeResult[drill.AnswerResult](t, callTool(t, srv, "submit_answer", map[string]any{
			"session_id": view.ID,
			"item_id":    view.Current.ItemID,
			"answer":     answers[view.Current.Term],
		}))
		if !res.Correct {
			t.Fatalf("answer graded wrong: %+v", res)
		}
		view = decodeResult[drillservice.SessionView](t, callTool(t, srv, "current_item", map[string]any{"session_id": view.ID}))
	}

	comp := decodeResult[drill.Completion](t, callTool(t, srv, "complete_session", map[string]any{"session_id": view.ID}))
	if comp.Accuracy != 100 || comp.Total != 4 {
		t.Errorf("completion = %+v", comp)
	}

	r := callTool(t, srv, "current_item", map[string]any{"session_id": view.ID})
	if !r.IsError {
		t.Error("expected error for completed session")
	}
}

func TestStartSession_Locked(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_deck", map[string]any{"filename": "01-a.md", "content": "a :: b\n"})
	callTool(t, srv, "create_deck", map[string]any{"filename": "02-b.md", "content": "c :: d\n"})

	r := callTool(t, srv, "start_session", map[string]any{"group_id": "02-b"})
	if !r.IsError || !strings.Contains(resultText(r), "locked") {
		t.Errorf("start locked = %q", resultText(r))
	}
}

func TestSearchItems(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_deck", map[string]any{"filename": "basics.md", "content": basicsDeck})

	hits := decodeResult[[]map[string]any](t, callTool(t, srv, "search_items", map[string]any{"query": "perr"}))
	if len(hits) != 1 || hits[0]["term"] != "dog" {
		t.Errorf("hits = %v", hits)
	}
	if r := callTool(t, srv, "search_items", map[string]any{}); !r.IsError {
		t.Error("expected error for missing query")
	}
}

func TestGetDeckFormat(t *testing.T) {
	srv := testServer(t)
	text := resultText(callTool(t, srv, "get_deck_format", nil))
	if !strings.Contains(text, "term") || text != DeckFormatContract {
		t.Error("deck format contract mismatch")
	}

	contents, err := srv.readDeckFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != DeckFormatURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}

func TestDeckFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"basics", "basics.md"},
		{"basics.md", "basics.md"},
		{"03 food.MD", "03_food.md"},
		{"../../etc/passwd", "passwd.md"},
		{"words.xlsx", "words.md"},
		{".hidden.md", "hidden.md"},
	}
	for _, tt := range tests {
		if got := deckFilename(tt.in); got != tt.want {
			t.Errorf("deckFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := deckFilename(""); !strings.HasPrefix(got, "deck-") || !strings.HasSuffix(got, ".md") {
		t.Errorf("generated name = %q", got)
	}
}

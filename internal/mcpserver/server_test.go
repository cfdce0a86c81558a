package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mockbox/internal/entityservice"
	"github.com/starford/mockbox/internal/journal"
	"github.com/starford/mockbox/internal/testutil"
)

func testServer(t *testing.T, withJournal bool) *Server {
	t.Helper()
	var jr *journal.DB
	var opts []entityservice.Option
	if withJournal {
		jr = testutil.TestJournal(t)
		opts = append(opts, entityservice.WithObserver(jr))
	}
	svc := testutil.TestService(t, opts...)
	return New(svc, jr, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called
	// directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_entity_types": srv.listEntityTypes,
		"list_entities":     srv.listEntities,
		"get_entity":        srv.getEntity,
		"create_entity":     srv.createEntity,
		"update_entity":     srv.updateEntity,
		"delete_entity":     srv.deleteEntity,
		"recent_changes":    srv.recentChanges,
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

func TestCreateGetUpdateDelete(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "create_entity", map[string]any{
		"type":  "users",
		"input": map[string]any{"name": "John", "email": "j@x.com"},
	})
	if r.IsError {
		t.Fatalf("create error: %s", resultText(r))
	}
	var created map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" || created["name"] != "John" {
		t.Fatalf("created = %v", created)
	}

	r = callTool(t, srv, "get_entity", map[string]any{"type": "users", "id": id})
	if r.IsError || !strings.Contains(resultText(r), `"email": "j@x.com"`) {
		t.Errorf("get = %s", resultText(r))
	}

	r = callTool(t, srv, "update_entity", map[string]any{
		"type": "users", "id": id, "input": map[string]any{"name": "Jane"},
	})
	if r.IsError {
		t.Fatalf("update error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"name": "Jane"`) || !strings.Contains(text, `"email": "j@x.com"`) {
		t.Errorf("update did not merge: %s", text)
	}

	r = callTool(t, srv, "list_entity_types", nil)
	if strings.Join(strings.Fields(resultText(r)), "") != `["users"]` {
		t.Errorf("types = %s", resultText(r))
	}

	r = callTool(t, srv, "delete_entity", map[string]any{"type": "users", "id": id})
	if r.IsError {
		t.Fatalf("delete error: %s", resultText(r))
	}

	r = callTool(t, srv, "get_entity", map[string]any{"type": "users", "id": id})
	if !r.IsError || !strings.Contains(resultText(r), "not found") {
		t.Errorf("get after delete = %s", resultText(r))
	}
	r = callTool(t, srv, "delete_entity", map[string]any{"type": "users", "id": id})
	if !r.IsError {
		t.Error("second delete should fail")
	}
}

func TestListEntitiesUnknownType(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "list_entities", map[string]any{"type": "ghosts"})
	if r.IsError || strings.TrimSpace(resultText(r)) != "[]" {
		t.Errorf("list = %q", resultText(r))
	}

	r = callTool(t, srv, "list_entities", map[string]any{})
	if !r.IsError {
		t.Error("missing type should be an error")
	}
}

func TestCreateRejectsNonObject(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "create_entity", map[string]any{"type": "users", "input": []any{1, 2}})
	if !r.IsError {
		t.Errorf("list input accepted: %s", resultText(r))
	}
}

func TestRecentChanges(t *testing.T) {
	srv := testServer(t, true)

	callTool(t, srv, "create_entity", map[string]any{"type": "a", "input": map[string]any{"n": 1}})
	callTool(t, srv, "create_entity", map[string]any{"type": "b", "input": map[string]any{"n": 2}})

	r := callTool(t, srv, "recent_changes", map[string]any{"limit": 10})
	if r.IsError {
		t.Fatalf("recent error: %s", resultText(r))
	}
	var entries []journal.Entry
	if err := json.Unmarshal([]byte(resultText(r)), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Type != "b" {
		t.Errorf("entries = %+v", entries)
	}

	r = callTool(t, srv, "recent_changes", map[string]any{"type": "a"})
	_ = json.Unmarshal([]byte(resultText(r)), &entries)
	if len(entries) != 1 || entries[0].Type != "a" {
		t.Errorf("filtered entries = %+v", entries)
	}
}

func TestRecentChangesDisabled(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "recent_changes", nil)
	if !r.IsError || !strings.Contains(resultText(r), "disabled") {
		t.Errorf("result = %s", resultText(r))
	}
}

func TestDocumentResource(t *testing.T) {
	srv := testServer(t, false)
	callTool(t, srv, "create_entity", map[string]any{"type": "users", "input": map[string]any{"name": "John"}})

	contents, err := srv.readDocument(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}
	if tc.URI != DocumentURI || !strings.Contains(tc.Text, `"users": [`) {
		t.Errorf("resource = %+v", tc)
	}
}

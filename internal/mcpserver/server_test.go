package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/itemservice"
	"github.com/starford/lagu/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	baseDir := t.TempDir()
	store, err := storage.NewFS(baseDir)
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "lagu-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(itemservice.NewService(store, db, logger))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "create_item":
		result, err = srv.createItem(ctx, req)
	case "get_item":
		result, err = srv.getItem(ctx, req)
	case "update_item":
		result, err = srv.updateItem(ctx, req)
	case "delete_item":
		result, err = srv.deleteItem(ctx, req)
	case "list_items":
		result, err = srv.listItems(ctx, req)
	case "search_items":
		result, err = srv.searchItems(ctx, req)
	case "get_item_contract":
		result, err = srv.getItemContract(ctx, req)
	case "list_types":
		result, err = srv.listTypes(ctx, req)
	case "register_type":
		result, err = srv.registerType(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "list_statuses":
		result, err = srv.listStatuses(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

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

func TestCreateAndGetItem(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_item", map[string]interface{}{
		"type":    "issues",
		"title":   "Flaky websocket",
		"content": "Drops every few minutes.",
		"tags":    "network, bug",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"id": "1"`) {
		t.Errorf("create result = %s", resultText(r))
	}

	r = callTool(t, srv, "get_item", map[string]interface{}{
		"type": "issues",
		"id":   "1",
	})
	text := resultText(r)
	if !strings.Contains(text, "Flaky websocket") || !strings.Contains(text, "Drops every few minutes.") {
		t.Errorf("get result = %s", text)
	}
	if !strings.Contains(text, "network") || !strings.Contains(text, "bug") {
		t.Errorf("tags missing from %s", text)
	}
}

func TestGetItemMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_item", map[string]interface{}{"type": "issues", "id": "99"})
	if !r.IsError {
		t.Error("expected error for missing item")
	}
}

func TestCreateItemRejectsInvalid(t *testing.T) {
	srv := testServer(t)

	// Task types need a content body.
	r := callTool(t, srv, "create_item", map[string]interface{}{
		"type":  "issues",
		"title": "No body",
	})
	if !r.IsError {
		t.Error("expected error for missing content")
	}

	r = callTool(t, srv, "create_item", map[string]interface{}{
		"type":    "ghosts",
		"title":   "x",
		"content": "y",
	})
	if !r.IsError {
		t.Error("expected error for unknown type")
	}
}

func TestUpdateItem(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_item", map[string]interface{}{
		"type": "issues", "title": "Before", "content": "x",
	})

	r := callTool(t, srv, "update_item", map[string]interface{}{
		"type":   "issues",
		"id":     "1",
		"title":  "After",
		"status": "Done",
	})
	if r.IsError {
		t.Fatalf("update failed: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, "After") || !strings.Contains(text, "Done") {
		t.Errorf("update result = %s", text)
	}
}

func TestDeleteItem(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_item", map[string]interface{}{
		"type": "issues", "title": "Doomed", "content": "x",
	})

	r := callTool(t, srv, "delete_item", map[string]interface{}{"type": "issues", "id": "1"})
	if resultText(r) != "deleted: issues-1" {
		t.Errorf("delete result = %q", resultText(r))
	}

	r = callTool(t, srv, "delete_item", map[string]interface{}{"type": "issues", "id": "1"})
	if !r.IsError {
		t.Error("expected error for second delete")
	}
}

func TestListItems(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_item", map[string]interface{}{
		"type": "issues", "title": "Open one", "content": "x",
	})
	_ = callTool(t, srv, "create_item", map[string]interface{}{
		"type": "issues", "title": "Done one", "content": "x", "status": "Done",
	})

	r := callTool(t, srv, "list_items", map[string]interface{}{"type": "issues"})
	text := resultText(r)
	if !strings.Contains(text, "Open one") || strings.Contains(text, "Done one") {
		t.Errorf("default list = %s", text)
	}

	r = callTool(t, srv, "list_items", map[string]interface{}{
		"type":           "issues",
		"include_closed": "true",
	})
	text = resultText(r)
	if !strings.Contains(text, "Open one") || !strings.Contains(text, "Done one") {
		t.Errorf("include_closed list = %s", text)
	}
}

func TestSearchItems(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_item", map[string]interface{}{
		"type": "docs", "title": "Deploy guide", "content": "Rollback procedure lives here.",
	})

	r := callTool(t, srv, "search_items", map[string]interface{}{"query": "rollback"})
	if !strings.Contains(resultText(r), "Deploy guide") {
		t.Errorf("search result = %s", resultText(r))
	}
}

func TestGetItemContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_item_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "---") || !strings.Contains(text, "title") {
		t.Errorf("contract = %s", text)
	}
}

func TestRegisterAndListTypes(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_types", map[string]interface{}{})
	if resultText(r) != "no custom types registered" {
		t.Errorf("empty list = %q", resultText(r))
	}

	r = callTool(t, srv, "register_type", map[string]interface{}{
		"name":      "recipes",
		"base_kind": "documents",
	})
	if r.IsError {
		t.Fatalf("register failed: %s", resultText(r))
	}

	r = callTool(t, srv, "list_types", map[string]interface{}{})
	if !strings.Contains(resultText(r), "recipes") {
		t.Errorf("types = %s", resultText(r))
	}

	// Custom type items flow through the generic tools.
	r = callTool(t, srv, "create_item", map[string]interface{}{
		"type": "recipes", "title": "Pancakes", "content": "Flour.",
	})
	if r.IsError {
		t.Fatalf("custom create failed: %s", resultText(r))
	}
}

func TestListTagsAndStatuses(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_tags", map[string]interface{}{})
	if resultText(r) != "no tags" {
		t.Errorf("empty tags = %q", resultText(r))
	}

	_ = callTool(t, srv, "create_item", map[string]interface{}{
		"type": "issues", "title": "Tagged", "content": "x", "tags": "auth",
	})
	r = callTool(t, srv, "list_tags", map[string]interface{}{})
	if !strings.Contains(resultText(r), "auth") {
		t.Errorf("tags = %s", resultText(r))
	}

	r = callTool(t, srv, "list_statuses", map[string]interface{}{})
	text := resultText(r)
	for _, name := range []string{"Open", "In Progress", "Done", "Closed"} {
		if !strings.Contains(text, name) {
			t.Errorf("statuses missing %q: %s", name, text)
		}
	}
}

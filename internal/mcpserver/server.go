// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lagu tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lagu/internal/itemservice"
	"github.com/starford/lagu/internal/models"
)

// Server wraps the MCP server with Lagu tools.
type Server struct {
	mcp *server.MCPServer
	svc *itemservice.Service
}

// New creates a new MCP server with all Lagu tools registered.
func New(svc *itemservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lagu",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_item",
		mcp.WithDescription("Create a new item (issue, plan, doc, knowledge, session, daily, "+
			"or a registered custom type). The service assigns the id. Read the item format "+
			"contract first via the get_item_contract tool or the lagu://item-format resource."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name (e.g. issues, docs, dailies)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Item title")),
		mcp.WithString("description", mcp.Description("One-line summary")),
		mcp.WithString("content", mcp.Description("Markdown body (required for task and document types)")),
		mcp.WithString("priority", mcp.Description("Task priority: high, medium, or low")),
		mcp.WithString("status", mcp.Description("Workflow status name (task types)")),
		mcp.WithString("start_date", mcp.Description("Start date, YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Description("End date, YYYY-MM-DD")),
		mcp.WithString("id", mcp.Description("Explicit id (session timestamp or daily date); normally omitted")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("related", mcp.Description("Comma-separated type-id references (e.g. issues-42,docs-7)")),
	), s.createItem)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Read one item with its full content body."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("update_item",
		mcp.WithDescription("Partially update an item; omitted fields are left unchanged."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New summary")),
		mcp.WithString("content", mcp.Description("New Markdown body")),
		mcp.WithString("priority", mcp.Description("New priority: high, medium, or low")),
		mcp.WithString("status", mcp.Description("New workflow status name")),
		mcp.WithString("start_date", mcp.Description("New start date, YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Description("New end date, YYYY-MM-DD")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags (replaces the set)")),
		mcp.WithString("related", mcp.Description("Comma-separated references (replaces the set)")),
	), s.updateItem)

	s.mcp.AddTool(mcp.NewTool("delete_item",
		mcp.WithDescription("Delete an item: removes the file and its index entry."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.deleteItem)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List item summaries of a type. Closed-status items are "+
			"excluded unless include_closed is true or status names them."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type name")),
		mcp.WithString("status", mcp.Description("Comma-separated status names to match")),
		mcp.WithString("include_closed", mcp.Description("true to include closed-status items")),
		mcp.WithString("start_date", mcp.Description("Range start, YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Description("Range end, YYYY-MM-DD")),
		mcp.WithString("tag", mcp.Description("Only items carrying this tag")),
		mcp.WithString("limit", mcp.Description("Max results")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Full-text search across item titles, descriptions, bodies, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("type", mcp.Description("Restrict to one item type")),
		mcp.WithString("limit", mcp.Description("Max results")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("get_item_contract",
		mcp.WithDescription("Returns the canonical Lagu item format contract. "+
			"Call this before creating or updating items to ensure correct structure."),
	), s.getItemContract)

	s.mcp.AddTool(mcp.NewTool("list_types",
		mcp.WithDescription("List the registered custom item types."),
	), s.listTypes)

	s.mcp.AddTool(mcp.NewTool("register_type",
		mcp.WithDescription("Register a custom item type. base_kind decides its behavior: "+
			"tasks (priority and status) or documents (required content)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Type name: lowercase, no dashes")),
		mcp.WithString("base_kind", mcp.Required(), mcp.Description("tasks or documents")),
		mcp.WithString("description", mcp.Description("What the type is for")),
	), s.registerType)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List tags with usage counts, optionally filtered by substring."),
		mcp.WithString("q", mcp.Description("Substring filter")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("list_statuses",
		mcp.WithDescription("List the workflow statuses for task items."),
	), s.listStatuses)

	// Resource: item format contract.
	s.mcp.AddResource(
		mcp.NewResource("lagu://item-format", "Item Format Contract",
			mcp.WithResourceDescription("Canonical item file format that all items follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readItemFormatResource,
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

// optString reads an optional string argument, empty when absent.
func optString(req mcp.CallToolRequest, name string) string {
	v, err := req.RequireString(name)
	if err != nil {
		return ""
	}
	return v
}

// splitList splits a comma-separated argument into trimmed elements.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) createItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeName, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	it, err := s.svc.Create(itemservice.CreateParams{
		Type:        typeName,
		ID:          optString(req, "id"),
		Title:       title,
		Description: optString(req, "description"),
		Content:     optString(req, "content"),
		Priority:    optString(req, "priority"),
		Status:      optString(req, "status"),
		StartDate:   optString(req, "start_date"),
		EndDate:     optString(req, "end_date"),
		Tags:        splitList(optString(req, "tags")),
		Related:     splitList(optString(req, "related")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(it, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeName, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.svc.Get(typeName, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s-%s", typeName, id)), nil
	}
	out, _ := json.MarshalIndent(it, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeName, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var p itemservice.UpdateParams
	if v, err := req.RequireString("title"); err == nil {
		p.Title = &v
	}
	if v, err := req.RequireString("description"); err == nil {
		p.Description = &v
	}
	if v, err := req.RequireString("content"); err == nil {
		p.Content = &v
	}
	if v, err := req.RequireString("priority"); err == nil {
		p.Priority = &v
	}
	if v, err := req.RequireString("status"); err == nil {
		p.Status = &v
	}
	if v, err := req.RequireString("start_date"); err == nil {
		p.StartDate = &v
	}
	if v, err := req.RequireString("end_date"); err == nil {
		p.EndDate = &v
	}
	if v, err := req.RequireString("tags"); err == nil {
		tags := splitList(v)
		if tags == nil {
			tags = []string{}
		}
		p.Tags = &tags
	}
	if v, err := req.RequireString("related"); err == nil {
		related := splitList(v)
		if related == nil {
			related = []string{}
		}
		p.Related = &related
	}

	it, err := s.svc.Update(typeName, id, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(it, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeName, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := s.svc.Delete(typeName, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s-%s", typeName, id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s-%s", typeName, id)), nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeName, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	includeClosed, _ := strconv.ParseBool(optString(req, "include_closed"))
	limit, _ := strconv.Atoi(optString(req, "limit"))

	items, err := s.svc.List(typeName, itemservice.ListOptions{
		Statuses:      splitList(optString(req, "status")),
		IncludeClosed: includeClosed,
		StartDate:     optString(req, "start_date"),
		EndDate:       optString(req, "end_date"),
		Tag:           optString(req, "tag"),
		Limit:         limit,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, _ := strconv.Atoi(optString(req, "limit"))
	if limit <= 0 {
		limit = 20
	}
	results, err := s.svc.Search(optString(req, "type"), query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getItemContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ItemFormatContract), nil
}

func (s *Server) readItemFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "lagu://item-format",
			MIMEType: "text/markdown",
			Text:     ItemFormatContract,
		},
	}, nil
}

func (s *Server) listTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs, err := s.svc.ListTypes()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(defs) == 0 {
		return mcp.NewToolResultText("no custom types registered"), nil
	}
	out, _ := json.MarshalIndent(defs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) registerType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	baseKind, err := req.RequireString("base_kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	def, err := s.svc.RegisterType(name, models.Kind(baseKind), optString(req, "description"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(def, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		tags []models.Tag
		err  error
	)
	if q := optString(req, "q"); q != "" {
		tags, err = s.svc.SearchTags(q)
	} else {
		tags, err = s.svc.Tags()
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	out, _ := json.MarshalIndent(tags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listStatuses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses, err := s.svc.Statuses()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(statuses, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

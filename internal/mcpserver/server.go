// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the mock document to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mockbox/internal/apperr"
	"github.com/starford/mockbox/internal/entityservice"
	"github.com/starford/mockbox/internal/journal"
	"github.com/starford/mockbox/internal/models"
)

// DocumentURI is the resource holding a snapshot of the whole document.
const DocumentURI = "mockbox://document"

// Server wraps the MCP server with mockbox tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *entityservice.Service
	journal *journal.DB
}

// New creates a new MCP server with all tools registered. jr may be nil, in
// which case recent_changes reports that the journal is disabled.
func New(svc *entityservice.Service, jr *journal.DB, version string) *Server {
	s := &Server{svc: svc, journal: jr}

	s.mcp = server.NewMCPServer(
		"mockbox",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entity_types",
		mcp.WithDescription("List every entity type in the mock document, in creation order."),
	), s.listEntityTypes)

	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List all entities of a type. Unknown types yield an empty list."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity type, e.g. users")),
	), s.listEntities)

	s.mcp.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Fetch a single entity by type and id."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity type")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.getEntity)

	s.mcp.AddTool(mcp.NewTool("create_entity",
		mcp.WithDescription("Create an entity. id, createdAt and updatedAt are generated by the server."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity type; created on first use")),
		mcp.WithObject("input", mcp.Required(), mcp.Description("Arbitrary JSON object with the entity fields")),
	), s.createEntity)

	s.mcp.AddTool(mcp.NewTool("update_entity",
		mcp.WithDescription("Merge fields into an existing entity. Keys not given are kept."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity type")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithObject("input", mcp.Required(), mcp.Description("Fields to set")),
	), s.updateEntity)

	s.mcp.AddTool(mcp.NewTool("delete_entity",
		mcp.WithDescription("Delete an entity by type and id."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity type")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.deleteEntity)

	s.mcp.AddTool(mcp.NewTool("recent_changes",
		mcp.WithDescription("Most recent changes from the journal, newest first."),
		mcp.WithString("type", mcp.Description("Only changes to this entity type")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return"), mcp.DefaultNumber(journal.DefaultLimit)),
	), s.recentChanges)

	s.mcp.AddResource(
		mcp.NewResource(DocumentURI, "Mock document",
			mcp.WithResourceDescription("Snapshot of every entity type and entity."),
			mcp.WithMIMEType("application/json"),
		),
		s.readDocument,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcp); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type entityArgs struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Input json.RawMessage `json:"input"`
}

func (a entityArgs) payload() (*models.Entity, error) {
	e, err := models.DecodeEntity(a.Input)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	return e, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encode result", err)
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listEntityTypes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListEntityTypes(ctx)), nil
}

func (s *Server) listEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.ListEntities(ctx, typ)), nil
}

func (s *Server) getEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args entityArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	e, err := s.svc.GetEntity(ctx, args.Type, args.ID)
	if err != nil {
		return notFoundOr(args, err), nil
	}
	return jsonResult(e), nil
}

func (s *Server) createEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args entityArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if args.Type == "" {
		return mcp.NewToolResultError("type is required"), nil
	}
	payload, err := args.payload()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.CreateEntity(ctx, args.Type, payload)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("create failed", err), nil
	}
	return jsonResult(e), nil
}

func (s *Server) updateEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args entityArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	payload, err := args.payload()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.UpdateEntity(ctx, args.Type, args.ID, payload)
	if err != nil {
		return notFoundOr(args, err), nil
	}
	return jsonResult(e), nil
}

func (s *Server) deleteEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args entityArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	ok, err := s.svc.DeleteEntity(ctx, args.Type, args.ID)
	if err == nil && !ok {
		err = apperr.ErrNotFound
	}
	if err != nil {
		return notFoundOr(args, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s with ID %s", args.Type, args.ID)), nil
}

func (s *Server) recentChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.journal == nil {
		return mcp.NewToolResultError("journal is disabled"), nil
	}
	entries, err := s.journal.Recent(ctx, req.GetString("type", ""), req.GetInt("limit", journal.DefaultLimit))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("read journal", err), nil
	}
	return jsonResult(entries), nil
}

func (s *Server) readDocument(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := models.EncodeDocument(s.svc.Snapshot(ctx))
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func notFoundOr(args entityArgs, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("%s with ID %s not found", args.Type, args.ID))
	}
	return mcp.NewToolResultErrorFromErr("operation failed", err)
}

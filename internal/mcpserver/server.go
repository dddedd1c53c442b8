// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notecli pages to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/noteservice"
)

const layoutURI = "notecli://layout"

// Server wraps the MCP server with notecli tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all notecli tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"notecli",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Search page contents line by line with a regular expression."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Regular expression (Go RE2 syntax)")),
		mcp.WithString("book", mcp.Description("Optional book to restrict the search to (nested books included)")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the full content of a page."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page fullname (e.g. work/standup)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List the pages of a book."),
		mcp.WithString("book", mcp.Description("Book to list (empty for the root book)")),
		mcp.WithString("pattern", mcp.Description("Optional shell glob matched against page names")),
		mcp.WithBoolean("recursive", mcp.Description("Include pages of nested books")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("append_page",
		mcp.WithDescription("Append text to a page, creating the page when missing."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page fullname")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to append verbatim")),
	), s.appendPage)

	s.mcp.AddTool(mcp.NewTool("list_groups",
		mcp.WithDescription("List groups and the pages they contain."),
		mcp.WithString("match", mcp.Description("Optional regular expression filtering group names")),
	), s.listGroups)

	s.mcp.AddTool(mcp.NewTool("recent_pages",
		mcp.WithDescription("List recently opened pages, most recent first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of pages (default 10)")),
	), s.recentPages)

	s.mcp.AddResource(
		mcp.NewResource(layoutURI, "Store layout",
			mcp.WithResourceDescription("How page, book and group names map onto the store."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
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

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	book := optionalString(req, "book")
	hits, err := s.svc.Grep(ctx, pattern, book)
	if err != nil {
		return toolError(err), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(hits)
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetPage(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recursive := false
	if v, err := req.RequireBool("recursive"); err == nil {
		recursive = v
	}
	items, err := s.svc.ListPages(ctx, optionalString(req, "book"), optionalString(req, "pattern"), recursive)
	if err != nil {
		return toolError(err), nil
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Fullname
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) appendPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Append(ctx, name, text)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("appended: %s", d.Fullname)), nil
}

func (s *Server) listGroups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups, err := s.svc.Groups(ctx, optionalString(req, "match"))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(groups)
}

func (s *Server) recentPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 10
	if v, err := req.RequireInt("limit"); err == nil && v > 0 {
		limit = v
	}
	names, err := s.svc.History(ctx, limit)
	if err != nil {
		return toolError(err), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no history"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      layoutURI,
			MIMEType: "text/markdown",
			Text:     LayoutGuide,
		},
	}, nil
}

func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError reports a service failure to the client. Missing pages get a
// short message; other errors are passed through.
func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err))
	}
	return mcp.NewToolResultError(err.Error())
}

package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/notecli/internal/notebook"
	"github.com/starford/notecli/internal/noteservice"
	"github.com/starford/notecli/internal/session"
	"github.com/starford/notecli/internal/testutil"
)

type nopEditor struct{}

func (nopEditor) Launch(context.Context, string, []string) error { return nil }

func testServer(t *testing.T) (*Server, *noteservice.Service) {
	t.Helper()
	cfg := testutil.Config(t)
	svc := noteservice.NewService(notebook.New(cfg, nil), session.New(cfg, session.WithLauncher(nopEditor{})), nil)
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no test helper to call a registered tool, so the handlers
	// are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_pages":
		result, err = srv.searchPages(ctx, req)
	case "read_page":
		result, err = srv.readPage(ctx, req)
	case "list_pages":
		result, err = srv.listPages(ctx, req)
	case "append_page":
		result, err = srv.appendPage(ctx, req)
	case "list_groups":
		result, err = srv.listGroups(ctx, req)
	case "recent_pages":
		result, err = srv.recentPages(ctx, req)
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

func TestAppendAndReadPage(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "append_page", map[string]interface{}{
		"page": "b1/p1",
		"text": "hello\n",
	})
	if text := resultText(r); text != "appended: b1/p1" {
		t.Errorf("append result = %q", text)
	}

	r = callTool(t, srv, "read_page", map[string]interface{}{"page": "b1/p1"})
	if text := resultText(r); text != "hello\n" {
		t.Errorf("read result = %q", text)
	}
}

func TestReadPageMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_page", map[string]interface{}{"page": "nope"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
	if !strings.HasPrefix(resultText(r), "not found") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestAppendRequiresText(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "append_page", map[string]interface{}{"page": "p"})
	if !r.IsError {
		t.Error("expected error without text")
	}
}

func TestSearchPages(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	if _, err := svc.Append(ctx, "p1", "stuff\nwhee\n"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "search_pages", map[string]interface{}{"pattern": "whee"})
	var hits []noteservice.SearchHit
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	want := []noteservice.SearchHit{{Page: "p1", Line: 2, Text: "whee\n"}}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Errorf("hits mismatch (-want +got):\n%s", diff)
	}

	r = callTool(t, srv, "search_pages", map[string]interface{}{"pattern": "absent"})
	if text := resultText(r); text != "no matches" {
		t.Errorf("empty search = %q", text)
	}
	r = callTool(t, srv, "search_pages", map[string]interface{}{"pattern": "(("})
	if !r.IsError {
		t.Error("expected error for bad pattern")
	}
}

func TestListPages(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	for _, name := range []string{"b1/a", "b1/b", "b1/sub/c"} {
		if _, err := svc.Append(ctx, name, "x"); err != nil {
			t.Fatal(err)
		}
	}

	r := callTool(t, srv, "list_pages", map[string]interface{}{"book": "b1"})
	if text := resultText(r); text != "b1/a\nb1/b" {
		t.Errorf("list = %q", text)
	}
	r = callTool(t, srv, "list_pages", map[string]interface{}{"book": "b1", "recursive": true})
	if text := resultText(r); text != "b1/a\nb1/b\nb1/sub/c" {
		t.Errorf("recursive list = %q", text)
	}
}

func TestListGroups(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	if _, err := svc.Append(ctx, "p1", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Group(ctx, "g1", noteservice.Selector{Names: []string{"p1"}}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_groups", map[string]interface{}{})
	var groups map[string][]string
	if err := json.Unmarshal([]byte(resultText(r)), &groups); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string][]string{"g1": {"p1"}}, groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentPages(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()

	r := callTool(t, srv, "recent_pages", map[string]interface{}{})
	if text := resultText(r); text != "no history" {
		t.Errorf("empty history = %q", text)
	}

	for _, name := range []string{"a", "b", "c"} {
		if _, err := svc.Append(ctx, name, "x"); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Open(ctx, noteservice.Selector{Names: []string{name}}); err != nil {
			t.Fatal(err)
		}
	}
	r = callTool(t, srv, "recent_pages", map[string]interface{}{"limit": float64(2)})
	if text := resultText(r); text != "c\nb" {
		t.Errorf("recent = %q", text)
	}
}

func TestLayoutResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readLayoutResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != layoutURI || tc.Text != LayoutGuide {
		t.Errorf("resource = %#v", contents[0])
	}
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Quire workflows and vault tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/tools"
	"github.com/starford/quire/internal/workflow"
)

const formatURI = "quire://template-format"

// Server wraps the MCP server with Quire tools.
type Server struct {
	mcp    *server.MCPServer
	runner *workflow.Runner
	now    func() time.Time
}

// New creates a new MCP server with the workflow tools and every handle of
// catalog registered.
func New(runner *workflow.Runner, catalog *tools.Catalog) *Server {
	s := &Server{runner: runner, now: time.Now}

	s.mcp = server.NewMCPServer(
		"Quire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_document",
		mcp.WithDescription("Resolve the directives of a Markdown template without running it. "+
			"Returns each section's cleaned prompt and directive results. Read the format via "+
			"the get_template_format tool or the "+formatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Template Markdown")),
		mcp.WithString("scope_key", mcp.Description("Pending-state scope (defaults to the vault's resolve scope)")),
	), s.resolveDocument)

	s.mcp.AddTool(mcp.NewTool("list_workflows",
		mcp.WithDescription("List the workflows available in the vault."),
	), s.listWorkflows)

	s.mcp.AddTool(mcp.NewTool("run_workflow",
		mcp.WithDescription("Run a workflow now and return its section report."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Workflow name (file name without .md)")),
	), s.runWorkflow)

	s.mcp.AddTool(mcp.NewTool("list_pending",
		mcp.WithDescription("List the files a {pending} pattern would select for a workflow right now."),
		mcp.WithString("workflow", mcp.Required(), mcp.Description("Workflow name")),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Pattern, e.g. inbox/{pending:5}")),
	), s.listPending)

	s.mcp.AddTool(mcp.NewTool("get_template_format",
		mcp.WithDescription("Returns the Quire template format and directive reference."),
	), s.getTemplateFormat)

	if catalog != nil {
		for _, h := range catalog.All() {
			s.mcp.AddTool(h.Tool, h.Handler)
		}
	}

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Template Format",
			mcp.WithResourceDescription("Markdown template format and directive reference."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTemplateFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

type sectionSummary struct {
	Name       string              `json:"name"`
	Content    string              `json:"content"`
	Directives map[string][]string `json:"directives,omitempty"`
	Errors     []string            `json:"errors,omitempty"`
	Skip       string              `json:"skip,omitempty"`
}

func (s *Server) resolveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope := req.GetString("scope_key", "")
	if scope == "" {
		scope = s.runner.ScopeKey("resolve")
	}
	res, err := s.runner.Resolve(ctx, scope, []byte(content), s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := make([]sectionSummary, 0, len(res.Sections))
	for _, sec := range res.Sections {
		sum := sectionSummary{Name: sec.Section.Name, Content: sec.Section.Content}
		for name, results := range sec.Results {
			if sum.Directives == nil {
				sum.Directives = make(map[string][]string)
			}
			for _, r := range results {
				sum.Directives[name] = append(sum.Directives[name], r.Raw)
			}
		}
		for _, e := range sec.Errors {
			sum.Errors = append(sum.Errors, e.Error())
		}
		if sec.Skip != nil {
			sum.Skip = sec.Skip.Reason
		}
		out = append(out, sum)
	}
	return jsonResult(out), nil
}

func (s *Server) listWorkflows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.runner.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no workflows found"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) runWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.runner.Run(ctx, name, s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) listPending(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("workflow")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, err := s.runner.Pending(ctx, name, p, s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sel.Files) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("nothing pending for %s", sel.Pattern)), nil
	}
	paths := make([]string, 0, len(sel.Files))
	for _, f := range sel.Files {
		paths = append(paths, f.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getTemplateFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TemplateFormatContract), nil
}

func (s *Server) readTemplateFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     TemplateFormatContract,
		},
	}, nil
}

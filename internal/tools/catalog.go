// Package tools holds the named tool handles that @tools directives resolve to.
// Handles are mcp-go tools so the same catalog backs the MCP server.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/storage"
)

// Handle is a callable tool: its schema plus handler.
type Handle struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// Name returns the tool name.
func (h Handle) Name() string { return h.Tool.Name }

// Call invokes the handler with the given arguments.
func (h Handle) Call(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = h.Tool.Name
	req.Params.Arguments = args
	return h.Handler(ctx, req)
}

// Catalog is an immutable-after-setup set of tool handles.
type Catalog struct {
	handles map[string]Handle
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{handles: make(map[string]Handle)}
}

// Add registers a handle. Names must be unique.
func (c *Catalog) Add(h Handle) error {
	name := h.Name()
	if name == "" {
		return fmt.Errorf("tools: handle without name")
	}
	if _, ok := c.handles[name]; ok {
		return fmt.Errorf("tools: %q already registered", name)
	}
	c.handles[name] = h
	return nil
}

// Lookup returns the handles for names, in the order given.
func (c *Catalog) Lookup(names []string) ([]Handle, error) {
	out := make([]Handle, 0, len(names))
	for _, n := range names {
		h, ok := c.handles[strings.TrimSpace(n)]
		if !ok {
			return nil, fmt.Errorf("tools: %q: %w", n, apperr.ErrNotFound)
		}
		out = append(out, h)
	}
	return out, nil
}

// All returns every handle sorted by name.
func (c *Catalog) All() []Handle {
	out := make([]Handle, 0, len(c.handles))
	for _, h := range c.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Builtin returns a catalog with the vault file tools.
func Builtin(vault storage.Provider) *Catalog {
	c := NewCatalog()
	_ = c.Add(ReadFile(vault))
	_ = c.Add(ListFiles(vault))
	return c
}

// ReadFile returns the read_file tool over vault.
func ReadFile(vault storage.Provider) Handle {
	return Handle{
		Tool: mcp.NewTool("read_file",
			mcp.WithDescription("Read a file from the vault."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative file path")),
		),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path, err := req.RequireString("path")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			data, err := vault.Read(path)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
			}
			return mcp.NewToolResultText(string(data)), nil
		},
	}
}

// ListFiles returns the list_files tool over vault.
func ListFiles(vault storage.Provider) Handle {
	return Handle{
		Tool: mcp.NewTool("list_files",
			mcp.WithDescription("List the files directly inside a vault folder."),
			mcp.WithString("folder", mcp.Description("Vault-relative folder (empty for the root)")),
		),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			folder := req.GetString("folder", "")
			infos, err := vault.ListDir(folder)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			names := make([]string, len(infos))
			for i, info := range infos {
				names[i] = info.Path
			}
			return mcp.NewToolResultText(strings.Join(names, "\n")), nil
		},
	}
}

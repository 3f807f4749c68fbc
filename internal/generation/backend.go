// Package generation defines the contract between the section pipeline and a
// text generation backend.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/tools"
)

// ErrUnsupportedModel is returned by a backend that cannot serve Request.Model.
var ErrUnsupportedModel = errors.New("generation: unsupported model")

// Request is one section's generation input.
type Request struct {
	Instructions string
	Prompt       string
	History      []models.Turn
	Tools        []tools.Handle
	Model        string
}

// Backend produces text for a request.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Echo returns the prompt unchanged. It is the default offline backend and is
// useful for previewing what a section would send.
type Echo struct {
	// Models restricts the accepted model names when non-empty.
	Models []string
}

// Generate implements Backend.
func (e Echo) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(e.Models) > 0 && req.Model != "" && !contains(e.Models, req.Model) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedModel, req.Model)
	}
	if len(req.Tools) == 0 {
		return req.Prompt, nil
	}
	names := make([]string, len(req.Tools))
	for i, t := range req.Tools {
		names[i] = t.Name()
	}
	return req.Prompt + "\n\ntools: " + strings.Join(names, ", "), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Counting wraps a backend and counts calls. It is safe for sequential use
// by one pipeline invocation.
type Counting struct {
	Backend Backend
	Calls   int
	Last    Request
}

// Generate implements Backend.
func (c *Counting) Generate(ctx context.Context, req Request) (string, error) {
	c.Calls++
	c.Last = req
	return c.Backend.Generate(ctx, req)
}

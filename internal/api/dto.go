package api

import (
	"time"

	"github.com/starford/quire/internal/directive"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/output"
	"github.com/starford/quire/internal/pattern"
	"github.com/starford/quire/internal/tools"
)

// ResolveRequest is the request body for POST /api/resolve.
type ResolveRequest struct {
	Content  string    `json:"content" example:"## Summary\n@input file:journal/{today}\nSummarise." validate:"required"`
	ScopeKey string    `json:"scope_key,omitempty" example:"personal/daily"`
	Now      time.Time `json:"now,omitempty"`
}

// ResolveResponse lists each section's cleaned content and directive results.
type ResolveResponse struct {
	Title    string       `json:"title,omitempty"`
	Sections []SectionDTO `json:"sections" validate:"required"`
}

// SectionDTO is one resolved section.
type SectionDTO struct {
	Name       string                   `json:"name" validate:"required"`
	Content    string                   `json:"content"`
	Directives map[string][]DirectiveDTO `json:"directives"`
	Errors     []string                 `json:"errors,omitempty"`
	Skip       string                   `json:"skip,omitempty"`
}

// DirectiveDTO is one processed directive value.
type DirectiveDTO struct {
	Raw     string `json:"raw"`
	Success bool   `json:"success"`
	Value   any    `json:"value,omitempty"`
	Skip    string `json:"skip,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CurateRequest is the request body for POST /api/sessions/{id}/curate.
type CurateRequest struct {
	Template string        `json:"template" example:"chat" validate:"required"`
	History  []models.Turn `json:"history"`
	// TurnID reuses sections computed earlier in the same turn.
	TurnID string    `json:"turn_id,omitempty" example:"turn-7"`
	Now    time.Time `json:"now,omitempty"`
}

// RunRequest is the optional request body for POST /api/workflows/{name}/run.
type RunRequest struct {
	Now time.Time `json:"now,omitempty"`
}

// PendingResponse lists the files a pending pattern would select now.
type PendingResponse struct {
	Workflow string    `json:"workflow"`
	Pattern  string    `json:"pattern"`
	Files    []FileDTO `json:"files" validate:"required"`
}

// FileDTO describes a selected vault file without its content.
type FileDTO struct {
	Path    string    `json:"path" example:"inbox/idea.md"`
	Hash    string    `json:"hash"`
	ModTime time.Time `json:"mod_time"`
}

func toResolveResponse(res *directive.Resolution) ResolveResponse {
	out := ResolveResponse{Title: res.Document.Title, Sections: make([]SectionDTO, 0, len(res.Sections))}
	for _, s := range res.Sections {
		sec := SectionDTO{
			Name:       s.Section.Name,
			Content:    s.Section.Content,
			Directives: make(map[string][]DirectiveDTO, len(s.Results)),
		}
		for name, results := range s.Results {
			for _, r := range results {
				d := DirectiveDTO{Raw: r.Raw, Success: r.Success, Value: describeValue(r.Value)}
				if r.Skip != nil {
					d.Skip = r.Skip.Reason
				}
				if r.Err != nil {
					d.Error = r.Err.Error()
				}
				sec.Directives[name] = append(sec.Directives[name], d)
			}
		}
		for _, e := range s.Errors {
			sec.Errors = append(sec.Errors, e.Error())
		}
		if s.Skip != nil {
			sec.Skip = s.Skip.Reason
		}
		out.Sections = append(out.Sections, sec)
	}
	return out
}

// describeValue converts processor values into JSON-safe summaries.
func describeValue(v any) any {
	switch val := v.(type) {
	case directive.Input:
		m := map[string]any{"source": val.Source, "target": val.Target, "required": val.Required}
		if val.Selection != nil {
			m["kind"] = val.Selection.Kind
			m["files"] = toFiles(val.Selection)
		}
		return m
	case []tools.Handle:
		names := make([]string, len(val))
		for i, h := range val {
			names[i] = h.Name()
		}
		return names
	case output.Target:
		return val.String()
	case directive.ModelChoice:
		return val.Name
	case directive.CachePolicy:
		m := map[string]any{"mode": val.Mode}
		if val.TTL > 0 {
			m["ttl"] = val.TTL.String()
		}
		return m
	case directive.Schedule:
		var days []string
		for d, on := range val.Days {
			if on {
				days = append(days, time.Weekday(d).String())
			}
		}
		return days
	default:
		return v
	}
}

func toFiles(sel *pattern.Selection) []FileDTO {
	out := make([]FileDTO, 0, len(sel.Files))
	for _, f := range sel.Files {
		out = append(out, FileDTO{Path: f.Path, Hash: f.Hash, ModTime: f.ModTime})
	}
	return out
}

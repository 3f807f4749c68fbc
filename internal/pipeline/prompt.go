package pipeline

import (
	"fmt"
	"strings"

	"github.com/starford/quire/internal/directive"
	"github.com/starford/quire/internal/models"
)

// buildPrompt renders a section's content with its resolved inputs and any
// prior summaries appended.
func buildPrompt(content string, inputs []directive.Input, summaries []models.CacheEntry) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(content))

	for _, in := range inputs {
		switch in.Source {
		case directive.SourceBuffer:
			if strings.TrimSpace(in.Buffer) == "" {
				continue
			}
			fmt.Fprintf(&b, "\n\n### Input: buffer:%s\n\n%s", in.Target, strings.TrimSpace(in.Buffer))
		default:
			if in.Selection == nil || len(in.Selection.Files) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n\n### Input: file:%s", in.Target)
			for _, f := range in.Selection.Files {
				fmt.Fprintf(&b, "\n\n#### %s\n\n%s", f.Path, strings.TrimSpace(f.Content))
			}
		}
	}

	if len(summaries) > 0 {
		b.WriteString("\n\n### Recent summaries")
		// Oldest first reads naturally.
		for i := len(summaries) - 1; i >= 0; i-- {
			s := summaries[i]
			fmt.Fprintf(&b, "\n\n#### %s\n\n%s", s.CreatedAt.Format("2006-01-02 15:04"), strings.TrimSpace(s.RawOutput))
		}
	}
	return strings.TrimSpace(b.String())
}

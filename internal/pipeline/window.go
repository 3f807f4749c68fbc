package pipeline

import (
	"unicode/utf8"

	"github.com/starford/quire/internal/models"
)

// Window selects the history a section sees. With runs > 0 and run IDs
// present it returns the turns of the trailing runs; otherwise it returns
// everything since the last user turn, inclusive.
func Window(history []models.Turn, runs int) []models.Turn {
	if len(history) == 0 {
		return nil
	}
	if runs > 0 && hasRunIDs(history) {
		seen := 0
		last := ""
		start := len(history)
		for i := len(history) - 1; i >= 0; i-- {
			id := history[i].RunID
			if id == "" {
				start = i
				continue
			}
			if id != last {
				if seen == runs {
					break
				}
				seen++
				last = id
			}
			start = i
		}
		return history[start:]
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return history[i:]
		}
	}
	return history
}

func hasRunIDs(history []models.Turn) bool {
	for _, t := range history {
		if t.RunID != "" {
			return true
		}
	}
	return false
}

// EstimateTokens approximates the token count of turns as characters / 4.
func EstimateTokens(turns []models.Turn) int {
	n := 0
	for _, t := range turns {
		n += utf8.RuneCountInString(t.Content)
	}
	return n / 4
}

package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/arborapp/arbor-core/internal/model"
)

// Heuristic is the deterministic summarizer: decisions become key
// decisions, written files become the modified list, and the summary is a
// rolling digest of the last significant entries. It never fails.
type Heuristic struct{}

// rollingWindow is how many trailing significant entries feed the summary.
const rollingWindow = 10

// Summarize implements Summarizer.
func (Heuristic) Summarize(_ context.Context, session *model.WorkSession, entries []*model.WorkEntry, _ int) (*Result, error) {
	res := &Result{}

	seen := map[string]bool{}
	var significant []*model.WorkEntry

	for _, e := range entries {
		switch c := e.Content.(type) {
		case model.DecisionContent:
			res.KeyDecisions = append(res.KeyDecisions, fmt.Sprintf("%s: %s", c.Question, c.ChosenOption))
		case model.FileWrittenContent:
			if !seen[c.Path] {
				seen[c.Path] = true
				res.FilesModified = append(res.FilesModified, c.Path)
			}
		}
		switch e.Type {
		case model.EntryToolResult, model.EntryDecision, model.EntryError:
			significant = append(significant, e)
		}
	}

	if len(significant) > rollingWindow {
		significant = significant[len(significant)-rollingWindow:]
	}

	var lines []string
	for _, e := range significant {
		switch c := e.Content.(type) {
		case model.ToolResultContent:
			lines = append(lines, fmt.Sprintf("ran %s: %s", c.ToolName, truncate(c.Output, 120)))
		case model.DecisionContent:
			lines = append(lines, fmt.Sprintf("decided %s: %s", c.Question, c.ChosenOption))
		case model.ErrorContent:
			lines = append(lines, fmt.Sprintf("error: %s", truncate(c.Message, 120)))
		}
	}

	if len(lines) == 0 {
		res.Summary = fmt.Sprintf("Logged %d entries, no tool activity yet.", len(entries))
	} else {
		res.Summary = strings.Join(lines, "\n")
	}

	prompt := session.OriginalPrompt
	res.CurrentState = "In progress: " + truncate(prompt, 200)
	res.SuggestedNextSteps = []string{"Review recent entries and continue"}

	return res, nil
}

// CompactText implements Summarizer by simple head truncation.
func (Heuristic) CompactText(_ context.Context, content string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = 200
	}
	return truncate(strings.TrimSpace(content), maxChars), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package summarize turns a work session's entry log into a structured
// checkpoint summary. The AI gateway is optional; the heuristic summarizer
// is the deterministic floor every checkpoint can fall back to.
package summarize

import (
	"context"

	"github.com/arborapp/arbor-core/internal/model"
)

// Result is the structured output of a summarization pass.
type Result struct {
	Summary            string   `json:"summary"`
	KeyDecisions       []string `json:"keyDecisions"`
	CurrentState       string   `json:"currentState"`
	FilesModified      []string `json:"filesModified"`
	SuggestedNextSteps []string `json:"suggestedNextSteps"`
}

// Summarizer produces a structured summary of a session and its entries.
type Summarizer interface {
	Summarize(ctx context.Context, session *model.WorkSession, entries []*model.WorkEntry, targetTokens int) (*Result, error)

	// CompactText condenses a single memory's content for compaction.
	CompactText(ctx context.Context, content string, maxChars int) (string, error)
}

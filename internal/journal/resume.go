package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/arborapp/arbor-core/internal/model"
)

const (
	maxResumeDecisions = 10
	maxResumeErrors    = 5
)

// GenerateResumptionContext aggregates the session's journal into a single
// text blob sized for a fresh LLM context window: deduplicated key
// decisions, files touched, recent errors, and the latest checkpoint's
// state (or a derived default when no checkpoint exists).
func (s *Store) GenerateResumptionContext(ctx context.Context, sessionID string, targetTokens int) (*model.ResumptionContext, error) {
	if targetTokens <= 0 {
		targetTokens = 4000
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := s.GetEntries(ctx, sessionID, EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	rc := &model.ResumptionContext{SessionID: sessionID}

	seenDecisions := map[string]bool{}
	seenFiles := map[string]bool{}

	for _, e := range entries {
		switch c := e.Content.(type) {
		case model.DecisionContent:
			d := fmt.Sprintf("%s: %s", c.Question, c.ChosenOption)
			if !seenDecisions[d] {
				seenDecisions[d] = true
				rc.KeyDecisions = append(rc.KeyDecisions, d)
			}
		case model.FileWrittenContent:
			if !seenFiles[c.Path] {
				seenFiles[c.Path] = true
				rc.FilesTouched = append(rc.FilesTouched, c.Path)
			}
		case model.FileReadContent:
			if !seenFiles[c.Path] {
				seenFiles[c.Path] = true
				rc.FilesTouched = append(rc.FilesTouched, c.Path)
			}
		case model.ErrorContent:
			rc.RecentErrors = append(rc.RecentErrors, c.Message)
		}
	}

	// Most recent last, capped.
	if len(rc.KeyDecisions) > maxResumeDecisions {
		rc.KeyDecisions = rc.KeyDecisions[len(rc.KeyDecisions)-maxResumeDecisions:]
	}
	if len(rc.RecentErrors) > maxResumeErrors {
		rc.RecentErrors = rc.RecentErrors[len(rc.RecentErrors)-maxResumeErrors:]
	}

	cp, err := s.GetLatestCheckpoint(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp != nil {
		rc.CurrentState = cp.CurrentState
		rc.PendingActions = cp.PendingActions
	} else {
		rc.CurrentState = "In progress: " + session.OriginalPrompt
		rc.PendingActions = []string{"Review recent entries and continue"}
	}

	rc.Text = renderResumption(session, rc)
	if max := targetTokens * 4; len(rc.Text) > max {
		rc.Text = rc.Text[:max]
	}
	rc.TokenEstimate = estimateTokens(len(rc.Text))

	return rc, nil
}

func renderResumption(session *model.WorkSession, rc *model.ResumptionContext) string {
	var b strings.Builder

	b.WriteString("# Resuming work session\n\n")
	fmt.Fprintf(&b, "Original request: %s\n", session.OriginalPrompt)
	fmt.Fprintf(&b, "Entries logged: %d\n", session.EntryCount)
	fmt.Fprintf(&b, "Current state: %s\n", rc.CurrentState)

	if len(rc.KeyDecisions) > 0 {
		b.WriteString("\nKey decisions:\n")
		for _, d := range rc.KeyDecisions {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	if len(rc.FilesTouched) > 0 {
		b.WriteString("\nFiles touched:\n")
		for _, f := range rc.FilesTouched {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(rc.RecentErrors) > 0 {
		b.WriteString("\nRecent errors:\n")
		for _, e := range rc.RecentErrors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	if len(rc.PendingActions) > 0 {
		b.WriteString("\nPending actions:\n")
		for _, p := range rc.PendingActions {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}

package summarize

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/arborapp/arbor-core/internal/model"
)

func entry(typ model.EntryType, c model.EntryContent) *model.WorkEntry {
	return &model.WorkEntry{Type: typ, Content: c}
}

func TestHeuristicSummarize(t *testing.T) {
	session := &model.WorkSession{ID: "s1", OriginalPrompt: "add csv export"}
	entries := []*model.WorkEntry{
		entry(model.EntryThinking, model.ThinkingContent{Text: "planning"}),
		entry(model.EntryDecision, model.DecisionContent{Question: "delimiter", ChosenOption: "comma"}),
		entry(model.EntryFileWritten, model.FileWrittenContent{Path: "export.go"}),
		entry(model.EntryFileWritten, model.FileWrittenContent{Path: "export.go"}),
		entry(model.EntryFileWritten, model.FileWrittenContent{Path: "export_test.go"}),
		entry(model.EntryToolResult, model.ToolResultContent{ToolName: "go", Output: "ok"}),
		entry(model.EntryError, model.ErrorContent{Message: "missing header row"}),
	}

	res, err := Heuristic{}.Summarize(context.Background(), session, entries, 1000)
	if err != nil {
		t.Fatalf("heuristic must never fail: %v", err)
	}

	if len(res.KeyDecisions) != 1 || res.KeyDecisions[0] != "delimiter: comma" {
		t.Errorf("unexpected decisions: %v", res.KeyDecisions)
	}
	if len(res.FilesModified) != 2 {
		t.Errorf("files should be deduplicated: %v", res.FilesModified)
	}
	if !strings.Contains(res.Summary, "ran go") || !strings.Contains(res.Summary, "missing header row") {
		t.Errorf("summary should digest significant entries:\n%s", res.Summary)
	}
	if res.CurrentState != "In progress: add csv export" {
		t.Errorf("unexpected state: %q", res.CurrentState)
	}
	if len(res.SuggestedNextSteps) == 0 {
		t.Error("expected a default next step")
	}
}

func TestHeuristicRollingWindow(t *testing.T) {
	session := &model.WorkSession{ID: "s1", OriginalPrompt: "task"}
	var entries []*model.WorkEntry
	for i := 0; i < 25; i++ {
		entries = append(entries, entry(model.EntryToolResult,
			model.ToolResultContent{ToolName: "t", Output: fmt.Sprintf("run %d", i)}))
	}

	res, _ := Heuristic{}.Summarize(context.Background(), session, entries, 1000)
	lines := strings.Split(res.Summary, "\n")
	if len(lines) != rollingWindow {
		t.Fatalf("expected %d summary lines, got %d", rollingWindow, len(lines))
	}
	if !strings.Contains(lines[len(lines)-1], "run 24") {
		t.Errorf("summary should end with the latest entry: %q", lines[len(lines)-1])
	}
}

func TestHeuristicEmptySession(t *testing.T) {
	session := &model.WorkSession{ID: "s1", OriginalPrompt: "empty"}

	res, err := Heuristic{}.Summarize(context.Background(), session, nil, 1000)
	if err != nil {
		t.Fatalf("heuristic must never fail: %v", err)
	}
	if res.Summary == "" || res.CurrentState == "" {
		t.Error("expected non-empty summary and state even without entries")
	}
}

func TestHeuristicCompactText(t *testing.T) {
	out, err := Heuristic{}.CompactText(context.Background(), "  short note  ", 200)
	if err != nil || out != "short note" {
		t.Errorf("expected trimmed passthrough, got %q (%v)", out, err)
	}

	long := strings.Repeat("x", 500)
	out, _ = Heuristic{}.CompactText(context.Background(), long, 100)
	if len(out) != 103 || !strings.HasSuffix(out, "...") {
		t.Errorf("expected head truncation with ellipsis, got %d chars", len(out))
	}
}

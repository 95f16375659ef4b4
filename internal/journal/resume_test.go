package journal

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/arborapp/arbor-core/internal/model"
)

func TestResumptionContextDecisions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", "migrate the schema")

	s.LogEntry(ctx, ws.ID, model.DecisionContent{Question: "driver", ChosenOption: "modernc"}, "")
	s.LogEntry(ctx, ws.ID, model.DecisionContent{Question: "journal mode", ChosenOption: "wal"}, "")
	s.LogEntry(ctx, ws.ID, model.DecisionContent{Question: "ids", ChosenOption: "ulid"}, "")

	rc, err := s.GenerateResumptionContext(ctx, ws.ID, 0)
	if err != nil {
		t.Fatalf("resumption context: %v", err)
	}
	want := []string{"driver: modernc", "journal mode: wal", "ids: ulid"}
	if len(rc.KeyDecisions) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(rc.KeyDecisions))
	}
	for i, d := range want {
		if rc.KeyDecisions[i] != d {
			t.Errorf("decision %d: got %q, want %q (most recent last)", i, rc.KeyDecisions[i], d)
		}
	}
}

func TestResumptionContextCapsAndDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", "task")

	for i := 0; i < 15; i++ {
		s.LogEntry(ctx, ws.ID, model.DecisionContent{Question: fmt.Sprintf("q%d", i), ChosenOption: "o"}, "")
	}
	for i := 0; i < 8; i++ {
		s.LogEntry(ctx, ws.ID, model.ErrorContent{Message: fmt.Sprintf("err %d", i)}, "")
	}
	s.LogEntry(ctx, ws.ID, model.FileWrittenContent{Path: "a.go"}, "")
	s.LogEntry(ctx, ws.ID, model.FileReadContent{Path: "a.go"}, "")
	s.LogEntry(ctx, ws.ID, model.FileReadContent{Path: "b.go"}, "")

	rc, err := s.GenerateResumptionContext(ctx, ws.ID, 4000)
	if err != nil {
		t.Fatalf("resumption context: %v", err)
	}
	if len(rc.KeyDecisions) != 10 {
		t.Errorf("decisions capped at 10, got %d", len(rc.KeyDecisions))
	}
	if rc.KeyDecisions[9] != "q14: o" {
		t.Errorf("most recent decision last, got %q", rc.KeyDecisions[9])
	}
	if len(rc.RecentErrors) != 5 {
		t.Errorf("errors capped at 5, got %d", len(rc.RecentErrors))
	}
	if rc.RecentErrors[4] != "err 7" {
		t.Errorf("most recent error last, got %q", rc.RecentErrors[4])
	}
	if len(rc.FilesTouched) != 2 {
		t.Errorf("files deduplicated across read/write, got %v", rc.FilesTouched)
	}
}

func TestResumptionContextDefaultsWithoutCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", "ship the feature")

	rc, err := s.GenerateResumptionContext(ctx, ws.ID, 4000)
	if err != nil {
		t.Fatalf("resumption context: %v", err)
	}
	if !strings.Contains(rc.CurrentState, "ship the feature") {
		t.Errorf("derived state should mention the prompt: %q", rc.CurrentState)
	}
	if len(rc.PendingActions) == 0 {
		t.Error("expected derived pending actions")
	}
	if rc.TokenEstimate <= 0 {
		t.Error("expected positive token estimate")
	}
}

func TestResumptionContextUsesLatestCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", "task")
	s.LogEntry(ctx, ws.ID, model.ToolResultContent{ToolName: "go", Output: "built"}, "")

	cp, err := s.CreateCheckpoint(ctx, ws.ID, CheckpointOptions{Manual: true})
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	rc, err := s.GenerateResumptionContext(ctx, ws.ID, 4000)
	if err != nil {
		t.Fatalf("resumption context: %v", err)
	}
	if rc.CurrentState != cp.CurrentState {
		t.Errorf("state should come from the checkpoint: %q vs %q", rc.CurrentState, cp.CurrentState)
	}
}

func TestResumptionContextBudget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", strings.Repeat("long prompt ", 100))

	rc, err := s.GenerateResumptionContext(ctx, ws.ID, 50)
	if err != nil {
		t.Fatalf("resumption context: %v", err)
	}
	if len(rc.Text) > 200 {
		t.Errorf("text should be capped at targetTokens*4 chars, got %d", len(rc.Text))
	}
}

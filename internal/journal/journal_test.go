package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arborapp/arbor-core/internal/model"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "journal.db"), opts)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	ws, err := s.CreateSession(ctx, "conv-1", "refactor the parser")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if ws.Status != model.SessionActive {
		t.Errorf("expected active, got %s", ws.Status)
	}
	if ws.EntryCount != 0 || ws.TokenEstimate != 0 {
		t.Error("expected zeroed counters")
	}

	got, err := s.GetSession(ctx, ws.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.OriginalPrompt != "refactor the parser" {
		t.Errorf("prompt not persisted: %q", got.OriginalPrompt)
	}
}

func TestLogEntrySequenceAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", "task")

	for i := 1; i <= 3; i++ {
		e, err := s.LogEntry(ctx, ws.ID, model.ThinkingContent{Text: fmt.Sprintf("step %d", i)}, "")
		if err != nil {
			t.Fatalf("log entry %d: %v", i, err)
		}
		if e.SequenceNum != int64(i) {
			t.Errorf("expected seq %d, got %d", i, e.SequenceNum)
		}
		if e.TokenEstimate <= 0 {
			t.Error("expected positive token estimate")
		}
	}

	got, _ := s.GetSession(ctx, ws.ID)
	if got.EntryCount != 3 {
		t.Errorf("expected entry_count 3, got %d", got.EntryCount)
	}
	if got.TokenEstimate <= 0 {
		t.Error("expected session token estimate to grow")
	}
}

func TestLogEntryUnknownSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	_, err := s.LogEntry(ctx, "nope", model.ThinkingContent{Text: "x"}, "")
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestSequenceUnderConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", "task")

	const writers = 5
	const perWriter = 10

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := s.LogEntry(ctx, ws.ID, model.ThinkingContent{Text: fmt.Sprintf("w%d-%d", w, i)}, ""); err != nil {
					t.Errorf("log entry: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	entries, err := s.GetEntries(ctx, ws.ID, EntryFilter{})
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(entries) != writers*perWriter {
		t.Fatalf("expected %d entries, got %d", writers*perWriter, len(entries))
	}
	for i, e := range entries {
		if e.SequenceNum != int64(i+1) {
			t.Fatalf("sequence gap or duplicate at index %d: seq %d", i, e.SequenceNum)
		}
	}
}

func TestGetEntriesFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", "task")

	s.LogEntry(ctx, ws.ID, model.ThinkingContent{Text: "a"}, model.ImportanceLow)
	s.LogEntry(ctx, ws.ID, model.DecisionContent{Question: "q", ChosenOption: "o"}, model.ImportanceHigh)
	s.LogEntry(ctx, ws.ID, model.ErrorContent{Message: "boom"}, model.ImportanceCritical)

	since, _ := s.GetEntries(ctx, ws.ID, EntryFilter{Since: 1})
	if len(since) != 2 {
		t.Errorf("since is exclusive: expected 2, got %d", len(since))
	}

	decisions, _ := s.GetEntries(ctx, ws.ID, EntryFilter{Types: []model.EntryType{model.EntryDecision}})
	if len(decisions) != 1 {
		t.Errorf("expected 1 decision, got %d", len(decisions))
	}

	important, _ := s.GetEntries(ctx, ws.ID, EntryFilter{Importance: []model.Importance{model.ImportanceHigh, model.ImportanceCritical}})
	if len(important) != 2 {
		t.Errorf("expected 2 important entries, got %d", len(important))
	}

	limited, _ := s.GetEntries(ctx, ws.ID, EntryFilter{Limit: 1})
	if len(limited) != 1 || limited[0].SequenceNum != 1 {
		t.Error("limit should keep ascending order from the start")
	}
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})
	ws, _ := s.CreateSession(ctx, "conv-1", "task")

	if err := s.UpdateSessionStatus(ctx, ws.ID, model.SessionPaused); err != nil {
		t.Fatalf("active->paused: %v", err)
	}
	if err := s.UpdateSessionStatus(ctx, ws.ID, model.SessionActive); err != nil {
		t.Fatalf("paused->active: %v", err)
	}
	if err := s.UpdateSessionStatus(ctx, ws.ID, model.SessionCompleted); err != nil {
		t.Fatalf("active->completed: %v", err)
	}

	got, _ := s.GetSession(ctx, ws.ID)
	if got.CompletedAt == nil {
		t.Error("expected completed_at on terminal status")
	}

	if err := s.UpdateSessionStatus(ctx, ws.ID, model.SessionActive); err == nil {
		t.Error("expected error transitioning out of completed")
	}
}

func TestGetResumableSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	a, _ := s.CreateSession(ctx, "c1", "one")
	b, _ := s.CreateSession(ctx, "c2", "two")
	c, _ := s.CreateSession(ctx, "c3", "three")

	s.UpdateSessionStatus(ctx, a.ID, model.SessionPaused)
	s.UpdateSessionStatus(ctx, b.ID, model.SessionCrashed)
	s.UpdateSessionStatus(ctx, c.ID, model.SessionCompleted)

	resumable, err := s.GetResumableSessions(ctx, 20)
	if err != nil {
		t.Fatalf("resumable: %v", err)
	}
	if len(resumable) != 2 {
		t.Fatalf("expected 2 resumable, got %d", len(resumable))
	}
	for _, ws := range resumable {
		if ws.ID == c.ID {
			t.Error("completed session should not be resumable")
		}
	}
}

func TestCleanupOldSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{Retention: 24 * time.Hour})

	old, _ := s.CreateSession(ctx, "c1", "old done")
	s.LogEntry(ctx, old.ID, model.ThinkingContent{Text: "x"}, "")
	s.UpdateSessionStatus(ctx, old.ID, model.SessionCompleted)

	stale, _ := s.CreateSession(ctx, "c2", "old but active")

	// Backdate both past retention.
	past := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	s.db.Exec(`UPDATE work_sessions SET updated_at = ?`, past)

	n, err := s.CleanupOldSessions(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}

	if _, err := s.GetSession(ctx, old.ID); err == nil {
		t.Error("terminal old session should be deleted")
	}
	if _, err := s.GetSession(ctx, stale.ID); err != nil {
		t.Error("active session must survive regardless of age")
	}
}

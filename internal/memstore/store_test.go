package memstore

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arborapp/arbor-core/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "memory.db"), Options{})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustStore(t *testing.T, s *Store, req StoreRequest) string {
	t.Helper()
	res, err := s.StoreMemory(context.Background(), req)
	if err != nil {
		t.Fatalf("store memory: %v", err)
	}
	if !res.Success {
		t.Fatalf("store memory rejected: %s", res.Error)
	}
	return res.MemoryID
}

func TestStoreAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id := mustStore(t, s, StoreRequest{
		Content: "User prefers tabs over spaces",
		Type:    model.MemoryPreference,
		Scope:   model.ScopeGlobal,
	})

	m, err := s.GetMemory(ctx, id)
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if m.Confidence != 0.8 {
		t.Errorf("expected default confidence 0.8, got %v", m.Confidence)
	}
	if m.DecayRate != 0.1 {
		t.Errorf("expected default decay rate 0.1, got %v", m.DecayRate)
	}
	if m.Privacy != model.PrivacyNormal {
		t.Errorf("expected default privacy normal, got %s", m.Privacy)
	}
}

func TestStoreDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.StoreMemory(ctx, StoreRequest{
		Content:    "User prefers dark mode",
		Type:       model.MemoryPreference,
		Scope:      model.ScopeGlobal,
		Confidence: 0.9,
	})
	if err != nil || !first.Success {
		t.Fatalf("first store: %v %+v", err, first)
	}

	second, err := s.StoreMemory(ctx, StoreRequest{
		Content:    "User prefers dark mode",
		Type:       model.MemoryPreference,
		Scope:      model.ScopeGlobal,
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("second store: %v", err)
	}
	if !second.Success || !second.Duplicate {
		t.Fatalf("expected duplicate result, got %+v", second)
	}
	if second.ExistingMemoryID != first.MemoryID {
		t.Error("duplicate should reference the original")
	}

	rows := s.QueryMemories(ctx, QueryFilter{Scope: model.ScopeGlobal})
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
	if rows[0].AccessCount != 1 {
		t.Errorf("expected access_count 1 after duplicate, got %d", rows[0].AccessCount)
	}
	if math.Abs(rows[0].Confidence-0.95) > 1e-9 {
		t.Errorf("expected confidence bumped to 0.95, got %v", rows[0].Confidence)
	}
}

func TestStoreDuplicateCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustStore(t, s, StoreRequest{Content: "Deploys run on Fridays", Scope: model.ScopeGlobal})
	res, err := s.StoreMemory(ctx, StoreRequest{Content: "  deploys run on fridays  ", Scope: model.ScopeGlobal})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !res.Duplicate {
		t.Error("trimmed case-insensitive match should be a duplicate")
	}
}

func TestStoreDuplicateDifferentScopeIsNot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustStore(t, s, StoreRequest{Content: "Uses makefiles", Scope: model.ScopeGlobal})
	res, err := s.StoreMemory(ctx, StoreRequest{
		Content: "Uses makefiles",
		Scope:   model.ScopeProject,
		ScopeID: "/work/app",
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if res.Duplicate {
		t.Error("same content in a different scope is not a duplicate")
	}
}

func TestStoreValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	res, err := s.StoreMemory(ctx, StoreRequest{Content: "ab"})
	if err != nil {
		t.Fatalf("validation must not be a Go error: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Errorf("expected typed validation failure, got %+v", res)
	}

	res, err = s.StoreMemory(ctx, StoreRequest{Content: strings.Repeat("x", 10001)})
	if err != nil || res.Success {
		t.Error("expected too-long content to be rejected")
	}

	res, _ = s.StoreMemory(ctx, StoreRequest{Content: "valid content", Type: "mood"})
	if res.Success {
		t.Error("expected unknown type to be rejected")
	}
}

func TestConfidenceClamped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id := mustStore(t, s, StoreRequest{Content: "over-confident note", Confidence: 3.0})
	m, _ := s.GetMemory(ctx, id)
	if m.Confidence != 1.0 {
		t.Errorf("expected confidence clamped to 1.0, got %v", m.Confidence)
	}
}

func TestDeleteMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id := mustStore(t, s, StoreRequest{Content: "temporary note"})
	if err := s.DeleteMemory(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetMemory(ctx, id); err == nil {
		t.Error("expected not found after delete")
	}
	if err := s.DeleteMemory(ctx, id); err == nil {
		t.Error("expected error deleting twice")
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustStore(t, s, StoreRequest{Content: "one note"})
	mustStore(t, s, StoreRequest{Content: "two note"})

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if rows := s.QueryMemories(ctx, QueryFilter{}); len(rows) != 0 {
		t.Errorf("expected empty store, got %d", len(rows))
	}
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustStore(t, s, StoreRequest{Content: "likes concise answers", Type: model.MemoryPreference, Confidence: 0.9, Tags: []string{"style"}})
	mustStore(t, s, StoreRequest{Content: "project uses postgres", Type: model.MemoryFact, Confidence: 0.6})
	mustStore(t, s, StoreRequest{Content: "weak hunch about caching", Type: model.MemoryFact, Confidence: 0.2})

	byType := s.QueryMemories(ctx, QueryFilter{Types: []model.MemoryType{model.MemoryFact}})
	if len(byType) != 2 {
		t.Errorf("expected 2 facts, got %d", len(byType))
	}

	confident := s.QueryMemories(ctx, QueryFilter{MinConfidence: 0.5})
	if len(confident) != 2 {
		t.Errorf("expected 2 above 0.5, got %d", len(confident))
	}

	tagged := s.QueryMemories(ctx, QueryFilter{Tags: []string{"style"}})
	if len(tagged) != 1 {
		t.Errorf("expected 1 tagged, got %d", len(tagged))
	}

	sorted := s.QueryMemories(ctx, QueryFilter{SortBy: SortByConfidence})
	if len(sorted) != 3 || sorted[0].Confidence < sorted[1].Confidence {
		t.Error("expected confidence descending by default")
	}
}

func TestNeverShareExcludedFromQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	secret := mustStore(t, s, StoreRequest{Content: "api key lives in vault", Privacy: model.PrivacyNeverShare})
	mustStore(t, s, StoreRequest{Content: "public knowledge"})

	rows := s.QueryMemories(ctx, QueryFilter{})
	if len(rows) != 1 {
		t.Fatalf("never_share must be excluded by default, got %d rows", len(rows))
	}

	// Explicit id read is the only allowed path.
	m, err := s.GetMemory(ctx, secret)
	if err != nil || m.Privacy != model.PrivacyNeverShare {
		t.Error("explicit id read should return the memory")
	}
}

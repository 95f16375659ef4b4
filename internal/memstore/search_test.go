package memstore

import (
	"context"
	"testing"

	"github.com/arborapp/arbor-core/internal/model"
)

func TestSearchMatchesContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	want := mustStore(t, s, StoreRequest{Content: "deploys happen through the staging pipeline"})
	mustStore(t, s, StoreRequest{Content: "user likes espresso in the morning"})

	got := s.SearchMemories(ctx, "staging pipeline", 10)
	if len(got) != 1 || got[0].ID != want {
		t.Fatalf("expected the pipeline memory, got %d results", len(got))
	}
}

func TestSearchMatchesSummaryAndTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bySummary := mustStore(t, s, StoreRequest{
		Content: "a very long description of the release procedure nobody reads",
		Summary: "release checklist",
	})
	byTag := mustStore(t, s, StoreRequest{
		Content: "the build machine is flaky on tuesdays",
		Tags:    []string{"infrastructure"},
	})

	if got := s.SearchMemories(ctx, "checklist", 10); len(got) != 1 || got[0].ID != bySummary {
		t.Error("expected summary match")
	}
	if got := s.SearchMemories(ctx, "infrastructure", 10); len(got) != 1 || got[0].ID != byTag {
		t.Error("expected tag match")
	}
}

func TestSearchExcludesNeverShare(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustStore(t, s, StoreRequest{
		Content: "the vault passphrase rotation schedule",
		Privacy: model.PrivacyNeverShare,
	})

	if got := s.SearchMemories(ctx, "passphrase rotation", 10); len(got) != 0 {
		t.Fatalf("never_share must not be searchable, got %d results", len(got))
	}
}

func TestSearchQuotesOperators(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustStore(t, s, StoreRequest{Content: "notes about NEAR misses in planning"})

	// FTS5 operators in user input must be treated as plain tokens.
	got := s.SearchMemories(ctx, `NEAR "misses`, 10)
	if len(got) != 1 {
		t.Errorf("expected operator-laden query to match as plain text, got %d", len(got))
	}
}

func TestSearchEmptyAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		mustStore(t, s, StoreRequest{Content: "repeated observation number " + string(rune('a'+i))})
	}

	if got := s.SearchMemories(ctx, "   ", 10); got != nil {
		t.Error("blank query should return nothing")
	}
	if got := s.SearchMemories(ctx, "observation", 2); len(got) != 2 {
		t.Errorf("expected limit 2, got %d", len(got))
	}
}

package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arborapp/arbor-core/internal/model"
)

// ContextRequest selects which memory layers feed a prompt context block.
type ContextRequest struct {
	ConversationID string
	ProjectPath    string
	SearchText     string
	MaxTokens      int // output budget, default 2000
}

// ContextStats aggregates the gathered set.
type ContextStats struct {
	TotalCount    int                       `json:"total_count"`
	ByScope       map[model.MemoryScope]int `json:"by_scope"`
	ByType        map[model.MemoryType]int  `json:"by_type"`
	AvgConfidence float64                   `json:"avg_confidence"`
}

// MemoryContext is the prompt-injectable retrieval result.
type MemoryContext struct {
	Text          string               `json:"text"`
	Memories      []*model.ArborMemory `json:"memories"`
	TokenEstimate int                  `json:"token_estimate"`
	Stats         ContextStats         `json:"stats"`
}

// Layer limits and confidence floors of the retrieval algorithm.
const (
	alwaysLayerLimit       = 20
	globalLayerLimit       = 30
	projectLayerLimit      = 20
	conversationLayerLimit = 10
	searchLayerLimit       = 10

	alwaysMinConfidence       = 0.1
	globalMinConfidence       = 0.5
	projectMinConfidence      = 0.3
	conversationMinConfidence = 0.2
)

// GetContextMemories runs the layered retrieval: always-include, global,
// project, conversation, then search, deduplicating by id across layers.
// Every gathered memory is marked accessed in one batch, then the set is
// rendered into a single text block grouped by type in fixed priority
// order and greedily truncated to the token budget.
func (s *Store) GetContextMemories(ctx context.Context, req ContextRequest) *MemoryContext {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	seen := map[string]bool{}
	var gathered []*model.ArborMemory
	add := func(memories []*model.ArborMemory) {
		for _, m := range memories {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			gathered = append(gathered, m)
		}
	}

	// Layer 1: always-include, highest confidence first.
	add(s.QueryMemories(ctx, QueryFilter{
		Privacy:       []model.PrivacyLevel{model.PrivacyAlwaysInclude},
		MinConfidence: alwaysMinConfidence,
		SortBy:        SortByConfidence,
		Limit:         alwaysLayerLimit,
	}))

	// Layer 2: global scope, most-recently-accessed first.
	add(s.QueryMemories(ctx, QueryFilter{
		Scope:         model.ScopeGlobal,
		MinConfidence: globalMinConfidence,
		Privacy:       []model.PrivacyLevel{model.PrivacyNormal, model.PrivacySensitive},
		SortBy:        SortByAccessedAt,
		Limit:         globalLayerLimit,
	}))

	// Layer 3: project scope.
	if req.ProjectPath != "" {
		add(s.QueryMemories(ctx, QueryFilter{
			Scope:         model.ScopeProject,
			ScopeID:       req.ProjectPath,
			MinConfidence: projectMinConfidence,
			SortBy:        SortByAccessedAt,
			Limit:         projectLayerLimit,
		}))
	}

	// Layer 4: conversation scope, most-recently-created first.
	if req.ConversationID != "" {
		add(s.QueryMemories(ctx, QueryFilter{
			Scope:         model.ScopeConversation,
			ScopeID:       req.ConversationID,
			MinConfidence: conversationMinConfidence,
			SortBy:        SortByCreatedAt,
			Limit:         conversationLayerLimit,
		}))
	}

	// Layer 5: free-text search.
	if req.SearchText != "" {
		add(s.SearchMemories(ctx, req.SearchText, searchLayerLimit))
	}

	if len(gathered) > 0 {
		s.markAccessed(ctx, gathered, "context_injection", req.ConversationID)
	}

	mc := &MemoryContext{
		Memories: gathered,
		Stats:    computeStats(gathered),
	}
	mc.Text = formatContext(gathered, maxTokens*4)
	mc.TokenEstimate = (len(mc.Text) + 3) / 4
	return mc
}

// markAccessed bumps access tracking and appends access-log rows for the
// whole gathered set in one transaction. Failure is logged, not surfaced:
// retrieval already succeeded.
func (s *Store) markAccessed(ctx context.Context, memories []*model.ArborMemory, accessContext, conversationID string) {
	ts := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Warn("mark accessed failed", "error", err)
		return
	}
	defer tx.Rollback()

	for _, m := range memories {
		if _, err := tx.ExecContext(ctx,
			`UPDATE arbor_memories SET accessed_at = ?, access_count = access_count + 1 WHERE id = ?`,
			ts, m.ID); err != nil {
			s.log.Warn("mark accessed failed", "memory", m.ID, "error", err)
			return
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memory_access_log (memory_id, accessed_at, context, conversation_id) VALUES (?, ?, ?, ?)`,
			m.ID, ts, accessContext, conversationID); err != nil {
			s.log.Warn("access log write failed", "memory", m.ID, "error", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		s.log.Warn("mark accessed commit failed", "error", err)
	}
}

var typeHeadings = map[model.MemoryType]string{
	model.MemoryInstruction:  "Instructions",
	model.MemoryPreference:   "Preferences",
	model.MemoryFact:         "Facts",
	model.MemorySkill:        "Skills",
	model.MemoryContext:      "Context",
	model.MemoryRelationship: "Relationships",
}

// minItemChars is the smallest truncated item worth emitting.
const minItemChars = 40

// formatContext renders the gathered set grouped by type in fixed
// priority order, each group sorted by descending confidence, greedily
// packed into the char budget. A group that overflows is truncated
// item-by-item rather than dropped wholesale.
func formatContext(memories []*model.ArborMemory, charBudget int) string {
	if len(memories) == 0 {
		return ""
	}

	groups := map[model.MemoryType][]*model.ArborMemory{}
	for _, m := range memories {
		groups[m.Type] = append(groups[m.Type], m)
	}

	var b strings.Builder
	b.WriteString("# Memory Context\n")

	for _, t := range model.ContextTypePriority {
		group := groups[t]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Confidence > group[j].Confidence
		})

		header := "\n## " + typeHeadings[t] + "\n"
		if b.Len()+len(header)+minItemChars > charBudget {
			break
		}
		b.WriteString(header)

		for _, m := range group {
			line := fmt.Sprintf("- [%.2f] %s\n", m.Confidence, m.DisplayText())
			remaining := charBudget - b.Len()
			if len(line) <= remaining {
				b.WriteString(line)
				continue
			}
			if remaining >= minItemChars {
				b.WriteString(line[:remaining-4] + "...\n")
			}
			return b.String()
		}
	}
	return b.String()
}

func computeStats(memories []*model.ArborMemory) ContextStats {
	st := ContextStats{
		TotalCount: len(memories),
		ByScope:    map[model.MemoryScope]int{},
		ByType:     map[model.MemoryType]int{},
	}
	if len(memories) == 0 {
		return st
	}
	sum := 0.0
	for _, m := range memories {
		st.ByScope[m.Scope]++
		st.ByType[m.Type]++
		sum += m.Confidence
	}
	st.AvgConfidence = sum / float64(len(memories))
	return st
}

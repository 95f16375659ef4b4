package memstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/arborapp/arbor-core/internal/model"
)

// SortKey selects the ordering column of a query.
type SortKey string

const (
	SortByConfidence  SortKey = "confidence"
	SortByAccessedAt  SortKey = "accessed_at"
	SortByCreatedAt   SortKey = "created_at"
	SortByAccessCount SortKey = "access_count"
)

// sortColumns whitelists sort keys against injection.
var sortColumns = map[SortKey]string{
	SortByConfidence:  "confidence",
	SortByAccessedAt:  "accessed_at",
	SortByCreatedAt:   "created_at",
	SortByAccessCount: "access_count",
}

// QueryFilter composes the WHERE clause of QueryMemories. An empty
// Privacy list excludes never_share; the zero filter matches everything
// else.
type QueryFilter struct {
	Scope         model.MemoryScope
	ScopeID       string
	Types         []model.MemoryType
	MinConfidence float64
	Privacy       []model.PrivacyLevel
	Tags          []string
	SortBy        SortKey
	Ascending     bool
	Limit         int
	Offset        int
}

// QueryMemories returns memories matching the filter. This is a read
// path: storage errors are logged and degrade to an empty result so the
// caller's UI stays available.
func (s *Store) QueryMemories(ctx context.Context, f QueryFilter) []*model.ArborMemory {
	where := []string{"1=1"}
	var args []interface{}

	if f.Scope != "" {
		where = append(where, "scope = ?")
		args = append(args, f.Scope)
	}
	if f.ScopeID != "" {
		where = append(where, "scope_id = ?")
		args = append(args, f.ScopeID)
	}
	if len(f.Types) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(f.Types)), ",")
		where = append(where, "type IN ("+ph+")")
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if f.MinConfidence > 0 {
		where = append(where, "confidence >= ?")
		args = append(args, f.MinConfidence)
	}
	if len(f.Privacy) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(f.Privacy)), ",")
		where = append(where, "privacy_level IN ("+ph+")")
		for _, p := range f.Privacy {
			args = append(args, p)
		}
	} else {
		where = append(where, "privacy_level != ?")
		args = append(args, model.PrivacyNeverShare)
	}
	for _, tag := range f.Tags {
		where = append(where, "tags LIKE ?")
		args = append(args, "%\""+tag+"\"%")
	}

	sortCol, ok := sortColumns[f.SortBy]
	if !ok {
		sortCol = "confidence"
	}
	order := "DESC"
	if f.Ascending {
		order = "ASC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(
		`SELECT `+memoryColumns+` FROM arbor_memories WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?`,
		strings.Join(where, " AND "), sortCol, order)
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log.Warn("query memories failed", "error", err)
		return nil
	}
	defer rows.Close()

	var memories []*model.ArborMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			s.log.Warn("scan memory failed", "error", err)
			return nil
		}
		memories = append(memories, m)
	}
	return memories
}

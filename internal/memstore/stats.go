package memstore

import (
	"context"

	"github.com/arborapp/arbor-core/internal/model"
)

// Stats aggregates the memory store. Read-only, no side effects.
type Stats struct {
	TotalMemories int                        `json:"total_memories"`
	ByScope       map[model.MemoryScope]int  `json:"by_scope"`
	ByType        map[model.MemoryType]int   `json:"by_type"`
	BySource      map[model.MemorySource]int `json:"by_source"`
	AvgConfidence float64                    `json:"avg_confidence"`
	TotalAccesses int                        `json:"total_accesses"`
	CompactedRows int                        `json:"compacted_rows"`
}

// GetStats returns aggregate counts and averages. Read path: errors are
// logged and the partial zero-value result is returned.
func (s *Store) GetStats(ctx context.Context) *Stats {
	st := &Stats{
		ByScope:  map[model.MemoryScope]int{},
		ByType:   map[model.MemoryType]int{},
		BySource: map[model.MemorySource]int{},
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0), COALESCE(SUM(access_count), 0) FROM arbor_memories`).
		Scan(&st.TotalMemories, &st.AvgConfidence, &st.TotalAccesses); err != nil {
		s.log.Warn("stats query failed", "error", err)
		return st
	}
	s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM arbor_memories WHERE compacted_at IS NOT NULL`).Scan(&st.CompactedRows)

	groupCount := func(query string, assign func(key string, n int)) {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			s.log.Warn("stats group query failed", "error", err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err == nil {
				assign(key, n)
			}
		}
	}

	groupCount(`SELECT scope, COUNT(*) FROM arbor_memories GROUP BY scope`,
		func(k string, n int) { st.ByScope[model.MemoryScope(k)] = n })
	groupCount(`SELECT type, COUNT(*) FROM arbor_memories GROUP BY type`,
		func(k string, n int) { st.ByType[model.MemoryType(k)] = n })
	groupCount(`SELECT source, COUNT(*) FROM arbor_memories GROUP BY source`,
		func(k string, n int) { st.BySource[model.MemorySource(k)] = n })

	return st
}

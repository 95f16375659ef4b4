package memstore

import (
	"context"
	"strings"

	"github.com/arborapp/arbor-core/internal/model"
)

// SearchMemories finds memories matching the text. The FTS5 index over
// content, summary, and tags is the primary path; if it is unavailable or
// errors the search degrades to a case-insensitive substring scan ordered
// by recency. never_share memories are excluded from both paths.
func (s *Store) SearchMemories(ctx context.Context, text string, limit int) []*model.ArborMemory {
	if limit <= 0 {
		limit = 20
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if memories, err := s.searchFTS(ctx, text, limit); err == nil {
		return memories
	} else {
		s.log.Warn("fts search failed, falling back to substring scan", "error", err)
	}
	return s.searchSubstring(ctx, text, limit)
}

func (s *Store) searchFTS(ctx context.Context, text string, limit int) ([]*model.ArborMemory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixedMemoryColumns("m")+`
		 FROM arbor_memories m
		 JOIN memories_fts f ON f.rowid = m.rowid
		 WHERE memories_fts MATCH ? AND m.privacy_level != ?
		 ORDER BY rank LIMIT ?`,
		ftsQuery(text), model.PrivacyNeverShare, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []*model.ArborMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (s *Store) searchSubstring(ctx context.Context, text string, limit int) []*model.ArborMemory {
	pattern := "%" + text + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM arbor_memories
		 WHERE privacy_level != ? AND (content LIKE ? OR summary LIKE ?)
		 ORDER BY created_at DESC LIMIT ?`,
		model.PrivacyNeverShare, pattern, pattern, limit)
	if err != nil {
		s.log.Warn("substring search failed", "error", err)
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

// ftsQuery quotes each token so user input cannot inject FTS5 operators.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, ``)+`"`)
	}
	return strings.Join(quoted, " ")
}

func prefixedMemoryColumns(alias string) string {
	cols := strings.Split(memoryColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

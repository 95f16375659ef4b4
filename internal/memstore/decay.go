package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/arborapp/arbor-core/internal/model"
)

// DecayResult reports one decay pass.
type DecayResult struct {
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// RunDecay reduces confidence on memories idle past the decay threshold,
// then permanently deletes memories whose confidence fell below the
// delete floor and whose last access is older than the delete-age
// threshold. The two passes are independent. always_include and sensitive
// memories are exempt from both; the predicates are monotonic, so
// overlapping runs are harmless.
func (s *Store) RunDecay(ctx context.Context) (*DecayResult, error) {
	now := time.Now().UTC()
	res := &DecayResult{}

	decayCutoff := now.Add(-s.decayAfter).Format(time.RFC3339)
	upd, err := s.db.ExecContext(ctx,
		`UPDATE arbor_memories
		 SET confidence = MAX(0.0, confidence - decay_rate * 0.01), updated_at = ?
		 WHERE accessed_at < ? AND privacy_level NOT IN (?, ?)`,
		now.Format(time.RFC3339), decayCutoff,
		model.PrivacyAlwaysInclude, model.PrivacySensitive)
	if err != nil {
		return nil, fmt.Errorf("decay pass: %w", err)
	}
	n, _ := upd.RowsAffected()
	res.Updated = int(n)

	deleteCutoff := now.Add(-s.deleteAfter).Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memory_access_log WHERE memory_id IN (
			SELECT id FROM arbor_memories
			WHERE confidence < ? AND accessed_at < ? AND privacy_level NOT IN (?, ?))`,
		s.deleteBelow, deleteCutoff,
		model.PrivacyAlwaysInclude, model.PrivacySensitive); err != nil {
		return nil, fmt.Errorf("delete pass access log: %w", err)
	}
	del, err := tx.ExecContext(ctx,
		`DELETE FROM arbor_memories
		 WHERE confidence < ? AND accessed_at < ? AND privacy_level NOT IN (?, ?)`,
		s.deleteBelow, deleteCutoff,
		model.PrivacyAlwaysInclude, model.PrivacySensitive)
	if err != nil {
		return nil, fmt.Errorf("delete pass: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	n, _ = del.RowsAffected()
	res.Deleted = int(n)

	if res.Updated > 0 || res.Deleted > 0 {
		s.log.Info("decay pass complete", "updated", res.Updated, "deleted", res.Deleted)
	}
	return res, nil
}

// GetCompactionCandidates returns old, long, never-compacted context and
// fact memories, least-recently-accessed first, flagged for external
// summarization. Read path: errors degrade to an empty result.
func (s *Store) GetCompactionCandidates(ctx context.Context, limit int) []*model.ArborMemory {
	if limit <= 0 {
		limit = 20
	}
	cutoff := time.Now().UTC().Add(-s.compactAfter).Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM arbor_memories
		 WHERE type IN (?, ?) AND compacted_at IS NULL
		   AND created_at < ? AND LENGTH(content) > ?
		 ORDER BY accessed_at ASC LIMIT ?`,
		model.MemoryContext, model.MemoryFact, cutoff, s.compactMinChars, limit)
	if err != nil {
		s.log.Warn("compaction candidates query failed", "error", err)
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

// ApplyCompaction records a summary for a memory. The original content is
// retained: compaction augments the record, it does not replace it.
func (s *Store) ApplyCompaction(ctx context.Context, memoryID, summary string) error {
	if summary == "" {
		return fmt.Errorf("summary is required")
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE arbor_memories SET summary = ?, compacted_at = ?, updated_at = ? WHERE id = ?`,
		summary, ts, ts, memoryID)
	if err != nil {
		return fmt.Errorf("apply compaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrMemoryNotFound, memoryID)
	}
	return nil
}

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arborapp/arbor-core/internal/bus"
	"github.com/arborapp/arbor-core/internal/model"
)

const entryColumns = `id, session_id, sequence_num, entry_type, timestamp, content, token_estimate, importance`

// LogEntry durably appends one entry to a session's journal. The sequence
// number is assigned and the row inserted in a single statement inside one
// transaction, so it stays strictly increasing and gap-free under
// concurrent writers. Subscribers are notified only after commit; a failed
// notification never rolls back the write.
func (s *Store) LogEntry(ctx context.Context, sessionID string, content model.EntryContent, importance model.Importance) (*model.WorkEntry, error) {
	if content == nil {
		return nil, fmt.Errorf("entry content is required")
	}
	if importance == "" {
		importance = model.ImportanceNormal
	}
	if !model.ValidImportances[importance] {
		return nil, fmt.Errorf("invalid importance %q", importance)
	}

	raw, err := model.MarshalContent(content)
	if err != nil {
		return nil, err
	}
	tokens := estimateTokens(len(raw))
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status model.SessionStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM work_sessions WHERE id = ?`, sessionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO work_entries (session_id, sequence_num, entry_type, timestamp, content, token_estimate, importance)
		 SELECT ?, COALESCE(MAX(sequence_num), 0) + 1, ?, ?, ?, ?, ?
		 FROM work_entries WHERE session_id = ?`,
		sessionID, content.EntryType(), ts, raw, tokens, importance, sessionID)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	var id, seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, sequence_num FROM work_entries WHERE rowid = last_insert_rowid()`).Scan(&id, &seq)
	if err != nil {
		return nil, fmt.Errorf("read inserted entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE work_sessions SET token_estimate = token_estimate + ?, entry_count = entry_count + 1, updated_at = ? WHERE id = ?`,
		tokens, ts, sessionID)
	if err != nil {
		return nil, fmt.Errorf("update session stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	entry := &model.WorkEntry{
		ID:            id,
		SessionID:     sessionID,
		SequenceNum:   seq,
		Type:          content.EntryType(),
		Timestamp:     now,
		Content:       content,
		TokenEstimate: tokens,
		Importance:    importance,
	}

	s.bus.PublishEntry(bus.EntryEvent{SessionID: sessionID, Entry: entry})
	s.maybeAutoCheckpoint(sessionID, content.EntryType())

	return entry, nil
}

// EntryFilter narrows a GetEntries read. Since is exclusive: only entries
// with sequence_num > Since are returned.
type EntryFilter struct {
	Since      int64
	Limit      int
	Importance []model.Importance
	Types      []model.EntryType
}

// GetEntries returns a session's entries ordered by sequence number
// ascending.
func (s *Store) GetEntries(ctx context.Context, sessionID string, f EntryFilter) ([]*model.WorkEntry, error) {
	where := []string{"session_id = ?"}
	args := []interface{}{sessionID}

	if f.Since > 0 {
		where = append(where, "sequence_num > ?")
		args = append(args, f.Since)
	}
	if len(f.Importance) > 0 {
		where = append(where, "importance IN ("+placeholders(len(f.Importance))+")")
		for _, imp := range f.Importance {
			args = append(args, imp)
		}
	}
	if len(f.Types) > 0 {
		where = append(where, "entry_type IN ("+placeholders(len(f.Types))+")")
		for _, t := range f.Types {
			args = append(args, t)
		}
	}

	query := `SELECT ` + entryColumns + ` FROM work_entries WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY sequence_num ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.WorkEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

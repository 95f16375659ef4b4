package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arborapp/arbor-core/internal/bus"
	"github.com/arborapp/arbor-core/internal/model"
)

const sessionColumns = `id, conversation_id, original_prompt, status, created_at, updated_at, completed_at, token_estimate, entry_count`

// CreateSession starts a new active session for a conversation.
func (s *Store) CreateSession(ctx context.Context, conversationID, originalPrompt string) (*model.WorkSession, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}

	now := time.Now().UTC()
	ws := &model.WorkSession{
		ID:             newID(),
		ConversationID: conversationID,
		OriginalPrompt: originalPrompt,
		Status:         model.SessionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO work_sessions (id, conversation_id, original_prompt, status, created_at, updated_at, token_estimate, entry_count)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0)`,
		ws.ID, ws.ConversationID, ws.OriginalPrompt, ws.Status,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return ws, nil
}

// GetSession loads a session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*model.WorkSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions WHERE id = ?`, sessionID)
	ws, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return ws, err
}

// ListSessions returns sessions most-recently-updated first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*model.WorkSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.WorkSession
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, ws)
	}
	return sessions, rows.Err()
}

// UpdateSessionStatus applies a status transition. Allowed moves:
// active<->paused, and active|paused -> completed|crashed. Terminal
// statuses have no outgoing transitions. completed_at is set only on
// entry into a terminal status.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status model.SessionStatus) error {
	if !model.ValidStatuses[status] {
		return fmt.Errorf("invalid status %q", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current model.SessionStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM work_sessions WHERE id = ?`, sessionID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return err
	}

	if model.TerminalStatuses[current] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if model.TerminalStatuses[status] {
		_, err = tx.ExecContext(ctx,
			`UPDATE work_sessions SET status = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
			status, now, now, sessionID)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE work_sessions SET status = ?, updated_at = ? WHERE id = ?`,
			status, now, sessionID)
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.bus.PublishStatus(bus.StatusEvent{SessionID: sessionID, Status: status})
	return nil
}

// GetResumableSessions returns paused and crashed sessions,
// most-recently-updated first.
func (s *Store) GetResumableSessions(ctx context.Context, limit int) ([]*model.WorkSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions
		 WHERE status IN (?, ?)
		 ORDER BY updated_at DESC LIMIT ?`,
		model.SessionPaused, model.SessionCrashed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.WorkSession
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, ws)
	}
	return sessions, rows.Err()
}

// CleanupOldSessions deletes sessions past the retention window that are
// in a terminal status, with their entries and checkpoints. Active and
// paused sessions survive regardless of age. Returns the number of
// sessions deleted.
func (s *Store) CleanupOldSessions(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.retention).Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	where := `SELECT id FROM work_sessions WHERE status IN (?, ?) AND updated_at < ?`
	args := []interface{}{model.SessionCompleted, model.SessionCrashed, cutoff}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM work_entries WHERE session_id IN (`+where+`)`, args...); err != nil {
		return 0, fmt.Errorf("cleanup entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM work_checkpoints WHERE session_id IN (`+where+`)`, args...); err != nil {
		return 0, fmt.Errorf("cleanup checkpoints: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM work_sessions WHERE status IN (?, ?) AND updated_at < ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arborapp/arbor-core/internal/model"
	"github.com/arborapp/arbor-core/internal/summarize"
)

// CheckpointOptions controls a checkpoint pass.
type CheckpointOptions struct {
	Manual       bool
	TargetTokens int  // summary budget, default 1024
	DisableAI    bool // force the heuristic summarizer
}

// CreateCheckpoint summarizes the session's full entry log and persists
// the result. Gateway errors never fail the operation: the deterministic
// heuristic takes over. The checkpoint is also appended to the journal as
// a checkpoint-typed entry so the log stays complete and replayable. The
// summarizer is never invoked while a storage transaction is open.
func (s *Store) CreateCheckpoint(ctx context.Context, sessionID string, opts CheckpointOptions) (*model.WorkCheckpoint, error) {
	targetTokens := opts.TargetTokens
	if targetTokens <= 0 {
		targetTokens = 1024
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := s.GetEntries(ctx, sessionID, EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	summarizer := s.summarizer
	if opts.DisableAI {
		summarizer = summarize.Heuristic{}
	}

	res, err := summarizer.Summarize(ctx, session, entries, targetTokens)
	if err != nil {
		s.log.Warn("summarizer failed, using heuristic", "session", sessionID, "error", err)
		res, _ = summarize.Heuristic{}.Summarize(ctx, session, entries, targetTokens)
	}

	cp := &model.WorkCheckpoint{
		ID:             newID(),
		SessionID:      sessionID,
		CreatedAt:      time.Now().UTC(),
		Summary:        res.Summary,
		KeyDecisions:   res.KeyDecisions,
		CurrentState:   res.CurrentState,
		FilesModified:  res.FilesModified,
		PendingActions: res.SuggestedNextSteps,
	}

	decisions, _ := json.Marshal(cp.KeyDecisions)
	files, _ := json.Marshal(cp.FilesModified)
	pending, _ := json.Marshal(cp.PendingActions)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO work_checkpoints (id, session_id, created_at, summary, key_decisions, current_state, files_modified, pending_actions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.SessionID, cp.CreatedAt.Format(time.RFC3339),
		cp.Summary, string(decisions), cp.CurrentState, string(files), string(pending))
	if err != nil {
		return nil, fmt.Errorf("insert checkpoint: %w", err)
	}

	_, err = s.LogEntry(ctx, sessionID,
		model.CheckpointContent{CheckpointID: cp.ID, Summary: cp.Summary},
		model.ImportanceHigh)
	if err != nil {
		return nil, fmt.Errorf("append checkpoint entry: %w", err)
	}

	return cp, nil
}

// GetLatestCheckpoint returns the most recent checkpoint, or nil if the
// session has none.
func (s *Store) GetLatestCheckpoint(ctx context.Context, sessionID string) (*model.WorkCheckpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, created_at, summary, key_decisions, current_state, files_modified, pending_actions
		 FROM work_checkpoints WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT 1`, sessionID)

	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cp, err
}

func scanCheckpoint(row scanner) (*model.WorkCheckpoint, error) {
	var cp model.WorkCheckpoint
	var createdAt string
	var decisions, state, files, pending sql.NullString

	err := row.Scan(&cp.ID, &cp.SessionID, &createdAt, &cp.Summary, &decisions, &state, &files, &pending)
	if err != nil {
		return nil, err
	}

	cp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if decisions.Valid {
		json.Unmarshal([]byte(decisions.String), &cp.KeyDecisions)
	}
	if state.Valid {
		cp.CurrentState = state.String
	}
	if files.Valid {
		json.Unmarshal([]byte(files.String), &cp.FilesModified)
	}
	if pending.Valid {
		json.Unmarshal([]byte(pending.String), &cp.PendingActions)
	}
	return &cp, nil
}

// maybeAutoCheckpoint evaluates the auto-checkpoint policy after a
// committed entry write. Failures here are logged, never propagated to the
// logEntry caller.
func (s *Store) maybeAutoCheckpoint(sessionID string, justLogged model.EntryType) {
	if justLogged == model.EntryCheckpoint {
		return
	}

	var count, tokens int
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(token_estimate), 0) FROM work_entries
		 WHERE session_id = ?
		   AND sequence_num > COALESCE(
		       (SELECT MAX(sequence_num) FROM work_entries WHERE session_id = ? AND entry_type = ?), 0)`,
		sessionID, sessionID, model.EntryCheckpoint).Scan(&count, &tokens)
	if err != nil {
		s.log.Error("auto-checkpoint policy check failed", "session", sessionID, "error", err)
		return
	}

	if count < s.entryThreshold && tokens < s.tokenThreshold {
		return
	}
	s.scheduleCheckpoint(sessionID)
}

// scheduleCheckpoint runs an automatic checkpoint asynchronously. At most
// one is scheduled per session at a time; a scheduled-but-not-yet-run pass
// can be cancelled by session id, an in-flight one runs to completion.
func (s *Store) scheduleCheckpoint(sessionID string) {
	s.cpMu.Lock()
	if _, ok := s.pending[sessionID]; ok {
		s.cpMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.pending[sessionID] = cancel
	s.cpMu.Unlock()

	go func() {
		defer func() {
			s.cpMu.Lock()
			delete(s.pending, sessionID)
			s.cpMu.Unlock()
			cancel()
		}()

		if ctx.Err() != nil {
			return
		}
		if _, err := s.CreateCheckpoint(context.Background(), sessionID, CheckpointOptions{Manual: false}); err != nil {
			s.log.Error("auto-checkpoint failed", "session", sessionID, "error", err)
		}
	}()
}

// CancelScheduledCheckpoint cancels a pending automatic checkpoint for the
// session. Returns false if none was scheduled.
func (s *Store) CancelScheduledCheckpoint(sessionID string) bool {
	s.cpMu.Lock()
	defer s.cpMu.Unlock()
	cancel, ok := s.pending[sessionID]
	if ok {
		cancel()
		delete(s.pending, sessionID)
	}
	return ok
}

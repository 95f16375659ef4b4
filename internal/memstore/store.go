package memstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arborapp/arbor-core/internal/model"
)

// StoreRequest holds the fields of a memory to persist.
type StoreRequest struct {
	Content    string `validate:"required,min=3,max=10000"`
	Summary    string
	Type       model.MemoryType
	Scope      model.MemoryScope
	ScopeID    string
	Source     model.MemorySource
	Confidence float64 // 0 means default (0.8)
	Tags       []string
	DecayRate  float64 // 0 means default (0.1)
	Privacy    model.PrivacyLevel
	ExpiresAt  *time.Time
}

// StoreResult is the typed outcome of StoreMemory. Validation failures
// land in Error; only storage failures surface as a Go error.
type StoreResult struct {
	Success          bool   `json:"success"`
	MemoryID         string `json:"memory_id,omitempty"`
	Duplicate        bool   `json:"duplicate,omitempty"`
	ExistingMemoryID string `json:"existing_memory_id,omitempty"`
	Error            string `json:"error,omitempty"`
}

// StoreMemory persists a memory, deduplicating by normalized content
// within the same (scope, scope_id). A duplicate does not insert a second
// row: the original gets an access bump and a confidence boost of 0.05,
// clamped to 1.0.
func (s *Store) StoreMemory(ctx context.Context, req StoreRequest) (*StoreResult, error) {
	if req.Type == "" {
		req.Type = model.MemoryFact
	}
	if req.Scope == "" {
		req.Scope = model.ScopeGlobal
	}
	if req.Source == "" {
		req.Source = model.SourceAgentStored
	}
	if req.Privacy == "" {
		req.Privacy = model.PrivacyNormal
	}
	if req.Confidence == 0 {
		req.Confidence = 0.8
	}
	if req.DecayRate == 0 {
		req.DecayRate = 0.1
	}

	if err := s.validate.Struct(req); err != nil {
		return &StoreResult{Error: "invalid content: must be 3-10000 characters"}, nil
	}
	if !model.ValidMemoryTypes[req.Type] {
		return &StoreResult{Error: fmt.Sprintf("invalid memory type %q", req.Type)}, nil
	}
	if !model.ValidScopes[req.Scope] {
		return &StoreResult{Error: fmt.Sprintf("invalid scope %q", req.Scope)}, nil
	}
	if !model.ValidSources[req.Source] {
		return &StoreResult{Error: fmt.Sprintf("invalid source %q", req.Source)}, nil
	}
	if !model.ValidPrivacyLevels[req.Privacy] {
		return &StoreResult{Error: fmt.Sprintf("invalid privacy level %q", req.Privacy)}, nil
	}
	req.Confidence = model.ClampConfidence(req.Confidence)

	now := time.Now().UTC()
	ts := now.Format(time.RFC3339)
	normalized := strings.ToLower(strings.TrimSpace(req.Content))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM arbor_memories
		 WHERE scope = ? AND scope_id = ? AND LOWER(TRIM(content)) = ?
		 LIMIT 1`,
		req.Scope, req.ScopeID, normalized).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}

	if existingID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE arbor_memories
			 SET accessed_at = ?, updated_at = ?, access_count = access_count + 1,
			     confidence = MIN(1.0, confidence + 0.05)
			 WHERE id = ?`,
			ts, ts, existingID)
		if err != nil {
			return nil, fmt.Errorf("bump duplicate: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &StoreResult{Success: true, Duplicate: true, ExistingMemoryID: existingID, MemoryID: existingID}, nil
	}

	id := newID()
	var tagsJSON *string
	if len(req.Tags) > 0 {
		b, _ := json.Marshal(req.Tags)
		str := string(b)
		tagsJSON = &str
	}
	var summary *string
	if req.Summary != "" {
		summary = &req.Summary
	}
	var expiresAt *string
	if req.ExpiresAt != nil {
		str := req.ExpiresAt.UTC().Format(time.RFC3339)
		expiresAt = &str
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO arbor_memories (id, content, summary, type, scope, scope_id, source, confidence, tags,
		                             created_at, updated_at, accessed_at, access_count, decay_rate, expires_at, privacy_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		id, req.Content, summary, req.Type, req.Scope, req.ScopeID, req.Source,
		req.Confidence, tagsJSON, ts, ts, ts, req.DecayRate, expiresAt, req.Privacy)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &StoreResult{Success: true, MemoryID: id}, nil
}

// GetMemory loads one memory by id. This is the only read path allowed to
// return a never_share memory, because the caller named it explicitly.
func (s *Store) GetMemory(ctx context.Context, id string) (*model.ArborMemory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM arbor_memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMemoryNotFound, id)
	}
	return m, err
}

// DeleteMemory permanently removes a memory and its access log rows.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_access_log WHERE memory_id = ?`, id); err != nil {
		return fmt.Errorf("delete access log: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM arbor_memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrMemoryNotFound, id)
	}
	return tx.Commit()
}

// ClearAll removes every memory and access log row.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_access_log`); err != nil {
		return fmt.Errorf("clear access log: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM arbor_memories`); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	return tx.Commit()
}

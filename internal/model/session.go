// Package model defines the core journal and memory data types.
package model

import "time"

// SessionStatus is the lifecycle state of a work session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionCrashed   SessionStatus = "crashed"
)

// ValidStatuses are the allowed session statuses.
var ValidStatuses = map[SessionStatus]bool{
	SessionActive:    true,
	SessionPaused:    true,
	SessionCompleted: true,
	SessionCrashed:   true,
}

// TerminalStatuses are statuses with no outgoing transitions.
var TerminalStatuses = map[SessionStatus]bool{
	SessionCompleted: true,
	SessionCrashed:   true,
}

// Importance is the priority level of a journal entry.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceNormal   Importance = "normal"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// ValidImportances are the allowed importance levels.
var ValidImportances = map[Importance]bool{
	ImportanceLow:      true,
	ImportanceNormal:   true,
	ImportanceHigh:     true,
	ImportanceCritical: true,
}

// WorkSession tracks one autonomous agent run tied to a conversation.
type WorkSession struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	OriginalPrompt string        `json:"original_prompt"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	TokenEstimate  int           `json:"token_estimate"`
	EntryCount     int           `json:"entry_count"`
}

// WorkEntry is one immutable, append-only journal record. SequenceNum is
// unique and strictly increasing within a session.
type WorkEntry struct {
	ID            int64        `json:"id"`
	SessionID     string       `json:"session_id"`
	SequenceNum   int64        `json:"sequence_num"`
	Type          EntryType    `json:"entry_type"`
	Timestamp     time.Time    `json:"timestamp"`
	Content       EntryContent `json:"content"`
	TokenEstimate int          `json:"token_estimate"`
	Importance    Importance   `json:"importance"`
}

// WorkCheckpoint is a point-in-time summary of a session, persisted for
// resumption without replaying the full entry log.
type WorkCheckpoint struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	Summary        string    `json:"summary"`
	KeyDecisions   []string  `json:"key_decisions,omitempty"`
	CurrentState   string    `json:"current_state"`
	FilesModified  []string  `json:"files_modified,omitempty"`
	PendingActions []string  `json:"pending_actions,omitempty"`
}

// ResumptionContext is the payload injected into a fresh LLM context window
// when an agent resumes a paused or crashed session.
type ResumptionContext struct {
	SessionID      string   `json:"session_id"`
	Text           string   `json:"text"`
	TokenEstimate  int      `json:"token_estimate"`
	KeyDecisions   []string `json:"key_decisions,omitempty"`
	FilesTouched   []string `json:"files_touched,omitempty"`
	RecentErrors   []string `json:"recent_errors,omitempty"`
	CurrentState   string   `json:"current_state"`
	PendingActions []string `json:"pending_actions,omitempty"`
}

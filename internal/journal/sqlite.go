// Package journal implements the append-only work journal: sessions,
// entries, checkpoints, and resumption context, backed by SQLite.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/arborapp/arbor-core/internal/bus"
	"github.com/arborapp/arbor-core/internal/model"
	"github.com/arborapp/arbor-core/internal/summarize"
)

// Sentinel errors callers can match on.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the session journal. One instance per process, constructed once
// and passed by reference to consumers.
type Store struct {
	db         *sql.DB
	bus        *bus.Bus
	summarizer summarize.Summarizer
	log        *slog.Logger

	entryThreshold int
	tokenThreshold int
	retention      time.Duration

	cpMu    sync.Mutex
	pending map[string]context.CancelFunc
}

// Options configures a Store. Zero values get defaults.
type Options struct {
	Bus            *bus.Bus
	Summarizer     summarize.Summarizer
	Logger         *slog.Logger
	EntryThreshold int           // auto-checkpoint after this many entries (default 50)
	TokenThreshold int           // or after this many tokens (default 8000)
	Retention      time.Duration // terminal-session retention (default 90 days)
}

// Open opens or creates the journal database at the given path.
func Open(dbPath string, opts Options) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	// _txlock=immediate makes write transactions take the lock up front,
	// so concurrent LogEntry calls serialize on busy_timeout instead of
	// failing with a stale snapshot.
	db, err := sql.Open("sqlite", dbPath+"?_txlock=immediate&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:             db,
		bus:            opts.Bus,
		summarizer:     opts.Summarizer,
		log:            opts.Logger,
		entryThreshold: opts.EntryThreshold,
		tokenThreshold: opts.TokenThreshold,
		retention:      opts.Retention,
		pending:        make(map[string]context.CancelFunc),
	}
	if s.bus == nil {
		s.bus = bus.New(opts.Logger)
	}
	if s.summarizer == nil {
		s.summarizer = summarize.Heuristic{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.entryThreshold <= 0 {
		s.entryThreshold = 50
	}
	if s.tokenThreshold <= 0 {
		s.tokenThreshold = 8000
	}
	if s.retention <= 0 {
		s.retention = 90 * 24 * time.Hour
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS work_sessions (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		original_prompt TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'active',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL,
		completed_at    TEXT,
		token_estimate  INTEGER NOT NULL DEFAULT 0,
		entry_count     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_conversation ON work_sessions(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON work_sessions(status, updated_at DESC);

	CREATE TABLE IF NOT EXISTS work_entries (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id     TEXT NOT NULL REFERENCES work_sessions(id),
		sequence_num   INTEGER NOT NULL,
		entry_type     TEXT NOT NULL,
		timestamp      TEXT NOT NULL,
		content        TEXT NOT NULL,
		token_estimate INTEGER NOT NULL DEFAULT 0,
		importance     TEXT NOT NULL DEFAULT 'normal',
		UNIQUE(session_id, sequence_num)
	);
	CREATE INDEX IF NOT EXISTS idx_entries_session_type ON work_entries(session_id, entry_type);

	CREATE TABLE IF NOT EXISTS work_checkpoints (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL REFERENCES work_sessions(id),
		created_at      TEXT NOT NULL,
		summary         TEXT NOT NULL,
		key_decisions   TEXT,
		current_state   TEXT,
		files_modified  TEXT,
		pending_actions TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON work_checkpoints(session_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Bus returns the event bus entries and status changes publish to.
func (s *Store) Bus() *bus.Bus {
	return s.bus
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func newID() string {
	return ulid.Make().String()
}

// estimateTokens approximates token count from serialized length (1 token
// per 4 chars).
func estimateTokens(chars int) int {
	return (chars + 3) / 4
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*model.WorkSession, error) {
	var ws model.WorkSession
	var createdAt, updatedAt string
	var completedAt sql.NullString

	err := row.Scan(
		&ws.ID, &ws.ConversationID, &ws.OriginalPrompt, &ws.Status,
		&createdAt, &updatedAt, &completedAt, &ws.TokenEstimate, &ws.EntryCount,
	)
	if err != nil {
		return nil, err
	}

	ws.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	ws.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		ws.CompletedAt = &t
	}
	return &ws, nil
}

func scanEntry(row scanner) (*model.WorkEntry, error) {
	var e model.WorkEntry
	var timestamp string
	var content []byte

	err := row.Scan(
		&e.ID, &e.SessionID, &e.SequenceNum, &e.Type,
		&timestamp, &content, &e.TokenEstimate, &e.Importance,
	)
	if err != nil {
		return nil, err
	}

	e.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
	c, err := model.UnmarshalContent(e.Type, content)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", e.ID, err)
	}
	e.Content = c
	return &e, nil
}

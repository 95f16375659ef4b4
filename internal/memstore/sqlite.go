// Package memstore implements the scoped memory store: typed, scoped,
// confidence-weighted memories with layered retrieval, decay, compaction,
// and full-text search, backed by SQLite.
package memstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/arborapp/arbor-core/internal/model"
)

// ErrMemoryNotFound is returned for reads of an unknown memory id.
var ErrMemoryNotFound = errors.New("memory not found")

// Store is the scoped memory store. One instance per process, constructed
// once and passed by reference to consumers.
type Store struct {
	db       *sql.DB
	log      *slog.Logger
	validate *validator.Validate

	decayAfter      time.Duration
	deleteBelow     float64
	deleteAfter     time.Duration
	compactAfter    time.Duration
	compactMinChars int
}

// Options configures a Store. Zero values get defaults.
type Options struct {
	Logger          *slog.Logger
	DecayAfter      time.Duration // idle time before decay applies (default 24h)
	DeleteBelow     float64       // confidence floor for deletion (default 0.15)
	DeleteAfter     time.Duration // idle time before deletion applies (default 7 days)
	CompactAfter    time.Duration // age before compaction eligibility (default 30 days)
	CompactMinChars int           // minimum content length for compaction (default 200)
}

// Open opens or creates the memory database at the given path.
func Open(dbPath string, opts Options) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_txlock=immediate&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:              db,
		log:             opts.Logger,
		validate:        validator.New(),
		decayAfter:      opts.DecayAfter,
		deleteBelow:     opts.DeleteBelow,
		deleteAfter:     opts.DeleteAfter,
		compactAfter:    opts.CompactAfter,
		compactMinChars: opts.CompactMinChars,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.decayAfter <= 0 {
		s.decayAfter = 24 * time.Hour
	}
	if s.deleteBelow <= 0 {
		s.deleteBelow = 0.15
	}
	if s.deleteAfter <= 0 {
		s.deleteAfter = 7 * 24 * time.Hour
	}
	if s.compactAfter <= 0 {
		s.compactAfter = 30 * 24 * time.Hour
	}
	if s.compactMinChars <= 0 {
		s.compactMinChars = 200
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS arbor_memories (
		id            TEXT PRIMARY KEY,
		content       TEXT NOT NULL,
		summary       TEXT,
		type          TEXT NOT NULL,
		scope         TEXT NOT NULL,
		scope_id      TEXT NOT NULL DEFAULT '',
		source        TEXT NOT NULL DEFAULT 'agent_stored',
		confidence    REAL NOT NULL DEFAULT 0.8,
		tags          TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		accessed_at   TEXT NOT NULL,
		access_count  INTEGER NOT NULL DEFAULT 0,
		decay_rate    REAL NOT NULL DEFAULT 0.1,
		compacted_at  TEXT,
		expires_at    TEXT,
		privacy_level TEXT NOT NULL DEFAULT 'normal'
	);
	CREATE INDEX IF NOT EXISTS idx_memories_scope ON arbor_memories(scope, scope_id);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON arbor_memories(type);
	CREATE INDEX IF NOT EXISTS idx_memories_privacy ON arbor_memories(privacy_level);
	CREATE INDEX IF NOT EXISTS idx_memories_accessed ON arbor_memories(accessed_at DESC);

	CREATE TABLE IF NOT EXISTS memory_access_log (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		memory_id       TEXT NOT NULL REFERENCES arbor_memories(id),
		accessed_at     TEXT NOT NULL,
		context         TEXT,
		conversation_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_access_log_memory ON memory_access_log(memory_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		content,
		summary,
		tags,
		content=arbor_memories,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 sync triggers
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON arbor_memories BEGIN
		INSERT INTO memories_fts(rowid, content, summary, tags) VALUES (new.rowid, new.content, new.summary, new.tags);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON arbor_memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content, summary, tags) VALUES('delete', old.rowid, old.content, old.summary, old.tags);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON arbor_memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content, summary, tags) VALUES('delete', old.rowid, old.content, old.summary, old.tags);
		INSERT INTO memories_fts(rowid, content, summary, tags) VALUES (new.rowid, new.content, new.summary, new.tags);
	END`)

	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func newID() string {
	return ulid.Make().String()
}

const memoryColumns = `id, content, summary, type, scope, scope_id, source, confidence, tags, created_at, updated_at, accessed_at, access_count, decay_rate, compacted_at, expires_at, privacy_level`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (*model.ArborMemory, error) {
	var m model.ArborMemory
	var summary, tagsJSON, compactedAt, expiresAt sql.NullString
	var createdAt, updatedAt, accessedAt string

	err := row.Scan(
		&m.ID, &m.Content, &summary, &m.Type, &m.Scope, &m.ScopeID, &m.Source,
		&m.Confidence, &tagsJSON, &createdAt, &updatedAt, &accessedAt,
		&m.AccessCount, &m.DecayRate, &compactedAt, &expiresAt, &m.Privacy,
	)
	if err != nil {
		return nil, err
	}

	if summary.Valid {
		m.Summary = summary.String
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	m.AccessedAt, _ = time.Parse(time.RFC3339, accessedAt)
	if compactedAt.Valid {
		t, _ := time.Parse(time.RFC3339, compactedAt.String)
		m.CompactedAt = &t
	}
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		m.ExpiresAt = &t
	}
	return &m, nil
}

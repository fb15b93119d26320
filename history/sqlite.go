// Package history keeps a local log of answered questions in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/spektr-org/paylens/engine"
)

// DefaultLimit is how many entries List returns when no limit is given.
const DefaultLimit = 20

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one answered question. Rows are not stored, only their count.
type Entry struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"sessionId"`
	Source         string      `json:"source"`
	Question       string      `json:"question"`
	ModeRequested  engine.Mode `json:"modeRequested"`
	ModeUsed       engine.Mode `json:"modeUsed"`
	AnswerText     string      `json:"answerText"`
	Trace          string      `json:"trace"`
	FallbackReason string      `json:"fallbackReason,omitempty"`
	RowCount       int         `json:"rowCount"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// ListParams filters List.
type ListParams struct {
	Limit     int    // <= 0 means DefaultLimit
	SessionID string // empty means all sessions
}

// Store is a SQLite-backed history log.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens or creates the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS queries (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL,
		source          TEXT NOT NULL DEFAULT '',
		question        TEXT NOT NULL,
		mode_requested  TEXT NOT NULL,
		mode_used       TEXT NOT NULL,
		answer_text     TEXT NOT NULL,
		trace           TEXT NOT NULL,
		fallback_reason TEXT,
		row_count       INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queries_session ON queries(session_id);
	`)
	return err
}

// Record stores e, assigning ID and CreatedAt, and returns the stored entry.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	e.CreatedAt = time.Now().UTC()
	e.ID = s.newID(e.CreatedAt)

	var fallback *string
	if e.FallbackReason != "" {
		fallback = &e.FallbackReason
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (id, session_id, source, question, mode_requested, mode_used, answer_text, trace, fallback_reason, row_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Source, e.Question, string(e.ModeRequested), string(e.ModeUsed),
		e.AnswerText, e.Trace, fallback, e.RowCount, e.CreatedAt.Format(timeLayout))
	if err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	return e, nil
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, p ListParams) ([]Entry, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, session_id, source, question, mode_requested, mode_used, answer_text, trace, fallback_reason, row_count, created_at
		FROM queries`
	var args []any
	if p.SessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, p.SessionID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e               Entry
			requested, used string
			fallback        sql.NullString
			createdAt       string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Source, &e.Question, &requested, &used,
			&e.AnswerText, &e.Trace, &fallback, &e.RowCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.ModeRequested = engine.Mode(requested)
		e.ModeUsed = engine.Mode(used)
		e.FallbackReason = fallback.String
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

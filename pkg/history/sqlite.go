package history

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

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	started_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	source TEXT NOT NULL,
	status TEXT NOT NULL,
	error_kind TEXT,
	error_code TEXT,
	error_message TEXT,
	calls INTEGER NOT NULL DEFAULT 0,
	output_digest TEXT
);

CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
`

const selectColumns = `id, started_at, duration_ms, source, status,
	error_kind, error_code, error_message, calls, output_digest`

// SQLiteConfig configures the SQLite history store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewSQLiteStore opens (or creates) the history database.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:     db,
		path:   cfg.Path,
		logger: slog.Default().With("component", "history.sqlite"),
	}

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds()),
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize history database: %w", err)
		}
	}

	s.logger.Debug("history store opened", "path", cfg.Path)
	return s, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("history entry ID cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (
			id, started_at, duration_ms, source, status,
			error_kind, error_code, error_message, calls, output_digest
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StartedAt.UnixNano(), e.Duration.Milliseconds(), e.Source, e.Status,
		nullable(e.ErrorKind), nullable(e.ErrorCode), nullable(e.ErrorMessage),
		e.Calls, nullable(e.OutputDigest),
	)
	if err != nil {
		return fmt.Errorf("failed to record build %s: %w", e.ID, err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM builds ORDER BY started_at DESC, seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM builds WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Prune implements Store.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM builds WHERE started_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune builds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned build history", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                           Entry
		startedAt, durationMs       int64
		kind, code, message, digest sql.NullString
	)
	err := row.Scan(&e.ID, &startedAt, &durationMs, &e.Source, &e.Status,
		&kind, &code, &message, &e.Calls, &digest)
	if err != nil {
		return nil, err
	}
	e.StartedAt = time.Unix(0, startedAt)
	e.Duration = time.Duration(durationMs) * time.Millisecond
	e.ErrorKind = kind.String
	e.ErrorCode = code.String
	e.ErrorMessage = message.String
	e.OutputDigest = digest.String
	return &e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package world

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"underway-hq/underway/pkg/document"
	"underway-hq/underway/pkg/topology"
)

// SQLiteSource keeps documents as rows of a SQLite table. The body of each
// row is stored in its original serialization and decoded on Load.
type SQLiteSource struct {
	db        *sql.DB
	path      string
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewSQLiteSource opens (or creates) the document database at path.
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteSource{
		db:     db,
		path:   path,
		logger: slog.Default().With("component", "world.sqlite"),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSource) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		format TEXT NOT NULL,
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Name implements Source.
func (s *SQLiteSource) Name() string {
	return "sqlite:" + s.path
}

// Put stores a document, replacing any existing row with the same name.
// The body must decode in the given format.
func (s *SQLiteSource) Put(ctx context.Context, name string, format document.Format, body []byte) error {
	if name == "" {
		return fmt.Errorf("document name cannot be empty")
	}
	if _, err := document.Decode(body, format); err != nil {
		return fmt.Errorf("document %q is not valid %s: %w", name, format, err)
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO documents (name, format, body, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		format = excluded.format,
		body = excluded.body,
		updated_at = excluded.updated_at`,
		name, string(format), string(body), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store document %q: %w", name, err)
	}

	s.logger.Debug("document stored", "name", name, "format", format, "bytes", len(body))
	return nil
}

// PutFile stores the contents of a document file found by DirSource.Files.
func (s *SQLiteSource) PutFile(ctx context.Context, f File) error {
	body, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	return s.Put(ctx, f.Name, f.Format, body)
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *SQLiteSource) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", name, err)
	}
	return nil
}

// Names lists stored document names in order.
func (s *SQLiteSource) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Load implements Source.
func (s *SQLiteSource) Load(ctx context.Context) (topology.World, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, format, body FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	w := make(topology.World)
	for rows.Next() {
		var name, format, body string
		if err := rows.Scan(&name, &format, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		n, err := document.Decode([]byte(body), document.Format(format))
		if err != nil {
			return nil, fmt.Errorf("failed to parse document %q: %w", name, err)
		}
		w[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("documents loaded", "path", s.path, "count", len(w))
	return w, nil
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

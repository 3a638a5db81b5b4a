package history

import (
	"context"
	"errors"
	"time"
)

// Build outcomes recorded in Entry.Status.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// Entry records the outcome of one build.
type Entry struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Source    string        `json:"source"`
	Status    string        `json:"status"`

	// ErrorKind and ErrorCode are set when the build failed with a compile
	// error. ErrorMessage is set for every failure.
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Calls is the number of compile steps the build took.
	Calls int `json:"calls"`

	// OutputDigest is the hex sha256 of the encoded output. Empty for
	// validation-only builds and failures.
	OutputDigest string `json:"output_digest,omitempty"`
}

// Succeeded reports whether the build succeeded.
func (e *Entry) Succeeded() bool {
	return e.Status == StatusSuccess
}

// Store persists build history. Implementations must be safe for
// concurrent use.
type Store interface {
	// Record appends an entry.
	Record(ctx context.Context, e Entry) error

	// List returns up to limit entries, newest first. A limit <= 0 returns
	// every entry.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Get returns the entry with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// Prune deletes entries that started before cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases resources held by the store.
	Close() error
}

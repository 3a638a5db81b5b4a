package world

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/document"
	"underway-hq/underway/pkg/topology"
)

// Source loads a World from storage.
type Source interface {
	// Name describes the source for logs and build history.
	Name() string

	// Load reads every document. Each call returns a fresh World.
	Load(ctx context.Context) (topology.World, error)
}

// Source types accepted by New.
const (
	TypeDir    = "dir"
	TypeGit    = "git"
	TypeSQLite = "sqlite"
)

// New creates the source described by cfg.
func New(cfg *config.SourceConfig) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source config cannot be nil")
	}
	switch cfg.Type {
	case TypeDir, "":
		return NewDirSource(cfg.Path, cfg.Extensions), nil
	case TypeGit:
		return NewGitSource(cfg.Path, cfg.Revision, cfg.Subdir, cfg.Extensions), nil
	case TypeSQLite:
		return NewSQLiteSource(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
}

// documentName maps a file name to a document name when its extension is
// accepted. Hidden files are skipped.
func documentName(file string, extensions []string) (string, bool) {
	base := filepath.Base(file)
	if strings.HasPrefix(base, ".") {
		return "", false
	}
	ext := filepath.Ext(base)
	if !slices.ContainsFunc(extensions, func(e string) bool { return strings.EqualFold(e, ext) }) {
		return "", false
	}
	if _, ok := document.FormatFromPath(base); !ok {
		return "", false
	}
	return strings.TrimSuffix(base, ext), true
}

func defaultExtensions(exts []string) []string {
	if len(exts) == 0 {
		return document.Extensions()
	}
	return exts
}

// addDocument stores n under name, rejecting a second document with the
// same name.
func addDocument(w topology.World, name, origin string, n topology.Node) error {
	if _, exists := w[name]; exists {
		return fmt.Errorf("duplicate document %q (from %s)", name, origin)
	}
	w[name] = n
	return nil
}

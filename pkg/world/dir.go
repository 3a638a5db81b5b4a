package world

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"underway-hq/underway/pkg/document"
	"underway-hq/underway/pkg/topology"
)

// DirSource loads one document per file in a directory. Subdirectories are
// not searched. The document name is the file name without its extension.
type DirSource struct {
	path       string
	extensions []string
	logger     *slog.Logger
}

// NewDirSource creates a directory source. An empty extension list accepts
// every format the document package understands.
func NewDirSource(path string, extensions []string) *DirSource {
	return &DirSource{
		path:       path,
		extensions: defaultExtensions(extensions),
		logger:     slog.Default().With("component", "world.dir"),
	}
}

// Name implements Source.
func (s *DirSource) Name() string {
	return "dir:" + s.path
}

// Path returns the directory being read.
func (s *DirSource) Path() string {
	return s.path
}

// Extensions returns the accepted file extensions.
func (s *DirSource) Extensions() []string {
	return s.extensions
}

// File is a document file found in a directory.
type File struct {
	Name   string
	Path   string
	Format document.Format
}

// Files lists the document files of the directory in file name order. Two files
// that map to the same document name are an error.
func (s *DirSource) Files() ([]File, error) {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory %q: %w", s.path, err)
	}

	var files []File
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := documentName(entry.Name(), s.extensions)
		if !ok {
			continue
		}
		path := filepath.Join(s.path, entry.Name())
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate document %q (from %s and %s)", name, prev, path)
		}
		seen[name] = path

		format, _ := document.FormatFromPath(path)
		files = append(files, File{Name: name, Path: path, Format: format})
	}
	return files, nil
}

// Load implements Source.
func (s *DirSource) Load(ctx context.Context) (topology.World, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	w := make(topology.World, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := document.ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		w[f.Name] = n
	}

	s.logger.Debug("documents loaded", "path", s.path, "count", len(w))
	return w, nil
}

package world

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"underway-hq/underway/pkg/document"
	"underway-hq/underway/pkg/topology"
)

// GitSource loads documents from a commit of a local git repository rather
// than from its working tree, so uncommitted edits are ignored.
type GitSource struct {
	repoPath   string
	revision   string
	subdir     string
	extensions []string
	logger     *slog.Logger

	mu         sync.RWMutex
	lastCommit string
}

// NewGitSource creates a git source. revision defaults to HEAD; subdir
// selects a directory inside the commit tree.
func NewGitSource(repoPath, revision, subdir string, extensions []string) *GitSource {
	if revision == "" {
		revision = "HEAD"
	}
	return &GitSource{
		repoPath:   repoPath,
		revision:   revision,
		subdir:     strings.Trim(path.Clean("/"+subdir), "/"),
		extensions: defaultExtensions(extensions),
		logger:     slog.Default().With("component", "world.git"),
	}
}

// Name implements Source.
func (s *GitSource) Name() string {
	return fmt.Sprintf("git:%s@%s", s.repoPath, s.revision)
}

// Commit returns the SHA of the commit read by the last successful Load.
func (s *GitSource) Commit() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCommit
}

// Load implements Source.
func (s *GitSource) Load(ctx context.Context) (topology.World, error) {
	repo, err := gogit.PlainOpenWithOptions(s.repoPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", s.repoPath, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(s.revision))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", s.revision, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get commit tree: %w", err)
	}
	if s.subdir != "" {
		tree, err = tree.Tree(s.subdir)
		if err != nil {
			return nil, fmt.Errorf("failed to find %q in commit %s: %w", s.subdir, hash.String()[:7], err)
		}
	}

	w := make(topology.World)
	for _, entry := range tree.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Mode.IsFile() {
			continue
		}
		name, ok := documentName(entry.Name, s.extensions)
		if !ok {
			continue
		}

		file, err := tree.TreeEntryFile(&entry)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", entry.Name, err)
		}
		n, err := decodeBlob(file)
		if err != nil {
			return nil, err
		}
		if err := addDocument(w, name, entry.Name, n); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.lastCommit = hash.String()
	s.mu.Unlock()

	s.logger.Debug("documents loaded",
		"repository", s.repoPath,
		"commit", hash.String(),
		"count", len(w),
	)
	return w, nil
}

func decodeBlob(file *object.File) (topology.Node, error) {
	format, _ := document.FormatFromPath(file.Name)

	r, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", file.Name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", file.Name, err)
	}
	n, err := document.Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %q: %w", file.Name, err)
	}
	return n, nil
}

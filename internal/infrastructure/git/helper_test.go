package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// testRepoHelper builds throwaway repositories for adapter tests.
type testRepoHelper struct {
	t       *testing.T
	repoDir string
	repo    *git.Repository
}

func newTestRepo(t *testing.T) *testRepoHelper {
	t.Helper()

	repoDir := t.TempDir()
	repo, err := git.PlainInit(repoDir, false)
	if err != nil {
		t.Fatalf("failed to init test repo: %v", err)
	}
	return &testRepoHelper{t: t, repoDir: repoDir, repo: repo}
}

func (h *testRepoHelper) writeFile(rel, content string) {
	h.t.Helper()
	path := filepath.Join(h.repoDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// commitFile writes rel and commits it with message.
func (h *testRepoHelper) commitFile(rel, content, message string) plumbing.Hash {
	h.t.Helper()

	h.writeFile(rel, content)
	wt, err := h.repo.Worktree()
	if err != nil {
		h.t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := wt.Add(rel); err != nil {
		h.t.Fatalf("failed to stage %s: %v", rel, err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Test Author", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		h.t.Fatalf("failed to commit: %v", err)
	}
	return hash
}

func (h *testRepoHelper) tag(name string) {
	h.t.Helper()
	head, err := h.repo.Head()
	if err != nil {
		h.t.Fatalf("failed to get HEAD: %v", err)
	}
	_, err = h.repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Message: "release " + name,
		Tagger:  &object.Signature{Name: "Test Tagger", Email: "tagger@example.com", When: time.Now()},
	})
	if err != nil {
		h.t.Fatalf("failed to create tag: %v", err)
	}
}

func (h *testRepoHelper) open(opts Options) *Repository {
	h.t.Helper()
	if opts.Path == "" {
		opts.Path = h.repoDir
	}
	if opts.AuthorName == "" {
		opts.AuthorName, opts.AuthorEmail = "Release Bot", "release@example.com"
	}
	r, err := Open(opts, log.New(os.Stderr))
	if err != nil {
		h.t.Fatalf("Open() error = %v", err)
	}
	return r
}

package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	apprelease "github.com/relicta-tech/crateship/internal/application/release"
	"github.com/relicta-tech/crateship/internal/config"
	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	"github.com/relicta-tech/crateship/internal/infrastructure/changelog"
	"github.com/relicta-tech/crateship/internal/infrastructure/git"
	"github.com/relicta-tech/crateship/internal/manifest"
)

const demoManifest = `[package]
name = "demo"
version = "0.1.0"
edition = "2021"
`

// memRepo is a file-backed repository fake: a file is modified when its
// contents differ from the last commit.
type memRepo struct {
	t         *testing.T
	root      string
	branch    string
	committed map[string]string
	staged    []string
	subjects  []string
	tags      map[string]bool
	pushed    bool
}

func newMemRepo(t *testing.T, root string) *memRepo {
	t.Helper()
	r := &memRepo{
		t:         t,
		root:      root,
		branch:    "main",
		committed: make(map[string]string),
		tags:      make(map[string]bool),
		subjects:  []string{"feat: first feature"},
	}
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(root, e.Name()))
		require.NoError(t, err)
		r.committed[e.Name()] = string(data)
	}
	return r
}

func (r *memRepo) CurrentBranch(context.Context) (string, error) { return r.branch, nil }

func (r *memRepo) StatusPorcelain(context.Context) (string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(r.root, e.Name()))
		if err != nil {
			return "", err
		}
		old, tracked := r.committed[e.Name()]
		switch {
		case !tracked:
			lines = append(lines, "?? "+e.Name())
		case old != string(data):
			lines = append(lines, " M "+e.Name())
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

func (r *memRepo) Stage(_ context.Context, paths ...string) error {
	r.staged = append(r.staged, paths...)
	return nil
}

func (r *memRepo) Commit(_ context.Context, message string) error {
	for _, p := range r.staged {
		data, err := os.ReadFile(filepath.Join(r.root, p))
		if err != nil {
			return err
		}
		r.committed[p] = string(data)
	}
	r.staged = nil
	r.subjects = append(r.subjects, message)
	r.pushed = false
	return nil
}

func (r *memRepo) CreateAnnotatedTag(_ context.Context, name, _ string) error {
	r.tags[name] = true
	return nil
}

func (r *memRepo) TagExists(_ context.Context, name string) (bool, error) { return r.tags[name], nil }

func (r *memRepo) HeadSubject(context.Context) (string, error) {
	return r.subjects[len(r.subjects)-1], nil
}

func (r *memRepo) PushBranch(context.Context) error {
	r.pushed = true
	return nil
}

func (r *memRepo) PushTags(context.Context) error { return nil }

func (r *memRepo) RemoteAtHead(context.Context) (bool, error) { return r.pushed, nil }

func (r *memRepo) Tags(context.Context) ([]string, error) {
	var names []string
	for n := range r.tags {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (r *memRepo) LatestReleaseTag(ctx context.Context) (string, error) {
	names, _ := r.Tags(ctx)
	return git.LatestReleaseTag(names), nil
}

func (r *memRepo) CommitsSince(context.Context, string) ([]git.Commit, error) {
	return []git.Commit{{Hash: "0123456789abcdef", Subject: "feat: first feature"}}, nil
}

type countingRegistry struct {
	calls int
	err   error
}

func (c *countingRegistry) Publish(context.Context) error {
	c.calls++
	return c.err
}

type answer ports.Decision

func (a answer) Decide(context.Context, ports.Summary) (ports.Decision, error) {
	return ports.Decision(a), nil
}

// cliHarness runs commands against a package in a temp directory.
type cliHarness struct {
	t        *testing.T
	dir      string
	repo     *memRepo
	registry *countingRegistry
	decision ports.Decision
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "Cargo.toml"), demoManifest)
	writeTestFile(t, filepath.Join(dir, "CHANGELOG.md"), "# Changelog\n")
	resetGlobals(t)
	t.Chdir(dir)

	h := &cliHarness{
		t:        t,
		dir:      dir,
		repo:     newMemRepo(t, dir),
		registry: &countingRegistry{},
		decision: ports.DecisionAccept,
	}

	serviceFactory = func(root string, c *config.Config, l *log.Logger) (*apprelease.Service, error) {
		gen, err := changelog.New(h.repo, changelog.Options{
			Path:          filepath.Join(root, c.Release.Changelog),
			Title:         c.Changelog.Title,
			IncludeHashes: c.Changelog.IncludeHashes,
		}, nil, l)
		if err != nil {
			return nil, err
		}
		return apprelease.NewService(apprelease.Dependencies{
			Repo:      h.repo,
			Registry:  h.registry,
			Manifest:  manifest.NewWriter(nil),
			Changelog: gen,
			Decider:   answer(h.decision),
			Logger:    l,
		}, releaseOptions(root, c))
	}
	return h
}

// run executes the root command with args and returns its stdout.
func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	return execute(h.t, args...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetGlobals restores package state that commands mutate.
func resetGlobals(t *testing.T) {
	t.Helper()
	factory := serviceFactory
	t.Cleanup(func() { serviceFactory = factory })

	cfgFile, verbose, outputJSON, noColor, logLevel = "", false, false, false, ""
	releaseDryRun, releaseContinue = false, false
	statusFormat, initForce = "", false
	cfg, projectRoot, runID = nil, "", ""
	logger = newLogger(io.Discard)
	Cleanup()
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

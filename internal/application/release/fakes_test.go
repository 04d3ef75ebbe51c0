package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	"github.com/relicta-tech/crateship/internal/manifest"
)

// fakeRepo is a file-backed stand-in for version control. Status compares the
// files in root with the last committed contents.
type fakeRepo struct {
	t         *testing.T
	root      string
	branch    string
	committed map[string]string
	staged    []string
	subjects  []string
	tags      map[string]string
	calls     []string
	pushed    bool

	failPushTags error
	failTag      error
}

func newFakeRepo(t *testing.T, root string) *fakeRepo {
	t.Helper()
	r := &fakeRepo{
		t:         t,
		root:      root,
		branch:    "main",
		committed: make(map[string]string),
		tags:      make(map[string]string),
	}
	r.snapshot()
	r.subjects = []string{"initial commit"}
	return r
}

// snapshot records the working tree as committed.
func (r *fakeRepo) snapshot() {
	entries, err := os.ReadDir(r.root)
	require.NoError(r.t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(r.root, e.Name()))
		require.NoError(r.t, err)
		r.committed[e.Name()] = string(data)
	}
}

func (r *fakeRepo) record(call string) { r.calls = append(r.calls, call) }

func (r *fakeRepo) mutatingCalls() []string {
	var out []string
	for _, c := range r.calls {
		switch strings.SplitN(c, " ", 2)[0] {
		case "stage", "commit", "tag", "push-branch", "push-tags":
			out = append(out, c)
		}
	}
	return out
}

func (r *fakeRepo) CurrentBranch(context.Context) (string, error) {
	r.record("branch")
	return r.branch, nil
}

func (r *fakeRepo) StatusPorcelain(context.Context) (string, error) {
	r.record("status")
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

func (r *fakeRepo) Stage(_ context.Context, paths ...string) error {
	r.record("stage " + strings.Join(paths, " "))
	r.staged = append(r.staged, paths...)
	return nil
}

func (r *fakeRepo) Commit(_ context.Context, message string) error {
	r.record("commit " + message)
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

func (r *fakeRepo) CreateAnnotatedTag(_ context.Context, name, message string) error {
	r.record("tag " + name)
	if r.failTag != nil {
		return r.failTag
	}
	r.tags[name] = message
	return nil
}

func (r *fakeRepo) TagExists(_ context.Context, name string) (bool, error) {
	r.record("tag-exists " + name)
	_, ok := r.tags[name]
	return ok, nil
}

func (r *fakeRepo) HeadSubject(context.Context) (string, error) {
	r.record("head")
	return r.subjects[len(r.subjects)-1], nil
}

func (r *fakeRepo) PushBranch(context.Context) error {
	r.record("push-branch")
	r.pushed = true
	return nil
}

func (r *fakeRepo) PushTags(context.Context) error {
	r.record("push-tags")
	return r.failPushTags
}

func (r *fakeRepo) RemoteAtHead(context.Context) (bool, error) { return r.pushed, nil }

func (r *fakeRepo) Tags(context.Context) ([]string, error) {
	var names []string
	for n := range r.tags {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (r *fakeRepo) LatestReleaseTag(ctx context.Context) (string, error) {
	names, _ := r.Tags(ctx)
	if len(names) == 0 {
		return "", nil
	}
	return names[len(names)-1], nil
}

type fakeRegistry struct {
	errs  []error
	calls int
}

func (f *fakeRegistry) Publish(context.Context) error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

// fakeRefresher touches the lock file the way cargo would.
type fakeRefresher struct {
	root  string
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls++
	path := filepath.Join(f.root, "Cargo.lock")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return os.WriteFile(path, append(data, []byte(fmt.Sprintf("# refreshed %d\n", f.calls))...), 0o644)
}

type fakeChangelog struct {
	root string
	tags []string
	noop bool
	err  error
}

func (f *fakeChangelog) Generate(_ context.Context, tag string) error {
	f.tags = append(f.tags, tag)
	if f.err != nil {
		return f.err
	}
	if f.noop {
		return nil
	}
	path := filepath.Join(f.root, "CHANGELOG.md")
	data, _ := os.ReadFile(path)
	return os.WriteFile(path, append([]byte("## ["+tag+"]\n\n"), data...), 0o644)
}

type fakeEditor struct{ opened []string }

func (f *fakeEditor) Open(_ context.Context, path string) error {
	f.opened = append(f.opened, path)
	return nil
}

type fakeDecider struct {
	decision ports.Decision
	seen     []ports.Summary
}

func (f *fakeDecider) Decide(_ context.Context, s ports.Summary) (ports.Decision, error) {
	f.seen = append(f.seen, s)
	return f.decision, nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

const demoManifest = `[package]
name = "demo"
version = "0.1.0"
edition = "2021"

[dependencies]
serde = { version = "1.0" }
`

// harness wires a Service to fakes over a temporary package directory.
type harness struct {
	root      string
	repo      *fakeRepo
	registry  *fakeRegistry
	refresher *fakeRefresher
	changelog *fakeChangelog
	editor    *fakeEditor
	decider   *fakeDecider
	svc       *Service
}

func newHarness(t *testing.T, manifestText string) *harness {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", manifestText)
	writeFile(t, root, "Cargo.lock", "# lock\n")
	writeFile(t, root, "CHANGELOG.md", "# Changelog\n")

	h := &harness{
		root:      root,
		repo:      newFakeRepo(t, root),
		registry:  &fakeRegistry{},
		refresher: &fakeRefresher{root: root},
		changelog: &fakeChangelog{root: root},
		editor:    &fakeEditor{},
		decider:   &fakeDecider{decision: ports.DecisionAccept},
	}
	h.svc = h.service(t, DefaultOptions(root))
	return h
}

func (h *harness) service(t *testing.T, opts Options) *Service {
	t.Helper()
	svc, err := NewService(Dependencies{
		Repo:      h.repo,
		Registry:  h.registry,
		Manifest:  manifest.NewWriter(h.refresher),
		Changelog: h.changelog,
		Editor:    h.editor,
		Decider:   h.decider,
		Clock:     fixedClock{},
	}, opts)
	require.NoError(t, err)
	return svc
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
}

func readFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, name))
	require.NoError(t, err)
	return string(data)
}

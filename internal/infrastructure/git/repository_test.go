package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(DefaultOptions(t.TempDir()), nil)
	require.Error(t, err)
	assert.True(t, rperrors.IsKind(err, rperrors.KindGit))
}

func TestCurrentBranch(t *testing.T) {
	h := newTestRepo(t)
	h.commitFile("README.md", "hello", "initial commit")
	r := h.open(Options{})

	branch, err := r.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

func TestStatusPorcelain(t *testing.T) {
	ctx := context.Background()
	h := newTestRepo(t)
	h.commitFile("Cargo.toml", "[package]\n", "initial commit")
	r := h.open(Options{})

	status, err := r.StatusPorcelain(ctx)
	require.NoError(t, err)
	assert.Empty(t, status, "fresh commit should be clean")

	h.writeFile("Cargo.toml", "[package]\nname = \"x\"\n")
	h.writeFile("src/new.rs", "fn main() {}")

	status, err = r.StatusPorcelain(ctx)
	require.NoError(t, err)
	lines := strings.Split(status, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, " M Cargo.toml", lines[0])
	assert.Equal(t, "?? src/new.rs", lines[1])
}

func TestStatusPorcelain_IgnoresSubmodules(t *testing.T) {
	h := newTestRepo(t)
	h.commitFile(".gitmodules", "[submodule \"vendor/lib\"]\n\tpath = vendor/lib\n\turl = https://example.com/lib.git\n", "add submodule config")
	h.writeFile("vendor/lib/file.rs", "changed")
	r := h.open(Options{})

	status, err := r.StatusPorcelain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status)
}

func TestStatusPorcelain_RelativeToOpenDirectory(t *testing.T) {
	h := newTestRepo(t)
	h.commitFile("crates/demo/Cargo.toml", "[package]\n", "initial commit")
	h.writeFile("crates/demo/Cargo.toml", "[package]\nversion = \"1.0.0\"\n")

	r := h.open(Options{Path: filepath.Join(h.repoDir, "crates", "demo")})
	status, err := r.StatusPorcelain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, " M Cargo.toml", status)
}

func TestStageCommitAndHeadSubject(t *testing.T) {
	ctx := context.Background()
	h := newTestRepo(t)
	h.commitFile("Cargo.toml", "version = \"0.1.0\"\n", "initial commit")
	r := h.open(Options{})

	h.writeFile("Cargo.toml", "version = \"0.2.0\"\n")
	h.writeFile("CHANGELOG.md", "# Changelog\n")
	h.writeFile("unrelated.txt", "left alone")

	require.NoError(t, r.Stage(ctx, "Cargo.toml", "CHANGELOG.md"))
	require.NoError(t, r.Commit(ctx, "release v0.2.0"))

	subject, err := r.HeadSubject(ctx)
	require.NoError(t, err)
	assert.Equal(t, "release v0.2.0", subject)

	status, err := r.StatusPorcelain(ctx)
	require.NoError(t, err)
	assert.Equal(t, "?? unrelated.txt", status, "only the named paths are committed")

	head, err := h.repo.Head()
	require.NoError(t, err)
	commit, err := h.repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Release Bot", commit.Author.Name)
}

func TestHeadSubject_MultiLineMessage(t *testing.T) {
	h := newTestRepo(t)
	h.commitFile("a.txt", "a", "release v1.0.0\n\nextra body")
	r := h.open(Options{})

	subject, err := r.HeadSubject(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "release v1.0.0", subject)
}

func TestHeadSubject_FoldsFirstParagraph(t *testing.T) {
	h := newTestRepo(t)
	h.commitFile("a.txt", "a", "release v1.0.0\nmore text\n\nbody")
	r := h.open(Options{})

	subject, err := r.HeadSubject(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "release v1.0.0 more text", subject)
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		message, subject, body string
	}{
		{"feat: add x", "feat: add x", ""},
		{"feat: add x\n\nlonger body\nsecond line", "feat: add x", "longer body\nsecond line"},
		{"fix: wrapped\nsubject\n\nbody", "fix: wrapped subject", "body"},
		{"fix: crlf\r\n\r\nbody\r\n", "fix: crlf", "body"},
		{"fix: spaces\n   \nbody", "fix: spaces", "body"},
	}
	for _, tt := range tests {
		subject, body := splitMessage(tt.message)
		assert.Equal(t, tt.subject, subject, tt.message)
		assert.Equal(t, tt.body, body, tt.message)
	}
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	h := newTestRepo(t)
	h.commitFile("a.txt", "a", "initial commit")
	r := h.open(Options{})

	exists, err := r.TagExists(ctx, "v1.0.0")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, r.CreateAnnotatedTag(ctx, "v1.0.0", "release v1.0.0"))

	exists, err = r.TagExists(ctx, "v1.0.0")
	require.NoError(t, err)
	assert.True(t, exists)

	ref, err := h.repo.Reference(plumbing.NewTagReferenceName("v1.0.0"), true)
	require.NoError(t, err)
	tagObj, err := h.repo.TagObject(ref.Hash())
	require.NoError(t, err, "tag must be annotated")
	assert.Equal(t, "release v1.0.0", strings.TrimSpace(tagObj.Message))
	assert.Equal(t, "Release Bot", tagObj.Tagger.Name)

	err = r.CreateAnnotatedTag(ctx, "v1.0.0", "again")
	assert.Error(t, err, "duplicate tag must fail")

	names, err := r.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.0.0"}, names)
}

func TestRemoteAtHead(t *testing.T) {
	ctx := context.Background()
	h := newTestRepo(t)
	first := h.commitFile("a.txt", "a", "initial commit")
	r := h.open(Options{})

	pushed, err := r.RemoteAtHead(ctx)
	require.NoError(t, err)
	assert.False(t, pushed, "no remote-tracking ref yet")

	remoteRef := plumbing.NewRemoteReferenceName("origin", "master")
	require.NoError(t, h.repo.Storer.SetReference(plumbing.NewHashReference(remoteRef, first)))

	pushed, err = r.RemoteAtHead(ctx)
	require.NoError(t, err)
	assert.True(t, pushed)

	h.commitFile("a.txt", "b", "release v0.2.0")
	pushed, err = r.RemoteAtHead(ctx)
	require.NoError(t, err)
	assert.False(t, pushed)
}

func TestLatestReleaseTag(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{"none", nil, ""},
		{"single", []string{"v0.1.0"}, "v0.1.0"},
		{"semver ordering", []string{"v0.9.0", "v0.10.0", "v0.2.0"}, "v0.10.0"},
		{"prerelease ignored", []string{"v1.0.0", "v2.0.0-rc.1"}, "v1.0.0"},
		{"unprefixed ignored", []string{"1.5.0", "v1.0.0", "nightly"}, "v1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LatestReleaseTag(tt.names))
		})
	}
}

func TestCommitsSince(t *testing.T) {
	ctx := context.Background()
	h := newTestRepo(t)
	h.commitFile("a.txt", "1", "feat: first")
	h.tag("v0.1.0")
	h.commitFile("a.txt", "2", "fix: second")
	h.commitFile("a.txt", "3", "feat(cli): third\n\nwith body")
	r := h.open(Options{})

	all, err := r.CommitsSince(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	since, err := r.CommitsSince(ctx, "v0.1.0")
	require.NoError(t, err)
	require.Len(t, since, 2)
	subjects := []string{since[0].Subject, since[1].Subject}
	assert.ElementsMatch(t, []string{"fix: second", "feat(cli): third"}, subjects)
	assert.Len(t, since[0].ShortHash(), 7)

	latest, err := r.LatestReleaseTag(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v0.1.0", latest)

	_, err = r.CommitsSince(ctx, "v9.9.9")
	assert.Error(t, err)
}

func TestSignature_RequiresIdentity(t *testing.T) {
	h := newTestRepo(t)
	h.commitFile("a.txt", "a", "initial commit")

	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	r, err := Open(DefaultOptions(h.repoDir), nil)
	require.NoError(t, err)

	_, err = r.signature()
	require.Error(t, err)

	cfgPath := filepath.Join(h.repoDir, ".git", "config")
	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("[user]\n\tname = Local User\n\temail = local@example.com\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err = Open(DefaultOptions(h.repoDir), nil)
	require.NoError(t, err)
	sig, err := r.signature()
	require.NoError(t, err)
	assert.Equal(t, "Local User", sig.Name)
	assert.Equal(t, "local@example.com", sig.Email)
}

func TestValidateGitRef(t *testing.T) {
	for _, ok := range []string{"main", "release/1.x", "v1.2.3", "origin", "feature_a-b"} {
		assert.NoError(t, ValidateGitRef(ok), ok)
	}
	for _, bad := range []string{"", "--force", "-x", "a..b", "a;rm", "x.lock", "dir/", "a b", "$(id)"} {
		err := ValidateGitRef(bad)
		assert.True(t, errors.Is(err, ErrInvalidGitRef), bad)
	}
}

package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

// errStopIteration ends a commit walk early.
var errStopIteration = errors.New("stop iteration")

var _ ports.Repository = (*Repository)(nil)

// Repository is the go-git backed version-control collaborator.
type Repository struct {
	opts     Options
	root     string
	base     string
	repo     *git.Repository
	worktree *git.Worktree
	pusher   pusher
	logger   *log.Logger
	now      func() time.Time
}

// Open opens the repository containing opts.Path.
func Open(opts Options, logger *log.Logger) (*Repository, error) {
	const op = "git.Open"

	defaults := DefaultOptions(opts.Path)
	if opts.Remote == "" {
		opts.Remote = defaults.Remote
	}
	if opts.GitBinary == "" {
		opts.GitBinary = defaults.GitBinary
	}
	if opts.PushAttempts < 1 {
		opts.PushAttempts = 1
	}
	if opts.PushInitialDelay <= 0 {
		opts.PushInitialDelay = defaults.PushInitialDelay
	}
	if logger == nil {
		logger = log.Default()
	}

	absPath, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get absolute path")
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to open repository")
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get worktree")
	}

	r := &Repository{
		opts:     opts,
		root:     worktree.Filesystem.Root(),
		base:     absPath,
		repo:     repo,
		worktree: worktree,
		logger:   logger,
		now:      time.Now,
	}
	r.pusher = newPusher(r, opts, logger)
	return r, nil
}

// Root returns the work tree root.
func (r *Repository) Root() string {
	return r.root
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repository) CurrentBranch(_ context.Context) (string, error) {
	const op = "git.CurrentBranch"

	head, err := r.repo.Head()
	if err != nil {
		return "", rperrors.GitWrap(err, op, "failed to get HEAD")
	}
	if !head.Name().IsBranch() {
		return "", rperrors.GitWrap(errors.New("detached HEAD"), op, "HEAD is not on a branch")
	}
	return head.Name().Short(), nil
}

// StatusPorcelain returns "XY path" lines for every changed or untracked
// path, sorted, with submodule paths left out. Paths are relative to the
// directory the repository was opened from.
func (r *Repository) StatusPorcelain(_ context.Context) (string, error) {
	const op = "git.StatusPorcelain"

	status, err := r.worktree.Status()
	if err != nil {
		return "", rperrors.GitWrap(err, op, "failed to get worktree status")
	}

	submodules, err := r.submodulePaths()
	if err != nil {
		return "", rperrors.GitWrap(err, op, "failed to read submodules")
	}

	paths := make([]string, 0, len(status))
	for path, fs := range status {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		if isUnderAny(path, submodules) {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, path := range paths {
		fs := status[path]
		fmt.Fprintf(&sb, "%c%c %s\n", fs.Staging, fs.Worktree, r.fromRoot(path))
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}

func (r *Repository) submodulePaths() ([]string, error) {
	subs, err := r.worktree.Submodules()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(subs))
	for _, s := range subs {
		paths = append(paths, filepath.ToSlash(s.Config().Path))
	}
	return paths, nil
}

func isUnderAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Stage adds paths to the index. Relative paths are resolved against the
// directory the repository was opened from.
func (r *Repository) Stage(_ context.Context, paths ...string) error {
	const op = "git.Stage"

	for _, p := range paths {
		rel, err := r.toRoot(p)
		if err != nil {
			return rperrors.Wrapf(err, rperrors.KindGit, op, "%s is outside the work tree", p)
		}
		if _, err := r.worktree.Add(rel); err != nil {
			return rperrors.Wrapf(err, rperrors.KindGit, op, "failed to stage %s", p)
		}
	}
	return nil
}

func (r *Repository) toRoot(p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.base, p)
	}
	rel, err := filepath.Rel(r.root, p)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes the work tree")
	}
	return filepath.ToSlash(rel), nil
}

func (r *Repository) fromRoot(p string) string {
	rel, err := filepath.Rel(r.base, filepath.Join(r.root, filepath.FromSlash(p)))
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// Commit records the index.
func (r *Repository) Commit(_ context.Context, message string) error {
	const op = "git.Commit"

	sig, err := r.signature()
	if err != nil {
		return rperrors.GitWrap(err, op, "failed to determine commit author")
	}

	hash, err := r.worktree.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return rperrors.GitWrap(err, op, "failed to commit")
	}
	r.logger.Debug("created commit", "hash", hash.String(), "message", message)
	return nil
}

// CreateAnnotatedTag creates an annotated tag on HEAD.
func (r *Repository) CreateAnnotatedTag(_ context.Context, name, message string) error {
	const op = "git.CreateAnnotatedTag"

	head, err := r.repo.Head()
	if err != nil {
		return rperrors.GitWrap(err, op, "failed to get HEAD")
	}

	sig, err := r.signature()
	if err != nil {
		return rperrors.GitWrap(err, op, "failed to determine tagger")
	}

	if _, err := r.repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Message: message,
		Tagger:  sig,
	}); err != nil {
		return rperrors.Wrapf(err, rperrors.KindGit, op, "failed to create tag %s", name)
	}
	return nil
}

// TagExists probes refs/tags/<name>.
func (r *Repository) TagExists(_ context.Context, name string) (bool, error) {
	const op = "git.TagExists"

	_, err := r.repo.Reference(plumbing.NewTagReferenceName(name), false)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return false, nil
	default:
		return false, rperrors.Wrapf(err, rperrors.KindGit, op, "failed to look up tag %s", name)
	}
}

// HeadSubject returns the subject of the HEAD commit as git log --format=%s
// prints it, so a subject wrapped onto a second line never reads as a
// bare release commit.
func (r *Repository) HeadSubject(_ context.Context) (string, error) {
	const op = "git.HeadSubject"

	head, err := r.repo.Head()
	if err != nil {
		return "", rperrors.GitWrap(err, op, "failed to get HEAD")
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", rperrors.GitWrap(err, op, "failed to get HEAD commit")
	}
	subject, _ := splitMessage(commit.Message)
	return subject, nil
}

// RemoteAtHead reports whether refs/remotes/<remote>/<branch> equals HEAD.
// A missing remote-tracking ref counts as not pushed.
func (r *Repository) RemoteAtHead(ctx context.Context) (bool, error) {
	const op = "git.RemoteAtHead"

	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return false, err
	}
	head, err := r.repo.Head()
	if err != nil {
		return false, rperrors.GitWrap(err, op, "failed to get HEAD")
	}

	ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName(r.opts.Remote, branch), true)
	switch {
	case err == nil:
		return ref.Hash() == head.Hash(), nil
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return false, nil
	default:
		return false, rperrors.GitWrap(err, op, "failed to read remote-tracking branch")
	}
}

// Tags lists tag names.
func (r *Repository) Tags(ctx context.Context) ([]string, error) {
	const op = "git.Tags"

	iter, err := r.repo.Tags()
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get tags iterator")
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to iterate tags")
	}
	sort.Strings(names)
	return names, nil
}

// LatestReleaseTag returns the highest "vX.Y.Z" tag without a pre-release
// suffix, or "" when there is none.
func (r *Repository) LatestReleaseTag(ctx context.Context) (string, error) {
	names, err := r.Tags(ctx)
	if err != nil {
		return "", err
	}
	return LatestReleaseTag(names), nil
}

// LatestReleaseTag picks the highest release tag from names.
func LatestReleaseTag(names []string) string {
	var (
		best    string
		bestVer *semver.Version
	)
	for _, name := range names {
		if !strings.HasPrefix(name, "v") {
			continue
		}
		v, err := semver.StrictNewVersion(strings.TrimPrefix(name, "v"))
		if err != nil || v.Prerelease() != "" {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = name, v
		}
	}
	return best
}

// CommitsSince walks history from HEAD, newest first, stopping at the commit
// tag points to. An empty tag walks all history.
func (r *Repository) CommitsSince(ctx context.Context, tag string) ([]Commit, error) {
	const op = "git.CommitsSince"

	head, err := r.repo.Head()
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get HEAD")
	}

	stop := plumbing.ZeroHash
	if tag != "" {
		stop, err = r.peelTag(tag)
		if err != nil {
			return nil, rperrors.Wrapf(err, rperrors.KindGit, op, "failed to resolve tag %s", tag)
		}
	}

	iter, err := r.repo.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get log iterator")
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if c.Hash == stop {
			return errStopIteration
		}
		subject, body := splitMessage(c.Message)
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Subject: subject,
			Body:    body,
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		if ctx.Err() != nil {
			return nil, rperrors.Wrap(ctx.Err(), rperrors.KindCanceled, op, "operation canceled")
		}
		return nil, rperrors.GitWrap(err, op, "failed to iterate commits")
	}
	return commits, nil
}

// peelTag resolves a tag name to the commit it marks.
func (r *Repository) peelTag(name string) (plumbing.Hash, error) {
	ref, err := r.repo.Reference(plumbing.NewTagReferenceName(name), true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if tagObj, err := r.repo.TagObject(ref.Hash()); err == nil {
		commit, err := tagObj.Commit()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return commit.Hash, nil
	}
	return ref.Hash(), nil
}

// signature builds the author used for release commits and tags: explicit
// options first, then the repository's user config, then global config.
func (r *Repository) signature() (*object.Signature, error) {
	name, email := r.opts.AuthorName, r.opts.AuthorEmail

	for _, scope := range []config.Scope{config.LocalScope, config.GlobalScope} {
		if name != "" && email != "" {
			break
		}
		cfg, err := r.repo.ConfigScoped(scope)
		if err != nil {
			continue
		}
		if name == "" {
			name = cfg.User.Name
		}
		if email == "" {
			email = cfg.User.Email
		}
	}

	if name == "" || email == "" {
		return nil, errors.New("user.name and user.email must be configured")
	}
	return &object.Signature{Name: name, Email: email, When: r.now()}, nil
}

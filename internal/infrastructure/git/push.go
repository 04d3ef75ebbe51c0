package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"

	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

// commandRunner runs a git subcommand in dir and returns its combined output.
type commandRunner func(ctx context.Context, dir, binary string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) // #nosec G204 -- args are validated ref names
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

type pushFunc func(ctx context.Context) error

// pusher pushes the current branch and tags as two separate operations.
type pusher struct {
	repo    *Repository
	opts    Options
	run     commandRunner
	retrier retry.Retry[struct{}]
	logger  *log.Logger
}

func newPusher(repo *Repository, opts Options, logger *log.Logger) pusher {
	p := pusher{repo: repo, opts: opts, run: execRunner, logger: logger}
	if opts.PushAttempts > 1 {
		p.retrier = retry.New[struct{}](retry.Config{
			MaxAttempts:   opts.PushAttempts,
			InitialDelay:  opts.PushInitialDelay,
			MaxDelay:      30 * opts.PushInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			Jitter:        true,
			IsRetryable:   isRetryablePush,
		})
	}
	return p
}

// isRetryablePush skips retries for rejections that will not go away.
func isRetryablePush(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, permanent := range []string{"rejected", "non-fast-forward", "permission", "denied", "authentication"} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	return true
}

func (p pusher) do(ctx context.Context, what string, fn pushFunc) error {
	if p.retrier == nil {
		return fn(ctx)
	}
	attempt := 0
	_, err := p.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
		attempt++
		if attempt > 1 {
			p.logger.Warn("retrying push", "what", what, "attempt", attempt)
		}
		return struct{}{}, fn(ctx)
	})
	return err
}

// PushBranch pushes the current branch to the configured remote.
func (r *Repository) PushBranch(ctx context.Context) error {
	const op = "git.PushBranch"

	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if err := ValidateGitRef(branch); err != nil {
		return rperrors.GitWrap(err, op, "refusing to push")
	}

	r.logger.Info("pushing branch", "remote", r.opts.Remote, "branch", branch)
	return r.pusher.do(ctx, "branch", func(ctx context.Context) error {
		if r.opts.CLIPush {
			return r.pusher.cli(ctx, op, "push", r.opts.Remote, branch)
		}
		spec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
		return r.pusher.native(ctx, op, spec)
	})
}

// PushTags pushes all tags to the configured remote.
func (r *Repository) PushTags(ctx context.Context) error {
	const op = "git.PushTags"

	r.logger.Info("pushing tags", "remote", r.opts.Remote)
	return r.pusher.do(ctx, "tags", func(ctx context.Context) error {
		if r.opts.CLIPush {
			return r.pusher.cli(ctx, op, "push", r.opts.Remote, "--tags")
		}
		return r.pusher.native(ctx, op, config.RefSpec("refs/tags/*:refs/tags/*"))
	})
}

func (p pusher) cli(ctx context.Context, op string, args ...string) error {
	if err := ValidateGitRef(p.opts.Remote); err != nil {
		return rperrors.GitWrap(err, op, "invalid remote")
	}
	out, err := p.run(ctx, p.repo.root, p.opts.GitBinary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		return rperrors.ExternalWrap(fmt.Errorf("%w: %s", err, detail), op,
			fmt.Sprintf("%s %s failed", p.opts.GitBinary, strings.Join(args, " ")))
	}
	if s := strings.TrimSpace(string(out)); s != "" {
		p.logger.Debug("git output", "output", rperrors.RedactSensitive(s))
	}
	return nil
}

func (p pusher) native(ctx context.Context, op string, spec config.RefSpec) error {
	err := p.repo.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: p.opts.Remote,
		RefSpecs:   []config.RefSpec{spec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return rperrors.ExternalWrap(err, op, fmt.Sprintf("failed to push %s", spec))
	}
	return nil
}

package release

import (
	"context"
	"fmt"

	"github.com/relicta-tech/crateship/internal/domain/release"
	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

// Preconditions gates a fresh release. Both checks only read.
type Preconditions struct {
	repo ports.Repository
}

// NewPreconditions creates a Preconditions checker.
func NewPreconditions(repo ports.Repository) *Preconditions {
	return &Preconditions{repo: repo}
}

// CheckBranch fails with release.ErrWrongBranch unless expected is checked out.
func (p *Preconditions) CheckBranch(ctx context.Context, expected string) error {
	const op = "release.CheckBranch"

	branch, err := p.repo.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("failed to read current branch: %w", err)
	}
	if branch != expected {
		return rperrors.Wrap(&release.WrongBranchError{Expected: expected, Actual: branch},
			rperrors.KindPrecondition, op, "wrong branch").
			WithDetail("expected", expected).
			WithDetail("actual", branch)
	}
	return nil
}

// CheckClean fails with release.ErrDirtyWorktree, carrying the status
// listing, when anything outside submodules is modified or untracked.
func (p *Preconditions) CheckClean(ctx context.Context) error {
	const op = "release.CheckClean"

	status, err := p.repo.StatusPorcelain(ctx)
	if err != nil {
		return fmt.Errorf("failed to read working tree status: %w", err)
	}
	if status != "" {
		return rperrors.Wrap(&release.DirtyWorktreeError{Listing: status},
			rperrors.KindPrecondition, op, "working tree must be clean before releasing")
	}
	return nil
}

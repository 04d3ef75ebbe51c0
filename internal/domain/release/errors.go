package release

import (
	"errors"
	"fmt"
)

// Sentinel errors for release operations.
var (
	ErrWrongBranch       = errors.New("not on the release branch")
	ErrDirtyWorktree     = errors.New("working tree has uncommitted changes")
	ErrTagAlreadyExists  = errors.New("release tag already exists")
	ErrNoChangesProduced = errors.New("version bump produced no changes")
	ErrDeclined          = errors.New("release not confirmed")
	ErrPublishFailed     = errors.New("publish failed")
	ErrAlreadyPublished  = errors.New("version already published")
	ErrNotAReleaseCommit = errors.New("last commit is not a release commit")
	ErrVersionMismatch   = errors.New("manifest version does not match release commit")
	ErrInvalidTransition = errors.New("invalid release state transition")
)

// DirtyWorktreeError carries the porcelain status listing that made the
// working tree count as dirty.
type DirtyWorktreeError struct {
	Listing string
}

func (e *DirtyWorktreeError) Error() string {
	return fmt.Sprintf("%s:\n%s", ErrDirtyWorktree, e.Listing)
}

func (e *DirtyWorktreeError) Unwrap() error {
	return ErrDirtyWorktree
}

// WrongBranchError names the branch that was expected and the one checked out.
type WrongBranchError struct {
	Expected string
	Actual   string
}

func (e *WrongBranchError) Error() string {
	return fmt.Sprintf("releases must be made from %q, currently on %q", e.Expected, e.Actual)
}

func (e *WrongBranchError) Unwrap() error {
	return ErrWrongBranch
}

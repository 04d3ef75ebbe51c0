// Package ports defines the collaborators the release sequencer drives.
package ports

import "context"

// Repository is the version-control collaborator. Read methods never mutate
// the repository.
type Repository interface {
	// CurrentBranch returns the short name of the checked-out branch.
	CurrentBranch(ctx context.Context) (string, error)

	// StatusPorcelain returns the porcelain status listing, excluding
	// submodules. An empty string means the working tree is clean.
	StatusPorcelain(ctx context.Context) (string, error)

	// Stage adds the named paths to the index.
	Stage(ctx context.Context, paths ...string) error

	// Commit records the index with message.
	Commit(ctx context.Context, message string) error

	// CreateAnnotatedTag creates an annotated tag on HEAD.
	CreateAnnotatedTag(ctx context.Context, name, message string) error

	// TagExists probes for a tag without mutating anything.
	TagExists(ctx context.Context, name string) (bool, error)

	// HeadSubject returns the first line of the most recent commit message.
	HeadSubject(ctx context.Context) (string, error)

	// PushBranch pushes the current branch to the remote.
	PushBranch(ctx context.Context) error

	// PushTags pushes all tags to the remote.
	PushTags(ctx context.Context) error

	// RemoteAtHead reports whether the remote-tracking ref of the current
	// branch points at HEAD.
	RemoteAtHead(ctx context.Context) (bool, error)

	// Tags lists all tag names.
	Tags(ctx context.Context) ([]string, error)

	// LatestReleaseTag returns the highest vX.Y.Z tag, or "" when there is none.
	LatestReleaseTag(ctx context.Context) (string, error)
}

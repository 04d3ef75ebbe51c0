package ports

import (
	"context"
	"time"
)

// Registry publishes the current package. A duplicate-version rejection must
// wrap release.ErrAlreadyPublished so callers can tell it apart.
type Registry interface {
	Publish(ctx context.Context) error
}

// LockRefresher brings the lock file in line with an edited manifest.
type LockRefresher interface {
	Refresh(ctx context.Context) error
}

// ChangelogGenerator writes the pending entry for tagLabel into the changelog.
type ChangelogGenerator interface {
	Generate(ctx context.Context, tagLabel string) error
}

// Editor opens path for interactive review and blocks until it exits.
type Editor interface {
	Open(ctx context.Context, path string) error
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

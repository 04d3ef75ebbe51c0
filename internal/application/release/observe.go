package release

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/relicta-tech/crateship/internal/domain/release"
)

// Observe gathers what the repository says about the current release and
// derives its state. It never mutates anything.
func (s *Service) Observe(ctx context.Context) (*release.Observation, release.State, error) {
	const op = "release.Observe"

	var (
		o   release.Observation
		err error
	)

	if o.Branch, err = s.deps.Repo.CurrentBranch(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to read current branch: %w", err)
	}
	if o.Status, err = s.deps.Repo.StatusPorcelain(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to read working tree status: %w", err)
	}
	manifestPath := filepath.ToSlash(s.opts.ManifestPath)
	for _, p := range changedPaths(o.Status) {
		if p == manifestPath {
			o.ManifestChanged = true
		}
	}
	if o.HeadSubject, err = s.deps.Repo.HeadSubject(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to read last commit: %w", err)
	}

	meta, err := s.readManifest(op)
	if err != nil {
		return nil, "", err
	}
	o.Package, o.ManifestVersion = meta.Name, meta.Version

	if v, ok := o.ReleaseVersion(); ok {
		if o.TagExists, err = s.deps.Repo.TagExists(ctx, release.TagName(v)); err != nil {
			return nil, "", fmt.Errorf("failed to probe tag: %w", err)
		}
	}
	if o.RemoteAtHead, err = s.deps.Repo.RemoteAtHead(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to compare with remote: %w", err)
	}
	if o.LatestTag, err = s.deps.Repo.LatestReleaseTag(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to list tags: %w", err)
	}

	return &o, release.DeriveState(o), nil
}

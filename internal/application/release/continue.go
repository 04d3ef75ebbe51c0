package release

import (
	"context"
	"fmt"

	"github.com/relicta-tech/crateship/internal/domain/release"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

// Continue resumes a release whose commit exists but whose publish, tag or
// push did not finish. State comes from the repository alone: the release
// commit at HEAD names the version, the manifest must agree, and the tag is
// probed before it is created. Publish and push always run again.
//
// Branch and clean-tree checks are skipped.
func (s *Service) Continue(ctx context.Context) (*Result, error) {
	const op = "release.Continue"

	subject, err := s.deps.Repo.HeadSubject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last commit: %w", err)
	}
	v, ok := release.ParseReleaseCommit(subject)
	if !ok {
		return nil, rperrors.Wrapf(release.ErrNotAReleaseCommit, rperrors.KindContinuation, op,
			"last commit doesn't look like a release commit: %q; expected format: 'release vX.Y.Z'", subject).
			WithDetail("subject", subject)
	}

	meta, err := s.readManifest(op)
	if err != nil {
		return nil, err
	}
	if meta.Version != v.String() {
		return nil, rperrors.Wrapf(release.ErrVersionMismatch, rperrors.KindContinuation, op,
			"manifest version (%s) doesn't match commit version (%s)", meta.Version, v).
			WithDetail("manifest", meta.Version).
			WithDetail("commit", v.String())
	}

	machine, err := release.NewMachine(release.StateCommitted)
	if err != nil {
		return nil, rperrors.Wrap(err, rperrors.KindInternal, op, "failed to build release machine")
	}
	machine.Start()

	r := &run{pkg: meta.Name, version: v, tag: release.TagName(v), continuation: true, machine: machine}
	s.deps.Logger.Info("continuing release", "package", meta.Name, "version", v.String())

	err = s.runSteps(ctx, r, release.StepPublish, release.StepPush)
	return s.result(r, false, true), err
}

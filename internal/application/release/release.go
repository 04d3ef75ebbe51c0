package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/relicta-tech/crateship/internal/domain/release"
	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	"github.com/relicta-tech/crateship/internal/domain/version"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
	"github.com/relicta-tech/crateship/internal/manifest"
)

// Release performs a fresh release: preconditions, tag guard, staging, the
// human checkpoint, then commit, publish, tag and push. A dry run stops after
// staging and leaves the changes uncommitted.
//
// A declined checkpoint leaves the staged files as they are.
func (s *Service) Release(ctx context.Context, input ReleaseInput) (*Result, error) {
	const op = "release.Release"

	if err := input.Validate(); err != nil {
		return nil, rperrors.Wrap(err, rperrors.KindFormat, op, "invalid input")
	}

	if err := s.pre.CheckBranch(ctx, s.opts.Branch); err != nil {
		return nil, err
	}
	if err := s.pre.CheckClean(ctx); err != nil {
		return nil, err
	}

	meta, err := s.readManifest(op)
	if err != nil {
		return nil, err
	}
	current, err := version.Parse(meta.Version)
	if err != nil {
		return nil, rperrors.Wrapf(err, rperrors.KindFormat, op, "manifest version %q", meta.Version)
	}
	next, err := input.Bump.Apply(current)
	if err != nil {
		return nil, rperrors.Wrap(err, rperrors.KindFormat, op, "cannot compute next version")
	}

	tag := release.TagName(next)
	exists, err := s.deps.Repo.TagExists(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to probe tag %s: %w", tag, err)
	}
	if exists {
		return nil, rperrors.Wrapf(release.ErrTagAlreadyExists, rperrors.KindPrecondition, op,
			"tag %s already exists", tag).WithDetail("tag", tag)
	}

	machine, err := release.NewMachine(release.StateClean)
	if err != nil {
		return nil, rperrors.Wrap(err, rperrors.KindInternal, op, "failed to build release machine")
	}
	machine.Start()

	r := &run{pkg: meta.Name, previous: current, version: next, tag: tag, machine: machine}
	s.deps.Logger.Info("releasing", "package", meta.Name, "from", current.String(), "to", next.String(), "bump", input.Bump)

	if err := s.runSteps(ctx, r, release.StepStage, release.StepStage); err != nil {
		return s.result(r, input.DryRun, false), err
	}

	if input.DryRun {
		return s.result(r, true, false), nil
	}

	if err := s.checkpoint(ctx, r); err != nil {
		return s.result(r, false, false), err
	}

	err = s.runSteps(ctx, r, release.StepCommit, release.StepPush)
	return s.result(r, false, false), err
}

// checkpoint opens the changelog for review and waits for the operator.
func (s *Service) checkpoint(ctx context.Context, r *run) error {
	const op = "release.Checkpoint"

	changelog := s.path(s.opts.ChangelogPath)
	if s.deps.Editor != nil {
		if err := s.deps.Editor.Open(ctx, changelog); err != nil {
			return fmt.Errorf("changelog review: %w", err)
		}
	}
	if s.deps.Decider == nil {
		return nil
	}

	decision, err := s.deps.Decider.Decide(ctx, ports.Summary{
		Package:       r.pkg,
		Current:       r.previous.String(),
		Next:          r.version.String(),
		Tag:           r.tag,
		ChangelogPath: changelog,
	})
	if err != nil {
		if cerr := canceled(ctx, op); cerr != nil {
			return cerr
		}
		return rperrors.Wrap(err, rperrors.KindIO, op, "failed to read confirmation")
	}
	if decision != ports.DecisionAccept {
		return rperrors.Wrap(release.ErrDeclined, rperrors.KindCanceled, op, "aborting release")
	}
	return nil
}

func (s *Service) readManifest(op string) (manifest.Metadata, error) {
	meta, err := s.deps.Manifest.ReadNameAndVersion(s.path(s.opts.ManifestPath))
	if err != nil {
		return manifest.Metadata{}, classifyManifestError(err, op)
	}
	return meta, nil
}

// classifyManifestError maps manifest failures onto error kinds: malformed
// content is a format error, a failed lock refresh keeps its own kind, and
// anything else is I/O.
func classifyManifestError(err error, op string) error {
	switch {
	case errors.Is(err, manifest.ErrMetadataParse), errors.Is(err, manifest.ErrWriteFailed):
		return rperrors.Wrap(err, rperrors.KindFormat, op, "malformed manifest")
	case rperrors.GetKind(err) != rperrors.KindUnknown:
		return err
	default:
		return rperrors.IOWrap(err, op, "manifest access failed")
	}
}

func (s *Service) result(r *run, dryRun, continued bool) *Result {
	res := &Result{
		Package:   r.pkg,
		Version:   r.version.String(),
		Tag:       r.tag,
		State:     r.machine.Current(),
		Steps:     r.results,
		DryRun:    dryRun,
		Continued: continued,
	}
	if !continued {
		res.Previous = r.previous.String()
	}
	return res
}

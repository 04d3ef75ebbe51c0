package release

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/relicta-tech/crateship/internal/domain/release"
	"github.com/relicta-tech/crateship/internal/domain/version"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

// run carries one invocation's release through the step table.
type run struct {
	pkg      string
	previous version.Version
	version  version.Version
	tag      string
	// continuation is set when resuming from a release commit.
	continuation bool
	machine      *release.Machine
	results      []release.StepResult
}

// step is one side-effecting release step. The fresh path and the
// continuation path walk the same table and differ only in where they enter.
type step struct {
	name        release.StepName
	idempotency release.Idempotency
	exec        func(ctx context.Context, r *run) (release.Outcome, string, error)
}

func (s *Service) steps() []step {
	return []step{
		{name: release.StepStage, idempotency: release.IdempotentOnce, exec: s.stage},
		{name: release.StepCommit, idempotency: release.IdempotentOnce, exec: s.commit},
		{name: release.StepPublish, idempotency: release.IdempotentRetry, exec: s.publish},
		{name: release.StepTag, idempotency: release.IdempotentProbe, exec: s.tag},
		{name: release.StepPush, idempotency: release.IdempotentRerun, exec: s.push},
	}
}

// runSteps executes the table from first through last inclusive, advancing
// the machine after every step. The first failure stops the walk.
func (s *Service) runSteps(ctx context.Context, r *run, first, last release.StepName) error {
	started := false
	for _, st := range s.steps() {
		if st.name == first {
			started = true
		}
		if !started {
			continue
		}

		if err := canceled(ctx, "release."+string(st.name)); err != nil {
			return err
		}

		logger := s.deps.Logger.With("step", st.name, "version", r.version.String(), "tag", r.tag)
		logger.Debug("step starting", "idempotency", st.idempotency)

		begin := s.deps.Clock.Now()
		outcome, msg, err := st.exec(ctx, r)
		if err != nil {
			logger.Error("step failed", "err", err)
			return err
		}
		if err := r.machine.Advance(st.name.Event()); err != nil {
			return rperrors.Wrap(err, rperrors.KindState, "release."+string(st.name), "release steps ran out of order")
		}

		res := release.StepResult{
			Step:     st.name,
			Outcome:  outcome,
			Duration: s.deps.Clock.Now().Sub(begin),
			Message:  msg,
		}
		r.results = append(r.results, res)

		switch outcome {
		case release.OutcomeAlreadyPublished:
			logger.Warn("step finished", "outcome", outcome, "detail", msg)
		default:
			logger.Info("step finished", "outcome", outcome, "duration", res.Duration)
		}

		if st.name == last {
			return nil
		}
	}
	if !started {
		return rperrors.Newf(rperrors.KindInternal, "unknown step %q", first)
	}
	return nil
}

// stage writes the new version and changelog entry and insists the result is
// a non-empty diff.
func (s *Service) stage(ctx context.Context, r *run) (release.Outcome, string, error) {
	const op = "release.Stage"

	if _, err := s.deps.Manifest.WriteVersion(ctx, s.path(s.opts.ManifestPath), r.version); err != nil {
		return "", "", classifyManifestError(err, op)
	}

	if s.deps.Changelog != nil {
		if err := s.deps.Changelog.Generate(ctx, r.tag); err != nil {
			return "", "", fmt.Errorf("failed to generate changelog: %w", err)
		}
	}

	status, err := s.deps.Repo.StatusPorcelain(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to read working tree status: %w", err)
	}
	if status == "" {
		return "", "", rperrors.Wrap(release.ErrNoChangesProduced, rperrors.KindNoProgress, op, "aborting")
	}
	return release.OutcomeDone, strings.Join(changedPaths(status), ", "), nil
}

// commit stages the manifest, lock file and changelog and records the
// release commit. Files the working tree did not change are left out, which
// covers packages without a committed lock file.
func (s *Service) commit(ctx context.Context, r *run) (release.Outcome, string, error) {
	status, err := s.deps.Repo.StatusPorcelain(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to read working tree status: %w", err)
	}
	changed := make(map[string]bool)
	for _, p := range changedPaths(status) {
		changed[p] = true
	}

	var paths []string
	for _, p := range s.releasePaths() {
		if changed[p] {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return "", "", rperrors.Wrap(release.ErrNoChangesProduced, rperrors.KindNoProgress, "release.Commit",
			"none of the release files changed")
	}

	if err := s.deps.Repo.Stage(ctx, paths...); err != nil {
		return "", "", asStepError(err, release.StepCommit)
	}
	msg := release.CommitMessage(r.version)
	if err := s.deps.Repo.Commit(ctx, msg); err != nil {
		return "", "", asStepError(err, release.StepCommit)
	}
	return release.OutcomeDone, msg, nil
}

// releasePaths are the files a release commit may contain, in the form
// StatusPorcelain reports them.
func (s *Service) releasePaths() []string {
	var paths []string
	for _, p := range []string{s.opts.ManifestPath, s.opts.LockPath, s.opts.ChangelogPath} {
		if p != "" {
			paths = append(paths, filepath.ToSlash(p))
		}
	}
	return paths
}

// publish uploads the package. A fresh release treats an already-published
// version as fatal; a continuation follows the configured policy.
func (s *Service) publish(ctx context.Context, r *run) (release.Outcome, string, error) {
	const op = "release.Publish"

	err := s.deps.Registry.Publish(ctx)
	if err == nil {
		return release.OutcomeDone, "", nil
	}
	if cerr := canceled(ctx, op); cerr != nil {
		return "", "", cerr
	}

	if errors.Is(err, release.ErrAlreadyPublished) {
		if r.continuation && s.opts.AlreadyPublished == PolicyWarn {
			return release.OutcomeAlreadyPublished,
				fmt.Sprintf("%s %s is already on the registry", r.pkg, r.version), nil
		}
		return "", "", rperrors.Wrapf(err, rperrors.KindExternal, op,
			"%s %s is already published", r.pkg, r.version)
	}

	if !errors.Is(err, release.ErrPublishFailed) {
		err = fmt.Errorf("%w: %w", release.ErrPublishFailed, err)
	}
	return "", "", rperrors.Wrap(err, rperrors.KindExternal, op,
		"publish failed; the release commit is in place, re-run with --continue").
		WithDetail("version", r.version.String())
}

// tag creates the annotated release tag unless it already exists.
func (s *Service) tag(ctx context.Context, r *run) (release.Outcome, string, error) {
	exists, err := s.deps.Repo.TagExists(ctx, r.tag)
	if err != nil {
		return "", "", asStepError(err, release.StepTag)
	}
	if exists {
		return release.OutcomeSkipped, fmt.Sprintf("tag %s already exists", r.tag), nil
	}
	if err := s.deps.Repo.CreateAnnotatedTag(ctx, r.tag, release.TagMessage(r.version)); err != nil {
		return "", "", asStepError(err, release.StepTag)
	}
	return release.OutcomeDone, r.tag, nil
}

// push pushes the branch and then, separately, the tags.
func (s *Service) push(ctx context.Context, _ *run) (release.Outcome, string, error) {
	if err := s.deps.Repo.PushBranch(ctx); err != nil {
		return "", "", asStepError(err, release.StepPush)
	}
	if err := s.deps.Repo.PushTags(ctx); err != nil {
		return "", "", asStepError(err, release.StepPush)
	}
	return release.OutcomeDone, "", nil
}

// changedPaths extracts paths from a porcelain listing ("XY path" lines,
// "XY old -> new" for renames).
func changedPaths(status string) []string {
	var paths []string
	for _, line := range strings.Split(status, "\n") {
		if len(line) < 4 {
			continue
		}
		p := line[3:]
		if i := strings.Index(p, " -> "); i >= 0 {
			p = p[i+4:]
		}
		paths = append(paths, strings.Trim(p, `"`))
	}
	return paths
}

package release

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/crateship/internal/domain/release"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

const releasedManifest = `[package]
name = "demo"
version = "2.0.0"
`

// committedHarness simulates a release that stopped right after its commit.
func committedHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, releasedManifest)
	h.repo.subjects = append(h.repo.subjects, "release v2.0.0")
	return h
}

func TestContinue_PublishesTagsAndPushes(t *testing.T) {
	h := committedHarness(t)

	res, err := h.svc.Continue(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Continued)
	assert.Equal(t, "2.0.0", res.Version)
	assert.Equal(t, "v2.0.0", res.Tag)
	assert.Equal(t, release.StatePushed, res.State)
	assert.Equal(t, 1, h.registry.calls)
	assert.Equal(t, []string{"tag v2.0.0", "push-branch", "push-tags"}, h.repo.mutatingCalls())
	assert.Equal(t, "release v2.0.0", h.repo.tags["v2.0.0"])
}

func TestContinue_SkipsExistingTag(t *testing.T) {
	h := committedHarness(t)
	h.repo.tags["v2.0.0"] = "release v2.0.0"

	res, err := h.svc.Continue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, h.registry.calls, "publish is retried")
	assert.Equal(t, []string{"push-branch", "push-tags"}, h.repo.mutatingCalls())

	outcomes := map[release.StepName]release.Outcome{}
	for _, s := range res.Steps {
		outcomes[s.Step] = s.Outcome
	}
	assert.Equal(t, map[release.StepName]release.Outcome{
		release.StepPublish: release.OutcomeDone,
		release.StepTag:     release.OutcomeSkipped,
		release.StepPush:    release.OutcomeDone,
	}, outcomes)
	assert.Equal(t, release.StatePushed, res.State)
}

func TestContinue_NotAReleaseCommit(t *testing.T) {
	h := newHarness(t, releasedManifest)
	h.repo.subjects = append(h.repo.subjects, "fix bug")

	_, err := h.svc.Continue(context.Background())
	assert.ErrorIs(t, err, release.ErrNotAReleaseCommit)
	assert.True(t, rperrors.IsKind(err, rperrors.KindContinuation))
	assert.Contains(t, err.Error(), `"fix bug"`)

	assert.Empty(t, h.repo.mutatingCalls())
	assert.Zero(t, h.registry.calls)
}

func TestContinue_SubjectMustMatchExactly(t *testing.T) {
	for _, subject := range []string{"release v2.0.0 (hotfix)", "Release v2.0.0", "release 2.0.0", "release v2.0"} {
		h := newHarness(t, releasedManifest)
		h.repo.subjects = append(h.repo.subjects, subject)

		_, err := h.svc.Continue(context.Background())
		assert.ErrorIs(t, err, release.ErrNotAReleaseCommit, subject)
		assert.Zero(t, h.registry.calls)
	}
}

func TestContinue_VersionMismatch(t *testing.T) {
	h := newHarness(t, releasedManifest)
	h.repo.subjects = append(h.repo.subjects, "release v1.9.0")

	_, err := h.svc.Continue(context.Background())
	assert.ErrorIs(t, err, release.ErrVersionMismatch)
	assert.True(t, rperrors.IsKind(err, rperrors.KindContinuation))
	assert.Contains(t, err.Error(), "2.0.0")
	assert.Contains(t, err.Error(), "1.9.0")
	assert.Empty(t, h.repo.mutatingCalls())
	assert.Zero(t, h.registry.calls)
}

func TestContinue_SkipsPreconditions(t *testing.T) {
	h := committedHarness(t)
	h.repo.branch = "hotfix"
	writeFile(t, h.root, "scratch.txt", "x")

	_, err := h.svc.Continue(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, h.repo.calls, "branch")
}

func TestContinue_AlreadyPublishedWarns(t *testing.T) {
	h := committedHarness(t)
	h.registry.errs = []error{release.ErrAlreadyPublished}

	res, err := h.svc.Continue(context.Background())
	require.NoError(t, err)

	assert.True(t, res.AlreadyPublished())
	assert.Equal(t, release.OutcomeAlreadyPublished, res.Steps[0].Outcome)
	assert.Contains(t, res.Steps[0].Message, "already on the registry")
	assert.Equal(t, []string{"tag v2.0.0", "push-branch", "push-tags"}, h.repo.mutatingCalls())
}

func TestContinue_AlreadyPublishedFailPolicy(t *testing.T) {
	h := committedHarness(t)
	opts := DefaultOptions(h.root)
	opts.AlreadyPublished = PolicyFail
	svc := h.service(t, opts)
	h.registry.errs = []error{release.ErrAlreadyPublished}

	res, err := svc.Continue(context.Background())
	assert.ErrorIs(t, err, release.ErrAlreadyPublished)
	assert.True(t, rperrors.IsKind(err, rperrors.KindExternal))
	assert.Equal(t, release.StateCommitted, res.State)
	assert.Empty(t, h.repo.mutatingCalls())
}

func TestContinue_PublishFailureIsDistinct(t *testing.T) {
	h := committedHarness(t)
	h.registry.errs = []error{errors.New("503 service unavailable")}

	_, err := h.svc.Continue(context.Background())
	assert.ErrorIs(t, err, release.ErrPublishFailed)
	assert.NotErrorIs(t, err, release.ErrAlreadyPublished)
	assert.Empty(t, h.repo.mutatingCalls())
}

func TestContinue_Repeatable(t *testing.T) {
	h := committedHarness(t)
	h.repo.failTag = errors.New("disk full")

	_, err := h.svc.Continue(context.Background())
	require.Error(t, err)

	h.repo.failTag = nil
	h.registry.errs = []error{release.ErrAlreadyPublished}
	res, err := h.svc.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, release.StatePushed, res.State)
	assert.Equal(t, 2, h.registry.calls)
}

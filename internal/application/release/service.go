// Package release implements the release sequencer: the fresh release path,
// the continuation path that resumes an interrupted release, and a read-only
// observer of release state.
package release

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/crateship/internal/domain/release"
	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	"github.com/relicta-tech/crateship/internal/domain/version"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
	"github.com/relicta-tech/crateship/internal/manifest"
)

// AlreadyPublishedPolicy decides what a continuation does when the registry
// already has the version.
type AlreadyPublishedPolicy string

const (
	// PolicyWarn records the step as already_published, warns, and continues.
	PolicyWarn AlreadyPublishedPolicy = "warn"
	// PolicyFail stops the continuation with a publish failure.
	PolicyFail AlreadyPublishedPolicy = "fail"
)

// Manifest reads the package identity and rewrites its version.
type Manifest interface {
	ReadNameAndVersion(path string) (manifest.Metadata, error)
	WriteVersion(ctx context.Context, path string, v version.Version) (bool, error)
}

// Dependencies are the collaborators a Service drives.
type Dependencies struct {
	Repo      ports.Repository
	Registry  ports.Registry
	Manifest  Manifest
	Changelog ports.ChangelogGenerator
	Editor    ports.Editor
	Decider   ports.Decider
	Clock     ports.Clock
	Logger    *log.Logger
}

// Options locate the package and set release policy. Paths are relative to
// Root, which is also the directory the repository was opened at.
type Options struct {
	Root             string
	Branch           string
	ManifestPath     string
	LockPath         string
	ChangelogPath    string
	AlreadyPublished AlreadyPublishedPolicy
}

// DefaultOptions returns the options for a Cargo package at root.
func DefaultOptions(root string) Options {
	return Options{
		Root:             root,
		Branch:           "main",
		ManifestPath:     "Cargo.toml",
		LockPath:         "Cargo.lock",
		ChangelogPath:    "CHANGELOG.md",
		AlreadyPublished: PolicyWarn,
	}
}

// Result describes what an invocation did.
type Result struct {
	Package   string               `json:"package" yaml:"package"`
	Previous  string               `json:"previous,omitempty" yaml:"previous,omitempty"`
	Version   string               `json:"version" yaml:"version"`
	Tag       string               `json:"tag" yaml:"tag"`
	State     release.State        `json:"state" yaml:"state"`
	Steps     []release.StepResult `json:"steps" yaml:"steps"`
	DryRun    bool                 `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Continued bool                 `json:"continued,omitempty" yaml:"continued,omitempty"`
}

// AlreadyPublished reports whether the publish step found the version on the
// registry already.
func (r *Result) AlreadyPublished() bool {
	for _, s := range r.Steps {
		if s.Step == release.StepPublish && s.Outcome == release.OutcomeAlreadyPublished {
			return true
		}
	}
	return false
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Service runs releases.
type Service struct {
	deps Dependencies
	opts Options
	pre  *Preconditions
}

// NewService creates a Service.
func NewService(deps Dependencies, opts Options) (*Service, error) {
	const op = "release.NewService"

	if err := opts.Validate(); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "invalid release options")
	}
	if deps.Repo == nil || deps.Registry == nil || deps.Manifest == nil {
		return nil, rperrors.New(rperrors.KindInternal, "repository, registry and manifest writer are required")
	}
	if deps.Clock == nil {
		deps.Clock = wallClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	return &Service{deps: deps, opts: opts, pre: NewPreconditions(deps.Repo)}, nil
}

func (s *Service) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.opts.Root, rel)
}

// canceled converts a context error into a KindCanceled error, or returns nil.
func canceled(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return rperrors.Wrap(err, rperrors.KindCanceled, op, "release interrupted")
	}
	return nil
}

// asStepError keeps already-classified errors and classifies the rest as
// external failures of step.
func asStepError(err error, step release.StepName) error {
	var rerr *rperrors.Error
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s: %w", step, err)
	}
	return rperrors.ExternalWrap(err, "release."+string(step), fmt.Sprintf("%s step failed", step))
}

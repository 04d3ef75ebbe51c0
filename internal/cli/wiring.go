package cli

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	apprelease "github.com/relicta-tech/crateship/internal/application/release"
	"github.com/relicta-tech/crateship/internal/config"
	"github.com/relicta-tech/crateship/internal/infrastructure/cargo"
	"github.com/relicta-tech/crateship/internal/infrastructure/changelog"
	"github.com/relicta-tech/crateship/internal/infrastructure/editor"
	"github.com/relicta-tech/crateship/internal/infrastructure/git"
	"github.com/relicta-tech/crateship/internal/manifest"
	"github.com/relicta-tech/crateship/internal/security"
	"github.com/relicta-tech/crateship/internal/ui"
)

// serviceFactory builds the release service for the package at root.
// Tests replace it to swap collaborators.
var serviceFactory = newReleaseService

// releaseOptions maps configuration onto sequencer options.
func releaseOptions(root string, c *config.Config) apprelease.Options {
	return apprelease.Options{
		Root:             root,
		Branch:           c.Release.Branch,
		ManifestPath:     c.Release.Manifest,
		LockPath:         c.Release.Lockfile,
		ChangelogPath:    c.Release.Changelog,
		AlreadyPublished: apprelease.AlreadyPublishedPolicy(c.Release.AlreadyPublished),
	}
}

// gitOptions maps configuration onto repository options.
func gitOptions(root string, c *config.Config) git.Options {
	return git.Options{
		Path:             root,
		Remote:           c.Git.Remote,
		CLIPush:          c.Git.CLIPush,
		GitBinary:        c.Git.Binary,
		PushAttempts:     c.Git.PushAttempts,
		PushInitialDelay: c.Git.PushRetryDelay,
		AuthorName:       c.Git.AuthorName,
		AuthorEmail:      c.Git.AuthorEmail,
	}
}

// cargoConfig maps configuration onto the cargo collaborators.
func cargoConfig(root string, c *config.Config) cargo.Config {
	cc := cargo.DefaultConfig(root)
	cc.Command = c.Registry.Command
	cc.Registry = c.Registry.Registry
	cc.Token = c.Registry.Token
	cc.AllowDirty = c.Registry.AllowDirty
	cc.NoVerify = c.Registry.NoVerify
	cc.Features = c.Registry.Features
	if len(c.Lock.Command) > 0 {
		cc.LockCommand = c.Lock.Command
	}
	cc.Output = security.NewMaskedWriter(os.Stderr)
	return cc
}

// newReleaseService wires the real collaborators.
func newReleaseService(root string, c *config.Config, logger *log.Logger) (*apprelease.Service, error) {
	repo, err := git.Open(gitOptions(root, c), logger)
	if err != nil {
		return nil, err
	}

	cc := cargoConfig(root, c)
	gen, err := changelog.New(repo, changelog.Options{
		Path:          filepath.Join(root, c.Release.Changelog),
		Title:         c.Changelog.Title,
		IncludeHashes: c.Changelog.IncludeHashes,
		TemplatePath:  c.Changelog.Template,
	}, nil, logger)
	if err != nil {
		return nil, err
	}

	return apprelease.NewService(apprelease.Dependencies{
		Repo:      repo,
		Registry:  cargo.NewPublisher(cc, logger),
		Manifest:  manifest.NewWriter(cargo.NewLockRefresher(cc, logger)),
		Changelog: gen,
		Editor:    editor.New(c.Editor),
		Decider:   ui.NewDecider(ui.Mode(c.UI.Confirm), os.Stdin, os.Stdout),
		Logger:    logger,
	}, releaseOptions(root, c))
}

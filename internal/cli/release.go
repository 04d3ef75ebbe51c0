package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apprelease "github.com/relicta-tech/crateship/internal/application/release"
	"github.com/relicta-tech/crateship/internal/domain/release"
	"github.com/relicta-tech/crateship/internal/domain/version"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

var (
	releaseDryRun   bool
	releaseContinue bool
)

var releaseCmd = &cobra.Command{
	Use:   "release [patch|minor|major|current]",
	Short: "Cut a release of the package",
	Long: `Bump the manifest version, write a changelog entry and release it.

The release runs on the configured branch from a clean working tree:
  1. bump the version in the manifest and refresh the lock file
  2. prepend a changelog entry built from commits since the last tag
  3. open the changelog in $EDITOR and ask for confirmation
  4. commit "release vX.Y.Z", publish, tag vX.Y.Z and push

If publishing or pushing fails, fix the cause and run
'crateship release --continue'. It finds the release commit at HEAD and
finishes publish, tag and push, skipping whatever is already done.

Examples:
  # Release the next minor version
  crateship release minor

  # Preview the version bump and changelog without committing
  crateship release patch --dry-run

  # Finish an interrupted release
  crateship release --continue`,
	Args:      validateReleaseArgs,
	ValidArgs: []string{"patch", "minor", "major", "current"},
	RunE:      runRelease,
}

func init() {
	releaseCmd.Flags().BoolVar(&releaseDryRun, "dry-run", false, "generate the changelog only; don't commit, publish or push")
	releaseCmd.Flags().BoolVar(&releaseContinue, "continue", false, "continue a failed release (publish, tag and push)")
}

func validateReleaseArgs(cmd *cobra.Command, args []string) error {
	const op = "cli.release"

	if releaseContinue {
		if len(args) > 0 {
			return rperrors.New(rperrors.KindConfig, "--continue does not take a bump argument")
		}
		if releaseDryRun {
			return rperrors.New(rperrors.KindConfig, "--dry-run cannot be combined with --continue")
		}
		return nil
	}
	if len(args) == 0 {
		return rperrors.New(rperrors.KindConfig, "bump is required unless using --continue")
	}
	if len(args) > 1 {
		return rperrors.Newf(rperrors.KindConfig, "expected one bump argument, got %d", len(args))
	}
	if _, err := version.ParseBumpKind(args[0]); err != nil {
		return rperrors.Wrap(err, rperrors.KindFormat, op, "invalid bump argument")
	}
	return nil
}

func runRelease(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	root, err := requireProjectRoot()
	if err != nil {
		return err
	}
	svc, err := serviceFactory(root, cfg, logger)
	if err != nil {
		return err
	}

	if releaseContinue {
		obs, _, err := svc.Observe(ctx)
		if err == nil && release.Resumable(*obs) {
			printInfo(out, fmt.Sprintf("Continuing release of %s v%s", obs.Package, obs.ManifestVersion))
		}
		res, err := svc.Continue(ctx)
		if err != nil {
			return err
		}
		return reportRelease(out, res)
	}

	kind, _ := version.ParseBumpKind(args[0])
	res, err := svc.Release(ctx, apprelease.ReleaseInput{Bump: kind, DryRun: releaseDryRun})
	if err != nil {
		if errors.Is(err, release.ErrDeclined) {
			fmt.Fprintln(out, "Aborting release.")
			return reported(err)
		}
		return err
	}
	return reportRelease(out, res)
}

// reportRelease prints the outcome of a finished invocation.
func reportRelease(out io.Writer, res *apprelease.Result) error {
	if IsJSONOutput() || cfg.Output.Format == "yaml" {
		return writeStructured(out, cfg.Output.Format, res)
	}

	if res.DryRun {
		printSuccess(out, fmt.Sprintf("Dry run complete for %s v%s", res.Package, res.Version))
		printSubtle(out, "Changes staged but not committed. Run 'git diff' to review.")
		return nil
	}

	if cfg.Output.Verbose {
		for _, s := range res.Steps {
			line := fmt.Sprintf("  %-8s %s", s.Step, s.Outcome)
			if s.Message != "" {
				line += "  " + s.Message
			}
			printSubtle(out, line)
		}
	}
	if res.AlreadyPublished() {
		printWarning(out, fmt.Sprintf("%s v%s was already on the registry; tagged and pushed without publishing", res.Package, res.Version))
	}
	printSuccess(out, fmt.Sprintf("Released %s v%s", res.Package, res.Version))
	return nil
}

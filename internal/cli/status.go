package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/crateship/internal/domain/release"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the current release stands",
	Long: `Inspect the repository and report the release state.

The state is read from version control every time; nothing is stored
between runs:
  clean           no release in progress
  version_staged  the manifest version is edited but not committed
  committed       HEAD is a release commit without its tag (publish may
                  or may not have happened)
  tagged          the release tag exists but the branch is not pushed
  pushed          the release is complete

Examples:
  crateship status
  crateship status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "", "output format: text, json or yaml (default: output.format)")
}

// StatusOutput represents the status command output.
type StatusOutput struct {
	State       release.State       `json:"state" yaml:"state"`
	Resumable   bool                `json:"resumable" yaml:"resumable"`
	Observation release.Observation `json:"observation" yaml:"observation"`
	NextSteps   []string            `json:"next_steps,omitempty" yaml:"next_steps,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format := statusFormat
	if format == "" {
		format = cfg.Output.Format
	}
	switch format {
	case "text", "json", "yaml":
	default:
		return rperrors.Newf(rperrors.KindConfig, "unsupported format %q: use text, json or yaml", format)
	}

	root, err := requireProjectRoot()
	if err != nil {
		return err
	}
	svc, err := serviceFactory(root, cfg, logger)
	if err != nil {
		return err
	}

	obs, state, err := svc.Observe(ctx)
	if err != nil {
		return err
	}

	output := &StatusOutput{
		State:       state,
		Resumable:   release.Resumable(*obs),
		Observation: *obs,
		NextSteps:   nextSteps(state, *obs),
	}

	if format == "text" {
		outputStatusText(cmd.OutOrStdout(), output)
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), format, output)
}

// nextSteps suggests what to run from state.
func nextSteps(state release.State, obs release.Observation) []string {
	if state.IsFinal() {
		return nil
	}
	switch state {
	case release.StateClean:
		if obs.Dirty() {
			return []string{"commit or stash local changes", "crateship release <patch|minor|major|current>"}
		}
		return []string{"crateship release <patch|minor|major|current>"}
	case release.StateVersionStaged:
		return []string{"git diff (review the staged release)", "git checkout -- . (discard it)"}
	case release.StateCommitted, release.StateTagged:
		return []string{"crateship release --continue"}
	default:
		return nil
	}
}

func outputStatusText(w io.Writer, s *StatusOutput) {
	o := s.Observation

	printTitle(w, "Release status")
	fmt.Fprintf(w, "  Package:  %s v%s\n", o.Package, o.ManifestVersion)
	fmt.Fprintf(w, "  Branch:   %s\n", o.Branch)
	fmt.Fprintf(w, "  HEAD:     %s\n", o.HeadSubject)
	if o.LatestTag != "" {
		fmt.Fprintf(w, "  Last tag: %s\n", o.LatestTag)
	}
	fmt.Fprintf(w, "  State:    %s\n", styles.Bold.Render(s.State.String()))
	if o.Dirty() {
		printWarning(w, "working tree has uncommitted changes")
	}
	if o.BehindLatestTag() {
		printWarning(w, fmt.Sprintf("manifest version %s is behind the latest tag %s", o.ManifestVersion, o.LatestTag))
	}
	if s.State.IsFinal() {
		printSuccess(w, fmt.Sprintf("Release of %s v%s is complete.", o.Package, o.ManifestVersion))
	}
	if s.State == release.StateCommitted {
		printSubtle(w, "  The registry is not checked; publish may already have happened.")
	}
	if len(s.NextSteps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Next steps:")
		for _, step := range s.NextSteps {
			fmt.Fprintf(w, "  %s\n", step)
		}
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/crateship/internal/version"
)

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		v := versionInfo.Version
		if v == "" || v == "dev" {
			v = version.Get()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "crateship %s\n", v)
		if verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", versionInfo.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", versionInfo.Date)
		}
	},
}

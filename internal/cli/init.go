package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/crateship/internal/config"
	"github.com/relicta-tech/crateship/internal/fileutil"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default crateship configuration",
	Long: `Write .crateship.yaml with the default settings to the project root
(the nearest directory with a Cargo.toml), or to the current directory
when there is none. Edit the file to change the release branch, registry
or changelog layout.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dir, err := locateProjectRoot()
	if errors.Is(err, fileutil.ErrNotFound) {
		dir, err = os.Getwd()
	}
	if err != nil {
		return err
	}

	if existing, findErr := config.FindConfigFile(dir); findErr == nil && !initForce {
		printWarning(out, fmt.Sprintf("%s already exists; use --force to overwrite", existing))
		return reported(config.ErrConfigExists)
	}

	path := filepath.Join(dir, config.ConfigFileNames[0]+".yaml")
	if err := config.WriteDefaultConfig(path, initForce); err != nil {
		return err
	}

	printSuccess(out, "Created "+path)
	printSubtle(out, "Set registry.token to ${CARGO_REGISTRY_TOKEN} if cargo has no stored credentials.")
	return nil
}

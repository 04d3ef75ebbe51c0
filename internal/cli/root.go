// Package cli provides the command-line interface for crateship.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/relicta-tech/crateship/internal/config"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
	"github.com/relicta-tech/crateship/internal/fileutil"
)

var (
	// Version information set by main.
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	// Global flags
	cfgFile    string
	verbose    bool
	outputJSON bool
	noColor    bool
	logLevel   string

	// Global config
	cfg *config.Config

	// projectRoot is the directory holding the manifest, or "" when the
	// working directory is not inside a package.
	projectRoot string

	// Logger
	logger *log.Logger

	// logFile holds the log file handle for cleanup
	logFile *os.File

	// runID tags every log line of one invocation.
	runID string

	// Styles
	styles = struct {
		Title   lipgloss.Style
		Success lipgloss.Style
		Error   lipgloss.Style
		Warning lipgloss.Style
		Info    lipgloss.Style
		Subtle  lipgloss.Style
		Bold    lipgloss.Style
	}{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		Subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Bold:    lipgloss.NewStyle().Bold(true),
	}
)

// SetVersionInfo sets the version information from main.
func SetVersionInfo(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "crateship",
	Short: "Release a Cargo crate: bump, changelog, commit, publish, tag, push",
	Long: `crateship cuts a release of the Cargo package in the current directory.

It bumps the manifest version, writes a changelog entry, lets you review it,
then commits, publishes to the registry, tags and pushes. If a release stops
half way, 'crateship release --continue' picks it up from the release commit.

Get started with 'crateship init' to write a configuration file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version commands
		if cmd.Name() == "init" || cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context for graceful shutdown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	logger = newLogger(os.Stderr)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: .crateship.yaml in the project root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results and logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(statusCmd)
}

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})
}

// locateProjectRoot walks up from the working directory to the manifest.
func locateProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", rperrors.IOWrap(err, "cli.locateProjectRoot", "failed to get working directory")
	}
	root, err := fileutil.FindUp(cwd, filepath.Base(config.DefaultConfig().Release.Manifest))
	if err != nil {
		return "", err
	}
	return root, nil
}

// requireProjectRoot fails when the command runs outside a package.
func requireProjectRoot() (string, error) {
	if projectRoot == "" {
		return "", rperrors.Precondition("cli", fmt.Sprintf("%s not found in current directory or parents",
			filepath.Base(cfg.Release.Manifest)))
	}
	return projectRoot, nil
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig() error {
	loader := config.NewLoader()

	if cfgFile != "" {
		loader.WithConfigPath(cfgFile)
	} else if projectRoot != "" {
		loader.WithSearchPaths(projectRoot)
	}

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Changelog.Template != "" && !filepath.IsAbs(cfg.Changelog.Template) && projectRoot != "" {
		cfg.Changelog.Template = filepath.Join(projectRoot, cfg.Changelog.Template)
	}

	validator := config.NewValidator()
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range append(loader.Warnings(), validator.Warnings()...) {
		logger.Warn(w)
	}
	if used := loader.ConfigFileUsed(); used != "" {
		logger.Debug("loaded configuration", "path", used)
	}
	return nil
}

// applyGlobalFlags applies global CLI flags to the configuration.
func applyGlobalFlags(cmd *cobra.Command) {
	if verbose {
		cfg.Output.Verbose = true
	}
	if outputJSON {
		cfg.Output.Format = "json"
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Output.LogLevel = logLevel
	}
	if noColor {
		cfg.Output.Color = false
	}
	if !cfg.Output.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// configureLoggerFormat configures the logger format based on settings.
func configureLoggerFormat() {
	if cfg.Output.Format == "json" {
		logger.SetFormatter(log.JSONFormatter)
		logger.SetReportTimestamp(true)
	} else {
		logger.SetFormatter(log.TextFormatter)
	}
}

// configureLogLevel sets the logger level based on configuration.
func configureLogLevel() {
	switch cfg.Output.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if cfg.Output.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
}

// configureLogFile sets up log file output if specified.
func configureLogFile() error {
	if cfg.Output.LogFile == "" {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(cfg.Output.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return rperrors.IOWrap(err, "cli.configureLogFile", "failed to open log file")
	}
	logger.SetOutput(logFile)
	return nil
}

// initConfig locates the project, reads in the config file and ENV
// variables, and configures logging.
func initConfig(cmd *cobra.Command) error {
	root, err := locateProjectRoot()
	switch {
	case err == nil:
		projectRoot = root
	case errors.Is(err, fileutil.ErrNotFound):
		projectRoot = ""
	default:
		return err
	}

	if err := loadAndValidateConfig(); err != nil {
		return err
	}

	applyGlobalFlags(cmd)
	configureLoggerFormat()
	configureLogLevel()
	if err := configureLogFile(); err != nil {
		return err
	}

	runID = uuid.NewString()
	logger = logger.With("run_id", runID)
	logger.Debug("starting", "command", cmd.Name(), "root", projectRoot, "version", versionInfo.Version)
	return nil
}

// Cleanup closes any open resources. Should be called before program exit.
func Cleanup() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Helper functions for output

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Success.Render(msg))
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Warning.Render("⚠ "+msg))
}

func printInfo(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Info.Render(msg))
}

func printTitle(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Title.Render(msg))
}

func printSubtle(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Subtle.Render(msg))
}

// IsJSONOutput returns true if JSON output is enabled.
func IsJSONOutput() bool {
	return outputJSON || (cfg != nil && cfg.Output.Format == "json")
}

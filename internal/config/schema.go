// Package config provides configuration management for crateship.
package config

import "time"

// Config is the root configuration.
type Config struct {
	// Release locates the package files and sets release policy.
	Release ReleaseConfig `mapstructure:"release" json:"release" yaml:"release"`
	// Git configures the version-control collaborator.
	Git GitConfig `mapstructure:"git" json:"git" yaml:"git"`
	// Registry configures `cargo publish`.
	Registry RegistryConfig `mapstructure:"registry" json:"registry" yaml:"registry"`
	// Lock configures the lock file refresh after a version edit.
	Lock LockConfig `mapstructure:"lock" json:"lock" yaml:"lock"`
	// Changelog configures changelog generation.
	Changelog ChangelogConfig `mapstructure:"changelog" json:"changelog" yaml:"changelog"`
	// Editor overrides $EDITOR for changelog review.
	Editor string `mapstructure:"editor" json:"editor,omitempty" yaml:"editor,omitempty"`
	// UI configures the release confirmation.
	UI UIConfig `mapstructure:"ui" json:"ui" yaml:"ui"`
	// Output configures logging and output.
	Output OutputConfig `mapstructure:"output" json:"output" yaml:"output"`
}

// ReleaseConfig locates the package files and sets release policy. Paths are
// relative to the project root.
type ReleaseConfig struct {
	// Branch is the only branch releases are cut from.
	Branch string `mapstructure:"branch" json:"branch" yaml:"branch"`
	// Manifest is the Cargo manifest.
	Manifest string `mapstructure:"manifest" json:"manifest" yaml:"manifest"`
	// Lockfile is committed with the release when it changed.
	Lockfile string `mapstructure:"lockfile" json:"lockfile" yaml:"lockfile"`
	// Changelog is the changelog file.
	Changelog string `mapstructure:"changelog" json:"changelog" yaml:"changelog"`
	// AlreadyPublished is "warn" or "fail": what --continue does when the
	// registry already has the version.
	AlreadyPublished string `mapstructure:"already_published" json:"already_published" yaml:"already_published"`
}

// GitConfig configures git operations.
type GitConfig struct {
	// Remote is pushed to (default: "origin").
	Remote string `mapstructure:"remote" json:"remote" yaml:"remote"`
	// CLIPush pushes with the git binary so credential helpers and SSH
	// agents apply.
	CLIPush bool `mapstructure:"cli_push" json:"cli_push" yaml:"cli_push"`
	// Binary is the git executable for CLI pushes.
	Binary string `mapstructure:"binary" json:"binary" yaml:"binary"`
	// PushAttempts > 1 retries transient push failures with backoff.
	PushAttempts int `mapstructure:"push_attempts" json:"push_attempts" yaml:"push_attempts"`
	// PushRetryDelay is the first backoff delay.
	PushRetryDelay time.Duration `mapstructure:"push_retry_delay" json:"push_retry_delay" yaml:"push_retry_delay"`
	// AuthorName overrides user.name for release commits and tags.
	AuthorName string `mapstructure:"author_name" json:"author_name,omitempty" yaml:"author_name,omitempty"`
	// AuthorEmail overrides user.email for release commits and tags.
	AuthorEmail string `mapstructure:"author_email" json:"author_email,omitempty" yaml:"author_email,omitempty"`
}

// RegistryConfig configures publishing.
type RegistryConfig struct {
	// Command is the cargo executable.
	Command string `mapstructure:"command" json:"command" yaml:"command"`
	// Registry selects an alternative registry.
	Registry string `mapstructure:"registry" json:"registry,omitempty" yaml:"registry,omitempty"`
	// Token is passed as CARGO_REGISTRY_TOKEN. Supports ${VAR} expansion.
	Token string `mapstructure:"token" json:"token,omitempty" yaml:"token,omitempty"`
	// AllowDirty passes --allow-dirty.
	AllowDirty bool `mapstructure:"allow_dirty" json:"allow_dirty" yaml:"allow_dirty"`
	// NoVerify passes --no-verify.
	NoVerify bool `mapstructure:"no_verify" json:"no_verify" yaml:"no_verify"`
	// Features are enabled while verifying.
	Features []string `mapstructure:"features" json:"features,omitempty" yaml:"features,omitempty"`
}

// LockConfig configures the lock refresh.
type LockConfig struct {
	// Command runs after the manifest version changes.
	Command []string `mapstructure:"command" json:"command" yaml:"command"`
}

// ChangelogConfig configures changelog generation.
type ChangelogConfig struct {
	// Title heads a newly created changelog.
	Title string `mapstructure:"title" json:"title" yaml:"title"`
	// IncludeHashes appends short commit hashes to entries.
	IncludeHashes bool `mapstructure:"include_hashes" json:"include_hashes" yaml:"include_hashes"`
	// Template is an optional text/template file for entries.
	Template string `mapstructure:"template" json:"template,omitempty" yaml:"template,omitempty"`
}

// UIConfig configures the confirmation front end.
type UIConfig struct {
	// Confirm is "prompt" (a [y/N] line) or "tui" (full screen, terminals only).
	Confirm string `mapstructure:"confirm" json:"confirm" yaml:"confirm"`
}

// OutputConfig configures output.
type OutputConfig struct {
	// Format is text, json or yaml.
	Format string `mapstructure:"format" json:"format" yaml:"format"`
	// Color enables colored output.
	Color bool `mapstructure:"color" json:"color" yaml:"color"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose" json:"verbose" yaml:"verbose"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	// LogFile redirects logs to a file.
	LogFile string `mapstructure:"log_file" json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Release: ReleaseConfig{
			Branch:           "main",
			Manifest:         "Cargo.toml",
			Lockfile:         "Cargo.lock",
			Changelog:        "CHANGELOG.md",
			AlreadyPublished: "warn",
		},
		Git: GitConfig{
			Remote:         "origin",
			CLIPush:        true,
			Binary:         "git",
			PushAttempts:   1,
			PushRetryDelay: 2 * time.Second,
		},
		Registry: RegistryConfig{
			Command: "cargo",
		},
		Lock: LockConfig{
			Command: []string{"cargo", "check", "--quiet"},
		},
		Changelog: ChangelogConfig{
			Title:         "Changelog",
			IncludeHashes: true,
		},
		UI: UIConfig{
			Confirm: "prompt",
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			LogLevel: "info",
		},
	}
}

// ConfigFileNames to search for.
var ConfigFileNames = []string{
	".crateship",
}

// ConfigFileExtensions supported by Viper.
var ConfigFileExtensions = []string{
	"yaml",
	"yml",
	"json",
	"toml",
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}
	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning to the validation error.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: &ValidationError{},
	}
}

// Validate validates the configuration. Warnings never fail validation; read
// them with Warnings.
func (v *Validator) Validate(cfg *Config) error {
	v.validateRelease(cfg.Release)
	v.validateGit(cfg.Git)
	v.validateRegistry(cfg.Registry)
	v.validateLock(cfg.Lock)
	v.validateChangelog(cfg.Changelog)
	v.validateUI(cfg.UI)
	v.validateOutput(cfg.Output)

	if v.errors.HasErrors() {
		return rperrors.Config("config.Validate", v.errors.Error())
	}
	return nil
}

// Warnings returns the warnings collected by Validate.
func (v *Validator) Warnings() []string {
	return v.errors.Warnings
}

func (v *Validator) validateRelease(cfg ReleaseConfig) {
	if cfg.Branch == "" {
		v.errors.Addf("release.branch: required")
	}
	if cfg.Manifest == "" {
		v.errors.Addf("release.manifest: required")
	}
	if cfg.Lockfile == "" {
		v.errors.Addf("release.lockfile: required")
	}
	if cfg.Changelog == "" {
		v.errors.Addf("release.changelog: required")
	}
	for _, p := range []struct{ key, path string }{
		{"release.manifest", cfg.Manifest},
		{"release.lockfile", cfg.Lockfile},
		{"release.changelog", cfg.Changelog},
	} {
		if p.path != "" && escapesRoot(p.path) {
			v.errors.Addf("%s: must stay inside the project root, got %q", p.key, p.path)
		}
	}

	validPolicies := []string{"warn", "fail"}
	if !slices.Contains(validPolicies, cfg.AlreadyPublished) {
		v.errors.Addf("release.already_published: must be one of %v, got %q", validPolicies, cfg.AlreadyPublished)
	}
}

func escapesRoot(p string) bool {
	if filepath.IsAbs(p) {
		return true
	}
	clean := filepath.Clean(p)
	return clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

func (v *Validator) validateGit(cfg GitConfig) {
	if cfg.Remote == "" || strings.ContainsAny(cfg.Remote, " \t\n") || strings.HasPrefix(cfg.Remote, "-") {
		v.errors.Addf("git.remote: invalid remote name %q", cfg.Remote)
	} else if rperrors.IsSensitive(cfg.Remote) {
		v.errors.Warnf("git.remote: the remote URL embeds credentials that can end up in logs; use a credential helper")
	}
	if cfg.CLIPush && cfg.Binary == "" {
		v.errors.Addf("git.binary: required when cli_push is enabled")
	}
	if cfg.PushAttempts < 1 {
		v.errors.Addf("git.push_attempts: must be at least 1, got %d", cfg.PushAttempts)
	}
	if cfg.PushAttempts > 1 && cfg.PushRetryDelay <= 0 {
		v.errors.Addf("git.push_retry_delay: must be positive when push_attempts > 1")
	}
	if (cfg.AuthorName == "") != (cfg.AuthorEmail == "") {
		v.errors.Warnf("git: author_name and author_email should be set together; the missing one comes from git config")
	}
}

func (v *Validator) validateRegistry(cfg RegistryConfig) {
	if cfg.Command == "" {
		v.errors.Addf("registry.command: required")
	}
	if cfg.AllowDirty {
		v.errors.Warnf("registry.allow_dirty: publishing from a dirty tree can upload files that are not in the release commit")
	}
}

func (v *Validator) validateLock(cfg LockConfig) {
	if len(cfg.Command) == 0 || strings.TrimSpace(cfg.Command[0]) == "" {
		v.errors.Addf("lock.command: required")
	}
}

func (v *Validator) validateChangelog(cfg ChangelogConfig) {
	if cfg.Template != "" {
		if _, err := os.Stat(cfg.Template); err != nil {
			v.errors.Addf("changelog.template: %v", err)
		}
	}
}

func (v *Validator) validateUI(cfg UIConfig) {
	validModes := []string{"prompt", "tui"}
	if !slices.Contains(validModes, cfg.Confirm) {
		v.errors.Addf("ui.confirm: must be one of %v, got %q", validModes, cfg.Confirm)
	}
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	validFormats := []string{"text", "json", "yaml"}
	if !slices.Contains(validFormats, cfg.Format) {
		v.errors.Addf("output.format: must be one of %v, got %q", validFormats, cfg.Format)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, cfg.LogLevel) {
		v.errors.Addf("output.log_level: must be one of %v, got %q", validLogLevels, cfg.LogLevel)
	}

	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				v.errors.Addf("output.log_file: directory does not exist: %s", dir)
			}
		}
	}
}

// Validate is a convenience function to validate configuration.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

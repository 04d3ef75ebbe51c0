package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	rperrors "github.com/relicta-tech/crateship/internal/errors"
	"github.com/relicta-tech/crateship/internal/fileutil"
)

// ErrConfigExists is returned when init would overwrite a config file.
var ErrConfigExists = errors.New("config file already exists")

// envVarPattern matches ${VAR} or ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
	warnings    []string
}

// NewLoader creates a new configuration loader. Environment variables with
// the CRATESHIP_ prefix override file values, e.g. CRATESHIP_RELEASE_BRANCH.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("CRATESHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths replaces the directories searched for a config file.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = paths
	return l
}

// Load loads the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if err := l.loadConfigFile(); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	if l.v.InConfig("registry.token") && cfg.Registry.Token != "" && !strings.Contains(cfg.Registry.Token, "${") {
		l.warnings = append(l.warnings, "registry.token: literal token in config file; prefer ${CARGO_REGISTRY_TOKEN}")
	}

	l.expandEnvVars(cfg)
	return cfg, nil
}

// Warnings returns problems noticed while loading that do not fail the load.
func (l *Loader) Warnings() []string {
	return l.warnings
}

// setDefaults sets default values using Viper.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("release.branch", d.Release.Branch)
	l.v.SetDefault("release.manifest", d.Release.Manifest)
	l.v.SetDefault("release.lockfile", d.Release.Lockfile)
	l.v.SetDefault("release.changelog", d.Release.Changelog)
	l.v.SetDefault("release.already_published", d.Release.AlreadyPublished)

	l.v.SetDefault("git.remote", d.Git.Remote)
	l.v.SetDefault("git.cli_push", d.Git.CLIPush)
	l.v.SetDefault("git.binary", d.Git.Binary)
	l.v.SetDefault("git.push_attempts", d.Git.PushAttempts)
	l.v.SetDefault("git.push_retry_delay", d.Git.PushRetryDelay)
	l.v.SetDefault("git.author_name", d.Git.AuthorName)
	l.v.SetDefault("git.author_email", d.Git.AuthorEmail)

	l.v.SetDefault("registry.command", d.Registry.Command)
	l.v.SetDefault("registry.registry", d.Registry.Registry)
	l.v.SetDefault("registry.token", d.Registry.Token)
	l.v.SetDefault("registry.allow_dirty", d.Registry.AllowDirty)
	l.v.SetDefault("registry.no_verify", d.Registry.NoVerify)
	l.v.SetDefault("registry.features", d.Registry.Features)

	l.v.SetDefault("lock.command", d.Lock.Command)

	l.v.SetDefault("changelog.title", d.Changelog.Title)
	l.v.SetDefault("changelog.include_hashes", d.Changelog.IncludeHashes)
	l.v.SetDefault("changelog.template", d.Changelog.Template)

	l.v.SetDefault("editor", d.Editor)
	l.v.SetDefault("ui.confirm", d.UI.Confirm)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.color", d.Output.Color)
	l.v.SetDefault("output.verbose", d.Output.Verbose)
	l.v.SetDefault("output.log_level", d.Output.LogLevel)
	l.v.SetDefault("output.log_file", d.Output.LogFile)
}

// loadConfigFile loads the configuration file, if any.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	path, err := FindConfigFile(l.searchPaths...)
	if err != nil {
		// No config file found - this is OK, we use defaults
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// expandEnvVars expands ${VAR} references in fields that commonly hold
// secrets or machine-specific paths.
func (l *Loader) expandEnvVars(cfg *Config) {
	cfg.Registry.Token = expandEnvVar(cfg.Registry.Token)
	cfg.Registry.Registry = expandEnvVar(cfg.Registry.Registry)
	cfg.Git.AuthorName = expandEnvVar(cfg.Git.AuthorName)
	cfg.Git.AuthorEmail = expandEnvVar(cfg.Git.AuthorEmail)
	cfg.Editor = expandEnvVar(cfg.Editor)
	cfg.Changelog.Template = expandEnvVar(cfg.Changelog.Template)
	cfg.Output.LogFile = expandEnvVar(cfg.Output.LogFile)
}

// expandEnvVar expands ${VAR} and ${VAR:-default} in s.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if value := os.Getenv(submatch[1]); value != "" {
			return value
		}
		return submatch[2]
	})
}

// ConfigFileUsed returns the path to the loaded config file, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// LoadFromDirectory loads configuration from a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}

	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					return configFile, nil
				}
			}
		}
	}
	return "", rperrors.Config("config.FindConfigFile", "no config file found")
}

// ConfigExists returns true if a config file exists in the given directory.
func ConfigExists(dir string) bool {
	_, err := FindConfigFile(dir)
	return err == nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteConfig writes cfg as YAML to path. An existing file is only replaced
// when force is set.
func WriteConfig(cfg *Config, path string, force bool) error {
	const op = "config.WriteConfig"

	if _, err := os.Stat(path); err == nil && !force {
		return rperrors.ConfigWrap(ErrConfigExists, op, path)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return rperrors.ConfigWrap(err, op, "failed to encode config")
	}
	header := []byte("# crateship configuration\n")
	if err := fileutil.AtomicWriteFile(path, append(header, data...), 0o644); err != nil {
		return rperrors.IOWrap(err, op, "failed to write config file")
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to path.
func WriteDefaultConfig(path string, force bool) error {
	return WriteConfig(DefaultConfig(), path, force)
}

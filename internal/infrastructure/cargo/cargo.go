// Package cargo implements the registry-publish and lock-refresh
// collaborators by shelling out to cargo.
package cargo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/crateship/internal/domain/release"
	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

var (
	_ ports.Registry      = (*Publisher)(nil)
	_ ports.LockRefresher = (*LockRefresher)(nil)
)

// alreadyPublishedRegex matches the registry's duplicate-version rejections.
// Both forms name the version: older registries answer
// "crate version `X.Y.Z` is already uploaded", newer cargo reports
// "crate name@X.Y.Z already exists on <registry> index".
var alreadyPublishedRegex = regexp.MustCompile(
	"(?i)(crate version `[0-9]+\\.[0-9]+\\.[0-9]+` is already uploaded" +
		"|crate `?[A-Za-z0-9_-]+@[0-9]+\\.[0-9]+\\.[0-9]+`? already exists on \\S+ index)")

// IsAlreadyPublished reports whether cargo output describes a duplicate
// version rejection.
func IsAlreadyPublished(output string) bool {
	return alreadyPublishedRegex.MatchString(output)
}

// Config configures the cargo collaborators.
type Config struct {
	// Command is the cargo executable.
	Command string
	// Dir is the package directory.
	Dir string
	// Registry selects an alternative registry (--registry).
	Registry string
	// Token is handed to cargo as CARGO_REGISTRY_TOKEN, never on the command line.
	Token string
	// AllowDirty passes --allow-dirty.
	AllowDirty bool
	// NoVerify passes --no-verify.
	NoVerify bool
	// Features are passed as --features.
	Features []string
	// LockCommand refreshes Cargo.lock after a manifest edit.
	LockCommand []string
	// Output receives cargo's live output. Nil discards it.
	Output io.Writer
}

// DefaultConfig returns a config for the package in dir.
func DefaultConfig(dir string) Config {
	return Config{
		Command:     "cargo",
		Dir:         dir,
		LockCommand: []string{"cargo", "check", "--quiet"},
	}
}

// result is a finished subprocess.
type result struct {
	stdout string
	stderr string
}

type commandRunner func(ctx context.Context, dir string, env []string, out io.Writer, name string, args ...string) (result, error)

func execRunner(ctx context.Context, dir string, env []string, out io.Writer, name string, args ...string) (result, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- command comes from configuration
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	if out != nil {
		cmd.Stdout = io.MultiWriter(&stdout, out)
		cmd.Stderr = io.MultiWriter(&stderr, out)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if f, ok := out.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
	return result{stdout: stdout.String(), stderr: stderr.String()}, err
}

// Publisher runs `cargo publish`.
type Publisher struct {
	cfg    Config
	run    commandRunner
	logger *log.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(cfg Config, logger *log.Logger) *Publisher {
	if cfg.Command == "" {
		cfg.Command = "cargo"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{cfg: cfg, run: execRunner, logger: logger}
}

// Args returns the cargo arguments used to publish.
func (p *Publisher) Args() []string {
	args := []string{"publish"}
	if p.cfg.Registry != "" {
		args = append(args, "--registry", p.cfg.Registry)
	}
	if p.cfg.AllowDirty {
		args = append(args, "--allow-dirty")
	}
	if p.cfg.NoVerify {
		args = append(args, "--no-verify")
	}
	if len(p.cfg.Features) > 0 {
		args = append(args, "--features", strings.Join(p.cfg.Features, ","))
	}
	return args
}

// Publish uploads the package. A duplicate-version rejection wraps
// release.ErrAlreadyPublished; every other failure wraps
// release.ErrPublishFailed.
func (p *Publisher) Publish(ctx context.Context) error {
	const op = "cargo.Publish"

	args := p.Args()
	var env []string
	if p.cfg.Token != "" {
		env = append(env, "CARGO_REGISTRY_TOKEN="+p.cfg.Token)
	}

	p.logger.Info("publishing crate", "command", p.cfg.Command+" "+strings.Join(args, " "), "dir", p.cfg.Dir)

	res, err := p.run(ctx, p.cfg.Dir, env, p.cfg.Output, p.cfg.Command, args...)
	if err == nil {
		return nil
	}

	output := strings.TrimSpace(res.stderr)
	if output == "" {
		output = strings.TrimSpace(res.stdout)
	}
	if ctx.Err() != nil {
		return rperrors.Wrap(ctx.Err(), rperrors.KindCanceled, op, "cargo publish interrupted")
	}
	if IsAlreadyPublished(output) {
		return rperrors.ExternalWrap(fmt.Errorf("%w: %s", release.ErrAlreadyPublished, output), op,
			"registry rejected a duplicate version")
	}
	return rperrors.ExternalWrap(fmt.Errorf("%w: %v: %s", release.ErrPublishFailed, err, output), op,
		"cargo publish failed")
}

// LockRefresher runs the configured lock command, `cargo check --quiet` by
// default, so Cargo.lock picks up the new version.
type LockRefresher struct {
	cfg    Config
	run    commandRunner
	logger *log.Logger
}

// NewLockRefresher creates a LockRefresher.
func NewLockRefresher(cfg Config, logger *log.Logger) *LockRefresher {
	if len(cfg.LockCommand) == 0 {
		cfg.LockCommand = DefaultConfig(cfg.Dir).LockCommand
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LockRefresher{cfg: cfg, run: execRunner, logger: logger}
}

// Refresh runs the lock command.
func (l *LockRefresher) Refresh(ctx context.Context) error {
	const op = "cargo.Refresh"

	name, args := l.cfg.LockCommand[0], l.cfg.LockCommand[1:]
	l.logger.Debug("refreshing lock file", "command", strings.Join(l.cfg.LockCommand, " "))

	res, err := l.run(ctx, l.cfg.Dir, nil, l.cfg.Output, name, args...)
	if err != nil {
		return rperrors.ExternalWrap(fmt.Errorf("%w: %s", err, strings.TrimSpace(res.stderr)), op,
			fmt.Sprintf("%s failed", strings.Join(l.cfg.LockCommand, " ")))
	}
	return nil
}

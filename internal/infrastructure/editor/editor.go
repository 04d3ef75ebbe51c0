// Package editor opens files in the operator's editor.
package editor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	rperrors "github.com/relicta-tech/crateship/internal/errors"
)

var _ ports.Editor = (*Editor)(nil)

// DefaultEditor is used when neither the configuration nor $EDITOR names one.
const DefaultEditor = "vim"

// Streams are the terminal the editor is attached to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type runFunc func(ctx context.Context, streams Streams, name string, args ...string) error

func execRun(ctx context.Context, streams Streams, name string, args ...string) error {
	// #nosec G204 -- editor command is from configuration or $EDITOR
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = streams.In
	cmd.Stdout = streams.Out
	cmd.Stderr = streams.Err
	return cmd.Run()
}

// Editor runs an editor command and waits for it to exit.
type Editor struct {
	command string
	streams Streams
	run     runFunc
}

// New creates an Editor. An empty command falls back to $EDITOR, then vim.
func New(command string) *Editor {
	return &Editor{
		command: Resolve(command, os.Getenv("EDITOR")),
		streams: Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr},
		run:     execRun,
	}
}

// Resolve picks the editor command.
func Resolve(configured, env string) string {
	if c := strings.TrimSpace(configured); c != "" {
		return c
	}
	if e := strings.TrimSpace(env); e != "" {
		return e
	}
	return DefaultEditor
}

// Command returns the resolved editor command line.
func (e *Editor) Command() string { return e.command }

// Open opens path and blocks until the editor exits. The command is split on
// whitespace, so "code --wait" works.
func (e *Editor) Open(ctx context.Context, path string) error {
	const op = "editor.Open"

	fields := strings.Fields(e.command)
	args := append(fields[1:], path)
	if err := e.run(ctx, e.streams, fields[0], args...); err != nil {
		return rperrors.ExternalWrap(err, op, fmt.Sprintf("editor %q failed", e.command))
	}
	return nil
}

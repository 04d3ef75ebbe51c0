package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/relicta-tech/crateship/internal/domain/release/ports"
)

// ConfirmPrompt is the question asked before anything irreversible happens.
const ConfirmPrompt = "Proceed with release? [y/N] "

// PromptDecider asks for approval on a single line. Only "y", in any case,
// proceeds.
type PromptDecider struct {
	in  *bufio.Reader
	out io.Writer
}

var _ ports.Decider = (*PromptDecider)(nil)

// NewPromptDecider creates a PromptDecider.
func NewPromptDecider(in io.Reader, out io.Writer) *PromptDecider {
	return &PromptDecider{in: bufio.NewReader(in), out: out}
}

// Decide writes the prompt and reads one line. End of input rejects.
func (d *PromptDecider) Decide(ctx context.Context, _ ports.Summary) (ports.Decision, error) {
	if _, err := io.WriteString(d.out, ConfirmPrompt); err != nil {
		return ports.DecisionReject, err
	}

	type answer struct {
		line string
		err  error
	}
	// On cancellation the reader stays blocked until stdin closes; the
	// buffered channel lets it finish, and the process exits right after.
	ch := make(chan answer, 1)
	go func() {
		line, err := d.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	var a answer
	select {
	case <-ctx.Done():
		return ports.DecisionReject, ctx.Err()
	case a = <-ch:
	}

	if a.err != nil && !errors.Is(a.err, io.EOF) {
		return ports.DecisionReject, fmt.Errorf("reading answer: %w", a.err)
	}
	if strings.ToLower(strings.TrimSpace(a.line)) == "y" {
		return ports.DecisionAccept, nil
	}
	return ports.DecisionReject, nil
}

// Mode selects the confirmation front end.
type Mode string

const (
	ModePrompt Mode = "prompt"
	ModeTUI    Mode = "tui"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewDecider picks the confirmation front end. The TUI needs a terminal on
// both ends and falls back to the line prompt otherwise.
func NewDecider(mode Mode, in, out *os.File) ports.Decider {
	if mode == ModeTUI && IsTerminal(in) && IsTerminal(out) {
		return NewTUIDecider(in, out)
	}
	return NewPromptDecider(in, out)
}

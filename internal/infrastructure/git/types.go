// Package git implements the version-control collaborator on top of go-git,
// with an optional git CLI path for pushes so credential helpers apply.
package git

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Commit is a commit as seen by the changelog generator.
type Commit struct {
	Hash    string
	Subject string
	Body    string
	Author  string
	Date    time.Time
}

// ShortHash returns the first seven characters of the hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) < 7 {
		return c.Hash
	}
	return c.Hash[:7]
}

// Options configures a Repository.
type Options struct {
	// Path is any directory inside the work tree.
	Path string
	// Remote is the remote pushed to. Defaults to "origin".
	Remote string
	// CLIPush pushes with the git binary instead of go-git.
	CLIPush bool
	// GitBinary is the git executable used when CLIPush is set.
	GitBinary string
	// PushAttempts > 1 retries each push with exponential backoff.
	PushAttempts int
	// PushInitialDelay is the first retry delay.
	PushInitialDelay time.Duration
	// AuthorName and AuthorEmail override the repository's user config for
	// release commits and tags.
	AuthorName  string
	AuthorEmail string
}

// DefaultOptions returns options for the repository at path.
func DefaultOptions(path string) Options {
	return Options{
		Path:             path,
		Remote:           "origin",
		CLIPush:          true,
		GitBinary:        "git",
		PushAttempts:     1,
		PushInitialDelay: 2 * time.Second,
	}
}

// splitMessage splits a commit message the way git's %s and %b do: the
// subject is the first paragraph with its line breaks folded into spaces,
// the body is everything after the first blank line.
func splitMessage(message string) (subject, body string) {
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(message, "\r\n", "\n")), "\n")
	var para []string
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			body = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			break
		}
		para = append(para, line)
	}
	return strings.Join(para, " "), body
}

// gitRefPattern validates names passed to the git binary.
var gitRefPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*$`)

// ErrInvalidGitRef is returned when a ref name is unsafe to pass to git.
var ErrInvalidGitRef = errors.New("invalid git reference")

// ValidateGitRef rejects names that could be read as options or that git
// itself would refuse.
func ValidateGitRef(ref string) error {
	switch {
	case ref == "":
		return fmt.Errorf("%w: empty name", ErrInvalidGitRef)
	case len(ref) > 250:
		return fmt.Errorf("%w: %q exceeds maximum length", ErrInvalidGitRef, ref)
	case strings.Contains(ref, ".."), strings.HasSuffix(ref, ".lock"), strings.HasSuffix(ref, "/"):
		return fmt.Errorf("%w: %q", ErrInvalidGitRef, ref)
	case !gitRefPattern.MatchString(ref):
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidGitRef, ref)
	}
	return nil
}

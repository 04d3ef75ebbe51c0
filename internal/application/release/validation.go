package release

import (
	"fmt"
	"strings"

	"github.com/relicta-tech/crateship/internal/domain/version"
)

// ReleaseInput is the input of a fresh release.
type ReleaseInput struct {
	Bump   version.BumpKind
	DryRun bool
}

// Validate validates the ReleaseInput.
func (i ReleaseInput) Validate() error {
	v := NewValidationError()
	if !i.Bump.IsValid() {
		v.Add(fmt.Errorf("%w %q: must be one of patch, minor, major, current", version.ErrUnknownBump, i.Bump))
	}
	return v.ToError()
}

// Validate validates the Options.
func (o Options) Validate() error {
	v := NewValidationError()
	if o.Root == "" {
		v.AddMessage("project root is required")
	}
	if o.Branch == "" {
		v.AddMessage("release branch is required")
	}
	if o.ManifestPath == "" {
		v.AddMessage("manifest path is required")
	}
	if o.ChangelogPath == "" {
		v.AddMessage("changelog path is required")
	}
	switch o.AlreadyPublished {
	case PolicyWarn, PolicyFail:
	default:
		v.AddMessage(fmt.Sprintf("already_published must be %q or %q, got %q", PolicyWarn, PolicyFail, o.AlreadyPublished))
	}
	return v.ToError()
}

// ValidationError collects multiple validation errors.
type ValidationError struct {
	errors []string
	causes []error
}

// NewValidationError creates a new ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{errors: make([]string, 0)}
}

// Add adds an error to the collection.
func (v *ValidationError) Add(err error) {
	if err != nil {
		v.errors = append(v.errors, err.Error())
		v.causes = append(v.causes, err)
	}
}

// AddMessage adds an error message to the collection.
func (v *ValidationError) AddMessage(msg string) {
	v.errors = append(v.errors, msg)
}

// HasErrors returns true if there are validation errors.
func (v *ValidationError) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns the combined error message.
func (v *ValidationError) Error() string {
	if len(v.errors) == 0 {
		return ""
	}
	if len(v.errors) == 1 {
		return v.errors[0]
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(v.errors, "; "))
}

// Unwrap exposes the collected errors to errors.Is.
func (v *ValidationError) Unwrap() []error {
	return v.causes
}

// ToError returns nil if no errors, otherwise returns the ValidationError.
func (v *ValidationError) ToError() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

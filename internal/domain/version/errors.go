// Package version provides the three-component version model used for releases.
package version

import "errors"

// Domain errors for version operations.
var (
	// ErrInvalidFormat indicates a version string that is not exactly
	// three dot-separated non-negative integers.
	ErrInvalidFormat = errors.New("unsupported version format")

	// ErrUnknownBump indicates an unrecognized bump kind.
	ErrUnknownBump = errors.New("unknown bump kind")

	// ErrOverflow indicates a bump past the largest representable component.
	ErrOverflow = errors.New("version component overflow")
)

package version

import (
	"fmt"
	"math"
)

// BumpKind selects which component of a version to increment.
type BumpKind string

const (
	// BumpPatch increments the patch component.
	BumpPatch BumpKind = "patch"
	// BumpMinor increments minor and zeroes patch.
	BumpMinor BumpKind = "minor"
	// BumpMajor increments major and zeroes minor and patch.
	BumpMajor BumpKind = "major"
	// BumpCurrent keeps the version unchanged, used to re-attempt a release.
	BumpCurrent BumpKind = "current"
)

// AllBumpKinds lists the accepted kinds in CLI order.
var AllBumpKinds = []BumpKind{BumpPatch, BumpMinor, BumpMajor, BumpCurrent}

// IsValid returns true if the bump kind is recognized.
func (k BumpKind) IsValid() bool {
	switch k {
	case BumpPatch, BumpMinor, BumpMajor, BumpCurrent:
		return true
	default:
		return false
	}
}

// String returns the string representation of the bump kind.
func (k BumpKind) String() string {
	return string(k)
}

// ParseBumpKind parses a string into a BumpKind.
func ParseBumpKind(s string) (BumpKind, error) {
	k := BumpKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q (must be patch, minor, major, or current)", ErrUnknownBump, s)
	}
	return k, nil
}

// Apply returns the version produced by bumping v. Incrementing a component
// already at math.MaxUint64 fails with ErrOverflow.
func (k BumpKind) Apply(v Version) (Version, error) {
	switch k {
	case BumpPatch:
		if v.patch == math.MaxUint64 {
			return Zero, fmt.Errorf("%w: patch of %s", ErrOverflow, v)
		}
		return Version{major: v.major, minor: v.minor, patch: v.patch + 1}, nil
	case BumpMinor:
		if v.minor == math.MaxUint64 {
			return Zero, fmt.Errorf("%w: minor of %s", ErrOverflow, v)
		}
		return Version{major: v.major, minor: v.minor + 1}, nil
	case BumpMajor:
		if v.major == math.MaxUint64 {
			return Zero, fmt.Errorf("%w: major of %s", ErrOverflow, v)
		}
		return Version{major: v.major + 1}, nil
	case BumpCurrent:
		return v, nil
	default:
		return Zero, fmt.Errorf("%w: %q", ErrUnknownBump, string(k))
	}
}

// Bump parses current and applies kind to it. The input is validated for
// every kind, including current.
func Bump(current string, kind BumpKind) (Version, error) {
	v, err := Parse(current)
	if err != nil {
		return Zero, err
	}
	return kind.Apply(v)
}

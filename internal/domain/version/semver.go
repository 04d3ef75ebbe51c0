package version

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is a value object representing a major.minor.patch triple.
// All operations return new instances.
type Version struct {
	major uint64
	minor uint64
	patch uint64
}

// versionRegex accepts exactly three dot-separated ASCII digit runs.
var versionRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)

// Zero is the zero version (0.0.0).
var Zero = Version{}

// New creates a Version from its components.
func New(major, minor, patch uint64) Version {
	return Version{major: major, minor: minor, patch: patch}
}

// Parse parses s into a Version. Only the bare numeric form is accepted:
// no "v" prefix, no pre-release or build metadata. Leading zeros are read
// with integer semantics, so "01.2.3" parses as 1.2.3.
func Parse(s string) (Version, error) {
	matches := versionRegex.FindStringSubmatch(s)
	if matches == nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	var parts [3]uint64
	for i := range parts {
		n, err := strconv.ParseUint(matches[i+1], 10, 64)
		if err != nil {
			return Zero, fmt.Errorf("%w: %q: %v", ErrInvalidFormat, s, err)
		}
		parts[i] = n
	}

	return Version{major: parts[0], minor: parts[1], patch: parts[2]}, nil
}

// MustParse parses a version string and panics if invalid.
// Use only for known-good version strings.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Major returns the major version component.
func (v Version) Major() uint64 { return v.major }

// Minor returns the minor version component.
func (v Version) Minor() uint64 { return v.minor }

// Patch returns the patch version component.
func (v Version) Patch() uint64 { return v.patch }

// String returns the canonical "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// TagName returns the release tag label for v, e.g. "v1.2.3".
func (v Version) TagName() string {
	return "v" + v.String()
}

// Compare returns -1, 0 or 1 comparing v to other lexicographically over
// (major, minor, patch).
func (v Version) Compare(other Version) int {
	switch {
	case v.major != other.major:
		return cmpUint(v.major, other.major)
	case v.minor != other.minor:
		return cmpUint(v.minor, other.minor)
	default:
		return cmpUint(v.patch, other.patch)
	}
}

// Equal reports whether both versions have identical components.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v sorts before other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

func cmpUint(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

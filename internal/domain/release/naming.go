package release

import (
	"regexp"

	"github.com/relicta-tech/crateship/internal/domain/version"
)

const commitPrefix = "release v"

// releaseCommitRegex matches a release commit subject and nothing else.
var releaseCommitRegex = regexp.MustCompile(`^release v(\d+\.\d+\.\d+)$`)

// CommitMessage returns the release commit message for v.
func CommitMessage(v version.Version) string {
	return commitPrefix + v.String()
}

// TagName returns the release tag name for v.
func TagName(v version.Version) string {
	return v.TagName()
}

// TagMessage returns the annotation message of the release tag for v.
func TagMessage(v version.Version) string {
	return CommitMessage(v)
}

// ParseReleaseCommit extracts the version from a release commit subject.
// The subject must match exactly; surrounding text disqualifies it.
func ParseReleaseCommit(subject string) (version.Version, bool) {
	m := releaseCommitRegex.FindStringSubmatch(subject)
	if m == nil {
		return version.Zero, false
	}
	v, err := version.Parse(m[1])
	if err != nil {
		return version.Zero, false
	}
	return v, true
}

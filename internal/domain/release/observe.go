package release

import (
	"strings"

	"github.com/relicta-tech/crateship/internal/domain/version"
)

// Observation is a read-only snapshot of everything version control can tell
// us about an in-flight release.
type Observation struct {
	Branch          string `json:"branch" yaml:"branch"`
	Status          string `json:"status,omitempty" yaml:"status,omitempty"`
	ManifestChanged bool   `json:"manifest_changed" yaml:"manifest_changed"`
	HeadSubject     string `json:"head_subject" yaml:"head_subject"`
	Package         string `json:"package" yaml:"package"`
	ManifestVersion string `json:"manifest_version" yaml:"manifest_version"`
	// TagExists refers to the tag of the version encoded in HeadSubject.
	TagExists bool `json:"tag_exists" yaml:"tag_exists"`
	// RemoteAtHead is true when the remote-tracking branch points at HEAD.
	RemoteAtHead bool `json:"remote_at_head" yaml:"remote_at_head"`
	// LatestTag is the highest existing release tag, if any.
	LatestTag string `json:"latest_tag,omitempty" yaml:"latest_tag,omitempty"`
}

// Dirty reports whether the working tree has changes.
func (o Observation) Dirty() bool {
	return o.Status != ""
}

// ReleaseVersion returns the version of the release commit at HEAD.
func (o Observation) ReleaseVersion() (version.Version, bool) {
	return ParseReleaseCommit(o.HeadSubject)
}

// BehindLatestTag reports whether the manifest version sorts before the
// highest release tag, which usually means a merge lost the last bump.
func (o Observation) BehindLatestTag() bool {
	if o.LatestTag == "" {
		return false
	}
	manifest, err := version.Parse(o.ManifestVersion)
	if err != nil {
		return false
	}
	latest, err := version.Parse(strings.TrimPrefix(o.LatestTag, "v"))
	if err != nil {
		return false
	}
	return manifest.LessThan(latest)
}

// DeriveState maps an observation to a lifecycle state. It is pure.
//
// Publishing leaves no trace in the repository, so a release commit without
// its tag is reported as StateCommitted whether or not the registry already
// has it.
func DeriveState(o Observation) State {
	v, ok := o.ReleaseVersion()
	if ok && v.String() == o.ManifestVersion {
		switch {
		case o.TagExists && o.RemoteAtHead:
			return StatePushed
		case o.TagExists:
			return StateTagged
		default:
			return StateCommitted
		}
	}
	if o.ManifestChanged {
		return StateVersionStaged
	}
	return StateClean
}

// Resumable reports whether a continuation would find a release to finish.
func Resumable(o Observation) bool {
	v, ok := o.ReleaseVersion()
	return ok && v.String() == o.ManifestVersion
}

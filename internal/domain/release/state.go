// Package release models the release lifecycle of a crate: the ordered
// states a release moves through, the steps that advance it, and how the
// current state is reconstructed from version-control history.
package release

import "github.com/felixgeelhaar/statekit"

// State is a point in the release lifecycle. It is never persisted; it is
// derived from repository inspection on every invocation.
type State string

const (
	StateClean         State = "clean"
	StateVersionStaged State = "version_staged"
	StateCommitted     State = "committed"
	StatePublished     State = "published"
	StateTagged        State = "tagged"
	StatePushed        State = "pushed"
)

var stateOrder = []State{
	StateClean,
	StateVersionStaged,
	StateCommitted,
	StatePublished,
	StateTagged,
	StatePushed,
}

// String returns the string form of the state.
func (s State) String() string {
	return string(s)
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	return s.rank() >= 0
}

// After reports whether s lies strictly later in the lifecycle than other.
func (s State) After(other State) bool {
	return s.rank() > other.rank()
}

// IsFinal reports whether no further release steps remain.
func (s State) IsFinal() bool {
	return s == StatePushed
}

func (s State) rank() int {
	for i, st := range stateOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s State) id() statekit.StateID {
	return statekit.StateID(s)
}

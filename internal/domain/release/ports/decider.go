package ports

import "context"

// Decision is the operator's answer at the release checkpoint.
type Decision int

const (
	DecisionReject Decision = iota
	DecisionAccept
)

// String returns the decision name.
func (d Decision) String() string {
	if d == DecisionAccept {
		return "accept"
	}
	return "reject"
}

// Summary is what the operator is asked to approve.
type Summary struct {
	Package       string
	Current       string
	Next          string
	Tag           string
	ChangelogPath string
}

// Decider suspends the release until the operator accepts or rejects it.
type Decider interface {
	Decide(ctx context.Context, s Summary) (Decision, error)
}

package release

import (
	"time"

	"github.com/felixgeelhaar/statekit"
)

// StepName identifies a side-effecting release step.
type StepName string

const (
	StepStage   StepName = "stage"
	StepCommit  StepName = "commit"
	StepPublish StepName = "publish"
	StepTag     StepName = "tag"
	StepPush    StepName = "push"
)

// Event returns the machine event emitted when the step completes.
func (n StepName) Event() statekit.EventType {
	switch n {
	case StepStage:
		return EventStage
	case StepCommit:
		return EventCommit
	case StepPublish:
		return EventPublish
	case StepTag:
		return EventTag
	case StepPush:
		return EventPush
	default:
		return ""
	}
}

// Idempotency classifies how a step behaves when run a second time.
type Idempotency string

const (
	// IdempotentOnce steps must run exactly once; a repeat is a bug.
	IdempotentOnce Idempotency = "once"
	// IdempotentRetry steps are re-attempted on continuation; the external
	// system rejects duplicates recognizably.
	IdempotentRetry Idempotency = "retry"
	// IdempotentProbe steps check for their own effect and skip if present.
	IdempotentProbe Idempotency = "probe"
	// IdempotentRerun steps are safe to repeat verbatim.
	IdempotentRerun Idempotency = "rerun"
)

// Outcome is how a step finished.
type Outcome string

const (
	OutcomeDone             Outcome = "done"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeAlreadyPublished Outcome = "already_published"
)

// StepResult records one executed step.
type StepResult struct {
	Step     StepName      `json:"step" yaml:"step"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
}

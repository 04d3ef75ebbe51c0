package release

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Event names for the release machine.
const (
	EventStage   statekit.EventType = "STAGE"
	EventCommit  statekit.EventType = "COMMIT"
	EventPublish statekit.EventType = "PUBLISH"
	EventTag     statekit.EventType = "TAG"
	EventPush    statekit.EventType = "PUSH"
)

// machineContext is empty: every transition is unconditional once its step
// has completed.
type machineContext struct{}

// Machine tracks progress of a single release invocation through the
// lifecycle. It is linear: each completed step moves exactly one state
// forward and nothing moves backwards.
type Machine struct {
	interpreter *statekit.Interpreter[machineContext]
	initial     State
}

// NewMachine builds a machine starting at initial. A fresh release starts
// at StateClean; a continuation starts at StateCommitted.
func NewMachine(initial State) (*Machine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("%w: unknown initial state %q", ErrInvalidTransition, initial)
	}

	def, err := statekit.NewMachine[machineContext]("crate-release").
		WithInitial(initial.id()).
		State(StateClean.id()).
		On(EventStage).Target(StateVersionStaged.id()).
		Done().
		State(StateVersionStaged.id()).
		On(EventCommit).Target(StateCommitted.id()).
		Done().
		State(StateCommitted.id()).
		On(EventPublish).Target(StatePublished.id()).
		Done().
		State(StatePublished.id()).
		On(EventTag).Target(StateTagged.id()).
		Done().
		State(StateTagged.id()).
		On(EventPush).Target(StatePushed.id()).
		Done().
		State(StatePushed.id()).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build release machine: %w", err)
	}

	return &Machine{
		interpreter: statekit.NewInterpreter(def),
		initial:     initial,
	}, nil
}

// Start starts the interpreter in the initial state.
func (m *Machine) Start() {
	m.interpreter.Start()
}

// Current returns the current state, or the initial state before Start.
func (m *Machine) Current() State {
	id := m.interpreter.State().Value
	if id == "" {
		return m.initial
	}
	return State(id)
}

// Send delivers ev. Events with no transition from the current state are
// ignored.
func (m *Machine) Send(ev statekit.EventType) {
	m.interpreter.Send(statekit.Event{Type: ev})
}

// Advance sends ev and reports ErrInvalidTransition when the machine did
// not move, which means the step ran out of order.
func (m *Machine) Advance(ev statekit.EventType) error {
	before := m.Current()
	m.Send(ev)
	if m.Current() == before {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, before)
	}
	return nil
}

// Done reports whether the release reached its final state.
func (m *Machine) Done() bool {
	return m.interpreter.Done()
}

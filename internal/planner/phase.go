// ABOUTME: Lifecycle phases of an update run and their allowed transitions.
// ABOUTME: idle -> planning -> up_to_date | plan_ready -> executing -> completed | partially_completed | cancelled.
package planner

import (
	"errors"
	"fmt"
)

// Phase is a state of one update run.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhasePlanning           Phase = "planning"
	PhaseUpToDate           Phase = "up_to_date"
	PhasePlanReady          Phase = "plan_ready"
	PhaseExecuting          Phase = "executing"
	PhaseCompleted          Phase = "completed"
	PhasePartiallyCompleted Phase = "partially_completed"
	PhaseCancelled          Phase = "cancelled"
)

// ErrInvalidTransition is returned for a transition the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid phase transition")

var transitions = map[Phase][]Phase{
	PhaseIdle:      {PhasePlanning},
	PhasePlanning:  {PhaseUpToDate, PhasePlanReady},
	PhasePlanReady: {PhaseExecuting, PhaseCancelled},
	PhaseExecuting: {PhaseCompleted, PhasePartiallyCompleted, PhaseCancelled},
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return len(transitions[p]) == 0
}

// Machine tracks the phase of one run.
type Machine struct {
	phase   Phase
	history []Phase
}

// NewMachine starts in the idle phase.
func NewMachine() *Machine {
	return &Machine{phase: PhaseIdle, history: []Phase{PhaseIdle}}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// History returns every phase visited, in order.
func (m *Machine) History() []Phase {
	return append([]Phase(nil), m.history...)
}

// Transition moves to the next phase if the lifecycle allows it.
func (m *Machine) Transition(to Phase) error {
	for _, allowed := range transitions[m.phase] {
		if allowed == to {
			m.phase = to
			m.history = append(m.history, to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.phase, to)
}

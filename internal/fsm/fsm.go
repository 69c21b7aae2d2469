// Package fsm is a minimal state machine: each state decides its
// successor, and a transition runs the old state's Exit followed by
// the new state's Enter.
package fsm

import "fmt"

// State is one node of a Machine. D is the per-step input.
type State[K comparable, D any] interface {
	Enter(data D)
	// Next returns the state to move to, or false to stay.
	Next(data D) (K, bool)
	Exit(data D)
}

type Machine[K comparable, D any] struct {
	current K
	states  map[K]State[K, D]
}

// New returns a machine resting in initial. Enter is not run for it.
func New[K comparable, D any](initial K, states map[K]State[K, D]) (*Machine[K, D], error) {
	if _, ok := states[initial]; !ok {
		return nil, fmt.Errorf("fsm: unknown initial state %v", initial)
	}
	return &Machine[K, D]{current: initial, states: states}, nil
}

func (m *Machine[K, D]) Current() K { return m.current }

// Shift performs at most one transition and reports whether it happened.
func (m *Machine[K, D]) Shift(data D) (bool, error) {
	next, ok := m.states[m.current].Next(data)
	if !ok {
		return false, nil
	}
	to, found := m.states[next]
	if !found {
		return false, fmt.Errorf("fsm: transition from %v to unknown state %v", m.current, next)
	}
	m.states[m.current].Exit(data)
	to.Enter(data)
	m.current = next
	return true, nil
}

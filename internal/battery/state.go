package battery

import (
	"fmt"
	"strings"

	"github.com/jktr/bato/internal/fsm"
)

// State is the battery condition a notification is sent for.
type State int

const (
	Charging State = iota
	Discharging
	Full
	Low
	Critical
)

func (s State) String() string {
	switch s {
	case Charging:
		return "charging"
	case Discharging:
		return "discharging"
	case Full:
		return "full"
	case Low:
		return "low"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState is the inverse of State.String, ignoring case.
func ParseState(s string) (State, error) {
	for _, st := range []State{Charging, Discharging, Full, Low, Critical} {
		if strings.EqualFold(s, st.String()) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown battery state %q", s)
}

// Thresholds are inclusive percentages.
type Thresholds struct {
	Low      uint32
	Critical uint32
}

// step is the input of one machine shift.
type step struct {
	Reading
	Thresholds
	enter func(State)
}

// discharging classifies a discharging battery by level.
func (d *step) discharging() State {
	switch {
	case d.Level <= d.Critical:
		return Critical
	case d.Level <= d.Low:
		return Low
	default:
		return Discharging
	}
}

type stateNode struct {
	self State
	next func(d *step) (State, bool)
}

func (n stateNode) Enter(d *step) {
	if d.enter != nil {
		d.enter(n.self)
	}
}

func (n stateNode) Exit(*step) {}

func (n stateNode) Next(d *step) (State, bool) { return n.next(d) }

func nextFromCharging(d *step) (State, bool) {
	switch d.Status {
	case StatusFull:
		return Full, true
	case StatusDischarging:
		return d.discharging(), true
	}
	return 0, false
}

func nextFromDischarging(d *step) (State, bool) {
	switch d.Status {
	case StatusCharging:
		return Charging, true
	case StatusFull:
		return Full, true
	case StatusDischarging:
		if s := d.discharging(); s != Discharging {
			return s, true
		}
	}
	return 0, false
}

func nextFromFull(d *step) (State, bool) {
	switch d.Status {
	case StatusCharging:
		return Charging, true
	case StatusDischarging:
		return Discharging, true
	}
	return 0, false
}

func nextFromLow(d *step) (State, bool) {
	switch {
	case d.Status == StatusCharging:
		return Charging, true
	case d.Status == StatusDischarging && d.Level <= d.Critical:
		return Critical, true
	}
	return 0, false
}

func nextFromCritical(d *step) (State, bool) {
	if d.Status == StatusCharging {
		return Charging, true
	}
	return 0, false
}

// Machine tracks the battery state across readings. It starts in
// Discharging without announcing it.
type Machine struct {
	m *fsm.Machine[State, *step]
}

// NewMachine returns a machine resting in Discharging.
func NewMachine() *Machine {
	states := map[State]fsm.State[State, *step]{
		Charging:    stateNode{Charging, nextFromCharging},
		Discharging: stateNode{Discharging, nextFromDischarging},
		Full:        stateNode{Full, nextFromFull},
		Low:         stateNode{Low, nextFromLow},
		Critical:    stateNode{Critical, nextFromCritical},
	}
	m, err := fsm.New(Discharging, states)
	if err != nil {
		// every state is registered above
		panic(err)
	}
	return &Machine{m: m}
}

func (m *Machine) State() State { return m.m.Current() }

// Update feeds r to the machine. On a transition enter is called with
// the new state, and the new state is returned with true.
func (m *Machine) Update(r Reading, th Thresholds, enter func(State)) (State, bool) {
	changed, err := m.m.Shift(&step{Reading: r, Thresholds: th, enter: enter})
	if err != nil {
		panic(err)
	}
	return m.m.Current(), changed
}

// Classify maps a single reading to a state without history.
func Classify(r Reading, th Thresholds) State {
	switch r.Status {
	case StatusCharging:
		return Charging
	case StatusFull:
		return Full
	}
	d := step{Reading: r, Thresholds: th}
	return d.discharging()
}

// Package liveness tracks whether the billing API is reachable.
package liveness

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/msana/internal/bus"
)

// State represents the connectivity state of a tab.
type State string

const (
	Unknown State = "UNKNOWN"
	Online  State = "ONLINE"
	Offline State = "OFFLINE"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Unknown: {Online, Offline},
	Online:  {Offline},
	Offline: {Online},
}

// Machine tracks and enforces connectivity state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Unknown state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Unknown,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Online reports whether the last known state is Online. Unknown counts as offline.
func (m *Machine) Online() bool {
	return m.Current() == Online
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to

	kind := bus.NetOffline
	if to == Online {
		kind = bus.NetOnline
	}
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      kind,
			Timestamp: time.Now(),
			Payload:   Change{From: from, To: to},
		})
	}
	return nil
}

// Set moves to the given state if it differs from the current one.
// It reports whether a transition happened.
func (m *Machine) Set(to State) (bool, error) {
	if m.Current() == to {
		return false, nil
	}
	if err := m.Transition(to); err != nil {
		return false, err
	}
	return true, nil
}

// Change is the payload for net.* events.
type Change struct {
	From State
	To   State
}

// Package sensor implements the directional sensor gating state machine
// (spec.md C4) and the capture gate that bridges its decisions to the
// camera subsystem (C5).
package sensor

import (
	"sync"
	"time"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

const (
	inactivityTimeout = 30 * time.Second
	maxSequenceLen    = 5
)

// Observer receives every notification the machine emits: terminal
// decisions and non-terminal state changes alike. It is the "small
// capability type with one method" spec.md §9 calls for; whether a given
// call is synchronous or worker-dispatched is decided by Machine.OnEvent,
// not by the Observer implementation.
type Observer interface {
	OnSensorNotification(model.SensorNotification)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(model.SensorNotification)

func (f ObserverFunc) OnSensorNotification(n model.SensorNotification) { f(n) }

// Machine is the per-line sensor state machine. It is safe for concurrent
// event delivery, though spec.md §5 requires a single feeder in practice:
// concurrent feeders would defeat the total-ordering guarantee, not the
// mutex.
type Machine struct {
	mu            sync.Mutex
	state         model.SensorState
	lastEventTime time.Time
	sequence      []model.SensorEventKind
	observer      Observer
}

// New creates a machine in IDLE, wired to the given observer.
func New(observer Observer) *Machine {
	m := &Machine{
		state:         model.StateIdle,
		lastEventTime: time.Now(),
		observer:      observer,
	}
	return m
}

// State returns the current state under lock, for status reporting.
func (m *Machine) State() model.SensorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnEvent feeds one raw edge event and returns the terminal decision, if
// any. The machine never suspends (I/O, callback waits aside) while
// holding its lock: the lock is released before any observer dispatch.
func (m *Machine) OnEvent(evt model.SensorEvent) model.Decision {
	m.mu.Lock()

	if evt.At.Sub(m.lastEventTime) > inactivityTimeout {
		m.lastEventTime = evt.At
		m.sequence = nil
		m.resetLocked()
		m.mu.Unlock()
		m.dispatch(model.SensorNotification{Decision: model.DecisionError, State: model.StateIdle, At: evt.At})
		return model.DecisionError
	}

	m.lastEventTime = evt.At
	m.sequence = append(m.sequence, evt.Kind)
	oldState := m.state

	decision, nextState := transition(m.state, evt.Kind)

	if decision == "" && len(m.sequence) > maxSequenceLen {
		decision = model.DecisionError
		nextState = model.StateIdle
	}

	m.state = nextState
	seq := append([]model.SensorEventKind(nil), m.sequence...)

	if decision != "" {
		m.sequence = nil
		m.state = model.StateIdle
	}
	m.mu.Unlock()

	switch {
	case decision == model.DecisionPassLtoR:
		// Synchronous: serializes persistence against the next event
		// (spec.md §4.4, invariant 6).
		m.observer.OnSensorNotification(model.SensorNotification{
			Decision: decision, State: model.StateIdle, Sequence: seq, At: evt.At,
		})
	case decision != "":
		m.dispatch(model.SensorNotification{Decision: decision, State: model.StateIdle, Sequence: seq, At: evt.At})
	case nextState != oldState:
		m.dispatch(model.SensorNotification{State: nextState, Sequence: seq, At: evt.At})
	}

	return decision
}

// dispatch delivers a non-pass-L->R notification on a fresh goroutine so
// it never blocks the caller or a subsequent OnEvent.
func (m *Machine) dispatch(n model.SensorNotification) {
	if m.observer == nil {
		return
	}
	go m.observer.OnSensorNotification(n)
}

// resetLocked must be called with mu held.
func (m *Machine) resetLocked() {
	m.state = model.StateIdle
}

// transition implements the table in spec.md §4.4. A blank cell returns a
// zero Decision and the same state (ignored event).
func transition(state model.SensorState, evt model.SensorEventKind) (model.Decision, model.SensorState) {
	switch state {
	case model.StateIdle:
		switch evt {
		case model.EventAOn:
			return "", model.StateAActive
		case model.EventBOn:
			return "", model.StateBActive
		}

	case model.StateAActive:
		switch evt {
		case model.EventAOff:
			return model.DecisionReturnFromR, model.StateIdle
		case model.EventBOn:
			return "", model.StateAThenB
		case model.EventBOff:
			return model.DecisionError, model.StateIdle
		}

	case model.StateBActive:
		switch evt {
		case model.EventAOn:
			return "", model.StateBThenA
		case model.EventAOff:
			return model.DecisionError, model.StateIdle
		case model.EventBOff:
			return model.DecisionReturnFromL, model.StateIdle
		}

	case model.StateAThenB:
		switch evt {
		case model.EventAOff:
			return "", model.StateBOnly
		case model.EventBOff:
			return "", model.StateAOnlyReturn
		}

	case model.StateBThenA:
		switch evt {
		case model.EventBOff:
			return "", model.StateAOnly
		case model.EventAOff:
			return "", model.StateBOnlyReturn
		}

	case model.StateAOnly:
		switch evt {
		case model.EventAOff:
			return model.DecisionPassLtoR, model.StateIdle
		case model.EventBOn:
			return model.DecisionReturnFromL, model.StateIdle
		}

	case model.StateBOnly:
		switch evt {
		case model.EventAOn:
			return model.DecisionReturnFromR, model.StateIdle
		case model.EventBOff:
			return model.DecisionPassRtoL, model.StateIdle
		}

	case model.StateAOnlyReturn:
		switch evt {
		case model.EventAOff:
			return model.DecisionReturnFromR, model.StateIdle
		case model.EventBOn:
			return model.DecisionError, model.StateIdle
		}

	case model.StateBOnlyReturn:
		switch evt {
		case model.EventBOff:
			return model.DecisionReturnFromL, model.StateIdle
		case model.EventAOn:
			return model.DecisionError, model.StateIdle
		}
	}
	return "", state
}

// ProcessEdges derives 0-2 events, in deterministic A-before-B order, from
// a pair of before/after beam readings and feeds them to the machine. It is
// the auxiliary entry point spec.md §4.4 names for polled beam state.
func (m *Machine) ProcessEdges(curA, curB, prevA, prevB bool, at time.Time) []model.Decision {
	var decisions []model.Decision
	if curA != prevA {
		evt := model.EventAOff
		if curA {
			evt = model.EventAOn
		}
		if d := m.OnEvent(model.SensorEvent{Kind: evt, At: at}); d != "" {
			decisions = append(decisions, d)
		}
	}
	if curB != prevB {
		evt := model.EventBOff
		if curB {
			evt = model.EventBOn
		}
		if d := m.OnEvent(model.SensorEvent{Kind: evt, At: at}); d != "" {
			decisions = append(decisions, d)
		}
	}
	return decisions
}

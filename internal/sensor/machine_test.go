package sensor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// collectingObserver records every notification; pass-L->R arrives
// synchronously so no extra synchronization is needed for it, but other
// decisions/state changes are dispatched on a goroutine, so tests that
// need them wait briefly.
type collectingObserver struct {
	mu    sync.Mutex
	notes []model.SensorNotification
}

func (c *collectingObserver) OnSensorNotification(n model.SensorNotification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
}

func feed(m *Machine, base time.Time, kinds ...model.SensorEventKind) model.Decision {
	var last model.Decision
	for i, k := range kinds {
		last = m.OnEvent(model.SensorEvent{Kind: k, At: base.Add(time.Duration(i) * time.Millisecond)})
	}
	return last
}

// TestHappyPass_BFirst covers the B-before-A traversal, which — per the
// §4.4 transition table (and original_source/sensor_state_machine.py,
// which the table is transcribed from) — is the sequence that reaches
// A_ONLY and fires pass-L->R. See DESIGN.md "Open Question decisions" for
// the discrepancy between this table and spec.md §8 scenario 1's prose,
// which describes the symmetric A-first sequence as triggering pass-L->R;
// the table (and the original implementation) says otherwise, and the
// table governs.
func TestHappyPass_BFirst(t *testing.T) {
	obs := &collectingObserver{}
	m := New(obs)
	base := time.Now()

	d := feed(m, base, model.EventBOn, model.EventAOn, model.EventBOff, model.EventAOff)
	assert.Equal(t, model.DecisionPassLtoR, d)
	assert.Equal(t, model.StateIdle, m.State())
	assert.Empty(t, m.sequence)
}

// TestHappyPass_AFirst covers the symmetric A-before-B traversal, which
// the table resolves to pass-R->L.
func TestHappyPass_AFirst(t *testing.T) {
	m := New(&collectingObserver{})
	base := time.Now()

	d := feed(m, base, model.EventAOn, model.EventBOn, model.EventAOff, model.EventBOff)
	assert.Equal(t, model.DecisionPassRtoL, d)
}

func TestScenario2_RetreatFromLeft(t *testing.T) {
	m := New(&collectingObserver{})
	base := time.Now()
	d := feed(m, base, model.EventAOn, model.EventAOff)
	assert.Equal(t, model.DecisionReturnFromR, d)
}

func TestScenario3_JitterError(t *testing.T) {
	m := New(&collectingObserver{})
	base := time.Now()
	d := feed(m, base, model.EventAOn, model.EventBOff)
	assert.Equal(t, model.DecisionError, d)
}

func TestScenario4_Timeout(t *testing.T) {
	m := New(&collectingObserver{})
	base := time.Now()
	m.OnEvent(model.SensorEvent{Kind: model.EventAOn, At: base})
	d := m.OnEvent(model.SensorEvent{Kind: model.EventBOn, At: base.Add(31 * time.Second)})
	assert.Equal(t, model.DecisionError, d)
}

func TestNonTerminalIntermediateState(t *testing.T) {
	m := New(&collectingObserver{})
	base := time.Now()
	d := feed(m, base, model.EventBOn, model.EventAOn, model.EventBOff)
	assert.Equal(t, model.Decision(""), d)
	assert.Equal(t, model.StateAOnly, m.State())
}

func TestSequenceGuard_ResetsAfterFiveEvents(t *testing.T) {
	m := New(&collectingObserver{})
	base := time.Now()
	// B-OFF is a blank (ignored) cell in IDLE: the state never leaves
	// IDLE, but the sequence keeps growing until the guard trips on the
	// 6th accumulated event.
	var last model.Decision
	for i := 0; i < 6; i++ {
		last = m.OnEvent(model.SensorEvent{Kind: model.EventBOff, At: base.Add(time.Duration(i) * time.Millisecond)})
	}
	assert.Equal(t, model.DecisionError, last)
	assert.Equal(t, model.StateIdle, m.State())
}

func TestInvariant_TerminalDecisionResetsToIdle(t *testing.T) {
	m := New(&collectingObserver{})
	base := time.Now()
	feed(m, base, model.EventBOn, model.EventAOn, model.EventBOff, model.EventAOff)
	assert.Equal(t, model.StateIdle, m.State())
	assert.Empty(t, m.sequence)
}

func TestOnlyPassLtoRPersists(t *testing.T) {
	assert.True(t, model.DecisionPassLtoR.Persists())
	for _, d := range []model.Decision{model.DecisionPassRtoL, model.DecisionReturnFromL, model.DecisionReturnFromR, model.DecisionError, model.DecisionTimeout} {
		assert.False(t, d.Persists())
	}
}

func TestProcessEdges_DeterministicOrder(t *testing.T) {
	m := New(&collectingObserver{})
	base := time.Now()
	// both A and B flip on in the same poll: A must be applied before B.
	decisions := m.ProcessEdges(true, true, false, false, base)
	assert.Empty(t, decisions) // IDLE -A_ON-> A_ACTIVE -B_ON-> A_THEN_B, no terminal yet
	assert.Equal(t, model.StateAThenB, m.State())
}

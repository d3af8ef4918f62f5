package camera

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/config"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/ringbuffer"
)

// Manager is the process-wide camera singleton (C3). It must be
// constructed exactly once at startup (spec.md §9: "enforce by
// construction") and threaded into every component that needs camera
// access, rather than reached for via a package-level variable.
type Manager struct {
	mu         sync.Mutex
	active     Driver
	activeKind Kind
	users      map[string]time.Time
	buffer     *ringbuffer.Buffer
	auth       config.IndustrialAuth
	log        *zap.SugaredLogger

	webcamDeviceID int
	fps            int
}

// Status is the snapshot status() returns (spec.md §4.3).
type Status struct {
	Kind        Kind
	IsConnected bool
	Users       []string
	UserCount   int
}

func NewManager(buffer *ringbuffer.Buffer, auth config.IndustrialAuth, webcamDeviceID, fps int, log *zap.SugaredLogger) *Manager {
	return &Manager{
		users:          make(map[string]time.Time),
		buffer:         buffer,
		auth:           auth,
		log:            log,
		webcamDeviceID: webcamDeviceID,
		fps:            fps,
	}
}

// Acquire returns the active driver for the given kind, creating or
// switching backends as needed. KindActive means "whatever is active, or
// Dummy if none yet" — used by callers (like the capture gate) that don't
// care which physical backend serves the frame.
func (m *Manager) Acquire(kind Kind, userID string) Driver {
	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == KindActive {
		if m.active == nil {
			m.setActiveLocked(KindDummy)
		}
		m.users[userID] = time.Now()
		return m.active
	}

	if m.active != nil && m.activeKind != kind {
		m.log.Infow("camera manager switching backend", "from", m.activeKind, "to", kind)
		m.active.Disconnect()
		m.active = nil
	}

	if m.active == nil {
		m.setActiveLocked(kind)
	}

	m.users[userID] = time.Now()
	return m.active
}

// setActiveLocked constructs and connects a driver for kind, falling back
// through Webcam then Dummy if the requested kind's driver can't connect
// (spec.md §4.3). connect() is invoked once inside the mutex per
// candidate; Dummy always connects, so the chain is guaranteed to end in
// a usable driver — failure of the *requested* kind is logged but a
// driver object is still returned.
func (m *Manager) setActiveLocked(kind Kind) {
	chain := fallbackChain(kind)
	for i, candidate := range chain {
		drv := m.buildLocked(candidate)
		if drv.Connect() {
			m.active = drv
			m.activeKind = drv.Kind()
			return
		}
		m.log.Warnw("camera manager: connect failed", "kind", candidate, "falling_back", i < len(chain)-1)
		m.active = drv // keep the last-built driver in case every candidate fails to connect
		m.activeKind = drv.Kind()
	}
}

// fallbackChain returns the candidate kinds to try in order, per
// spec.md §4.3: requested kind, then Webcam (unless already tried), then
// Dummy (which always connects, terminating the chain).
func fallbackChain(kind Kind) []Kind {
	switch kind {
	case KindWebcam:
		return []Kind{KindWebcam, KindDummy}
	case KindDummy:
		return []Kind{KindDummy}
	default:
		return []Kind{kind, KindWebcam, KindDummy}
	}
}

func (m *Manager) buildLocked(kind Kind) Driver {
	switch kind {
	case KindIndustrial:
		return NewIndustrial(m.auth, m.fps, m.buffer)
	case KindWebcam:
		return NewWebcam(m.webcamDeviceID, m.fps, m.buffer)
	default:
		return NewDummy(640, 480, m.fps, m.buffer)
	}
}

// Release removes userID from the user set; releasing an unknown user is
// a no-op (idempotence law, spec.md §8). When the set becomes empty the
// active driver is disconnected and the manager returns to no-driver state.
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return
	}
	delete(m.users, userID)
	if len(m.users) == 0 && m.active != nil {
		m.active.Disconnect()
		m.active = nil
		m.activeKind = ""
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]string, 0, len(m.users))
	for u := range m.users {
		users = append(users, u)
	}
	connected := m.active != nil && m.active.IsConnected()
	return Status{Kind: m.activeKind, IsConnected: connected, Users: users, UserCount: len(users)}
}

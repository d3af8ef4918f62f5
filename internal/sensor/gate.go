package sensor

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/camera"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// PersistedCapture is emitted once per successfully written pass-L->R
// frame, for downstream DB-row creation (out of scope for this module,
// named only by this contract per spec.md §1).
type PersistedCapture struct {
	Path     string
	At       time.Time
	Decision model.Decision
}

// Gate bridges sensor decisions to camera acquisition (C1) and persistence.
// It is registered as the Machine's synchronous Observer for pass-L->R and
// receives all other terminal decisions, which it only logs: the gate holds
// no frame of its own and does not clear or otherwise touch the shared
// ring buffer for those passes.
type Gate struct {
	manager      *camera.Manager
	inspectionDir string
	onPersist    func(PersistedCapture)
	log          *zap.SugaredLogger
	userID       string
}

func NewGate(manager *camera.Manager, inspectionDir string, onPersist func(PersistedCapture), log *zap.SugaredLogger) *Gate {
	return &Gate{
		manager:       manager,
		inspectionDir: inspectionDir,
		onPersist:     onPersist,
		log:           log,
		userID:        "capture-gate",
	}
}

// OnSensorNotification implements sensor.Observer. Only terminal decisions
// carry a non-empty Decision; non-terminal state-change notifications are
// ignored here (they're of interest to the SSE producer, not the gate).
func (g *Gate) OnSensorNotification(n model.SensorNotification) {
	if n.Decision == "" {
		return
	}
	if !n.Decision.Persists() {
		// Every other terminal decision: nothing is written, and the
		// shared ring buffer is left as it is.
		g.log.Debugw("capture gate discarding pass", "decision", n.Decision)
		return
	}

	drv := g.manager.Acquire(camera.KindActive, g.userID)
	defer g.manager.Release(g.userID)

	dir := filepath.Join(g.inspectionDir, n.At.Format("20060102"))
	path, err := drv.WriteFrame(dir)
	if err != nil {
		g.log.Errorw("capture gate write_frame failed", "error", err, "dir", dir)
		return
	}
	if path == "" {
		g.log.Warnw("capture gate write_frame returned no path", "dir", dir)
		return
	}

	g.log.Infow("capture persisted", "path", path, "decision", n.Decision)
	if g.onPersist != nil {
		g.onPersist(PersistedCapture{Path: path, At: n.At, Decision: n.Decision})
	}
}

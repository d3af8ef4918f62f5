// Package httpapi wires every component (C1-C11) to the HTTP surface
// spec.md §6 lists: camera control, the streaming fabric's four wire
// shapes, the file resolver/cache, the config store, monitoring/health,
// and the inspection websocket. Route registration follows the teacher's
// own bare net/http idiom (main.go's http.HandleFunc-per-camera loop),
// generalized to Go 1.22's enhanced http.ServeMux method+wildcard
// patterns rather than a third-party router (see DESIGN.md/SPEC_FULL.md
// §2 for why no pack example justifies pulling one in for this role).
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/cache"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/camera"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/config"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/monitoring"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/ringbuffer"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/streaming"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/watcher"
)

// Deps is every collaborator the HTTP surface needs. It is built once in
// main and handed to NewRouter; handlers never reach for a package-level
// singleton.
type Deps struct {
	Config  *config.Store
	Log     *zap.SugaredLogger
	Started time.Time

	CameraManager *camera.Manager
	RingBuffer    *ringbuffer.Buffer

	SensorBroadcast *SensorBroadcast

	Registry    *streaming.Registry
	MJPEG       *streaming.MJPEGProducer
	SSE         *streaming.SSEProducer
	Progressive *streaming.ProgressiveProducer
	File        *streaming.FileProducer

	Cache *cache.Cache

	WatcherStore    *watcher.Store
	WatcherRegistry *watcher.Registry

	Collector *monitoring.Collector
	Health    *monitoring.Aggregator
	SysPoller *monitoring.Poller

	Upgrader websocket.Upgrader
}

// NewRouter builds the full route table wrapped in permissive CORS
// (spec.md §6: "all origins, methods, headers").
func NewRouter(d *Deps) http.Handler {
	mux := http.NewServeMux()

	registerCameraRoutes(mux, d)
	registerStreamRoutes(mux, d)
	registerFileRoutes(mux, d)
	registerConfigRoutes(mux, d)
	registerMonitoringRoutes(mux, d)
	registerHealthRoutes(mux, d)
	registerInspectionRoutes(mux, d)

	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

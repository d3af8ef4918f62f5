// Command oin-wood-inspection-second-sub001 starts the real-time
// streaming and sensor-gating backend (spec.md §1): it wires every
// component (C1-C11) together and serves the HTTP surface spec.md §6
// lists. Process layout follows the teacher's own main.go (one flat
// func main that builds every collaborator and registers every route),
// generalized from one frame-caching loop per hardcoded camera to the
// full component graph, with startup logging switched to the zap
// logger C11/C10 readers expect instead of the teacher's bare
// log.Printf, plus the graceful shutdown idiom (errgroup +
// signal.NotifyContext, drain-then-force-close) taken from
// other_examples' growloc-cctv-agent stream manager.
package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/joho/godotenv/autoload"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/cache"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/camera"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/config"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/httpapi"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/logger"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/monitoring"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/ringbuffer"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/sensor"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/streaming"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/watcher"
)

const (
	defaultPort       = "8000"
	shutdownDrain     = 5 * time.Second
	beamPollCadence   = 50 * time.Millisecond
	sqliteDefaultPath = "data/sqlite.db"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("startup failed: %v", err)
	}
}

func run() error {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	cfgStore, err := config.Load(filepath.Join(configDir, "settings.ini"))
	if err != nil {
		// Unrecoverable startup error (spec.md §6: non-zero exit on
		// DB-unavailable/port-bind/startup failures; a broken config is
		// the same class of failure).
		return err
	}
	settings := cfgStore.Current()

	zlog, err := logger.New(settings)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	cfgStore.WatchFile(func(violations []string) {
		if len(violations) > 0 {
			zlog.Warnw("config: reload produced violations, keeping prior snapshot", "violations", violations)
			return
		}
		zlog.Infow("config: reloaded from settings.ini")
	})

	for _, dir := range []string{
		settings.Streaming.Data.InspectionDir,
		settings.Streaming.Data.ImageCacheDir,
		settings.Logging.LogDirectory,
		filepath.Dir(sqliteDefaultPath),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	streamRegistry := streaming.NewRegistry(reg)

	maxFrames := settings.Sensor.BufferDuration * settings.Sensor.BufferFPS
	if maxFrames <= 0 {
		maxFrames = 300
	}
	ring := ringbuffer.New(maxFrames)

	auth, err := config.LoadIndustrialAuth()
	if err != nil {
		zlog.Warnw("camera: industrial auth not configured, Industrial backend will fail to connect", "error", err)
	}

	camMgr := camera.NewManager(ring, auth, 0, settings.Streaming.Camera.FrameRate, zlog)

	imgCache, err := cache.New(settings.Streaming.Data.ImageCacheDir, zlog)
	if err != nil {
		return err
	}

	store, err := watcher.NewStore(sqliteDefaultPath)
	if err != nil {
		return err
	}
	defer store.Close()
	watchRegistry := watcher.NewRegistry()
	insWatcher := watcher.New(store, watchRegistry, zlog)

	sensorBroadcast := httpapi.NewSensorBroadcast()

	persistedCaptures := make(chan sensor.PersistedCapture, 16)
	gate := sensor.NewGate(camMgr, settings.Streaming.Data.InspectionDir, func(pc sensor.PersistedCapture) {
		select {
		case persistedCaptures <- pc:
		default:
			zlog.Warnw("capture gate: persisted-capture channel full, dropping notification", "path", pc.Path)
		}
	}, zlog)

	machine := sensor.New(sensor.ObserverFunc(func(n model.SensorNotification) {
		gate.OnSensorNotification(n)
		sensorBroadcast.Publish(n)
	}))

	collector := monitoring.NewCollector(streamRegistry)
	collector.Start()
	sysPoller := monitoring.NewPoller(settings.Streaming.Monitoring.IntervalSec, "/", zlog)

	health := monitoring.NewAggregator()
	health.Register(monitoring.NewFuncChecker("camera", func() monitoring.ComponentHealth {
		st := camMgr.Status()
		if st.IsConnected {
			return monitoring.ComponentHealth{Status: monitoring.StatusHealthy}
		}
		if st.UserCount == 0 {
			return monitoring.ComponentHealth{Status: monitoring.StatusDegraded, Details: "no active driver"}
		}
		return monitoring.ComponentHealth{Status: monitoring.StatusUnhealthy, Details: "driver disconnected with active users"}
	}), true)
	health.Register(monitoring.NewFuncChecker("database", func() monitoring.ComponentHealth {
		if _, err := store.ListInspections(context.Background(), 1, time.Time{}, time.Time{}); err != nil {
			return monitoring.ComponentHealth{Status: monitoring.StatusUnhealthy, Details: err.Error()}
		}
		return monitoring.ComponentHealth{Status: monitoring.StatusHealthy}
	}), true)
	health.Register(monitoring.NewFuncChecker("image_cache", func() monitoring.ComponentHealth {
		stats := imgCache.Stats()
		if stats.Errors > 0 {
			return monitoring.ComponentHealth{Status: monitoring.StatusDegraded, Details: "cache has recorded errors"}
		}
		return monitoring.ComponentHealth{Status: monitoring.StatusHealthy}
	}), false)
	health.Register(monitoring.NewFuncChecker("monitoring", func() monitoring.ComponentHealth {
		if collector.Running() {
			return monitoring.ComponentHealth{Status: monitoring.StatusHealthy}
		}
		return monitoring.ComponentHealth{Status: monitoring.StatusDegraded, Details: "metrics collection paused"}
	}), false)

	deps := &httpapi.Deps{
		Config:  cfgStore,
		Log:     zlog,
		Started: time.Now(),

		CameraManager: camMgr,
		RingBuffer:    ring,

		SensorBroadcast: sensorBroadcast,

		Registry:    streamRegistry,
		MJPEG:       streaming.NewMJPEGProducer(streamRegistry, settings.Streaming.Camera.Quality, settings.Streaming.Camera.FrameRate, zlog),
		SSE:         streaming.NewSSEProducer(streamRegistry, settings.Streaming.SSE.HeartbeatSec, zlog),
		Progressive: streaming.NewProgressiveProducer(streamRegistry, zlog),
		File:        streaming.NewFileProducer(streamRegistry, settings.Streaming.File.ChunkBytes, zlog),

		Cache: imgCache,

		WatcherStore:    store,
		WatcherRegistry: watchRegistry,

		Collector: collector,
		Health:    health,
		SysPoller: sysPoller,

		Upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	mux := httpapi.NewRouter(deps)

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		insWatcher.Run(egCtx)
		return nil
	})
	monitoringInterval := time.Duration(settings.Streaming.Monitoring.IntervalSec) * time.Second
	if monitoringInterval <= 0 {
		monitoringInterval = 5 * time.Second
	}
	eg.Go(func() error {
		collector.Run(egCtx, monitoringInterval)
		return nil
	})
	eg.Go(func() error {
		sysPoller.Run(egCtx)
		return nil
	})
	eg.Go(func() error {
		runBeamFeeder(egCtx, machine, settings.Sensor.SimulationMode, zlog)
		return nil
	})
	eg.Go(func() error {
		for {
			select {
			case <-egCtx.Done():
				return nil
			case pc := <-persistedCaptures:
				zlog.Infow("inspection: capture ready for persistence", "path", pc.Path, "at", pc.At)
			}
		}
	})
	eg.Go(func() error {
		zlog.Infow("http: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	<-egCtx.Done()
	zlog.Infow("shutdown: signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrain)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warnw("shutdown: forcing listener close", "error", err)
		srv.Close()
	}

	if err := eg.Wait(); err != nil {
		zlog.Errorw("shutdown: background task exited with error", "error", err)
		return err
	}
	zlog.Infow("shutdown: clean")
	return nil
}

// runBeamFeeder is the single C4 feeder spec.md §5 requires ("concurrent
// feeders are disallowed"). The two through-beam optical sensors
// themselves are industrial I/O hardware named only by contract
// (spec.md §1's "camera vendor SDKs" carve-out extends to GPIO/fieldbus
// beam hardware: no such SDK exists in this module's dependency set).
// When SENSOR.simulation_mode is set this feeder synthesizes a plausible
// stream of passes for local development and demos instead of reading
// real beam state.
func runBeamFeeder(ctx context.Context, machine *sensor.Machine, simulate bool, log *zap.SugaredLogger) {
	if !simulate {
		// No physical beam source wired: the feeder idles, leaving the
		// machine in IDLE until a real GPIO/fieldbus integration feeds
		// process_edges from outside this process.
		<-ctx.Done()
		return
	}

	log.Infow("sensor: simulation_mode enabled, synthesizing beam passes")
	ticker := time.NewTicker(beamPollCadence)
	defer ticker.Stop()

	var prevA, prevB bool
	idx := 0
	idleTicks := randomIdleTicks()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			var curA, curB bool
			if idx < len(simulatedPass) {
				curA, curB = simulatedPass[idx].a, simulatedPass[idx].b
				idx++
				if idx == len(simulatedPass) {
					idleTicks = randomIdleTicks()
				}
			} else if idleTicks > 0 {
				idleTicks--
			} else {
				idx = 0
			}

			for _, d := range machine.ProcessEdges(curA, curB, prevA, prevB, now) {
				log.Debugw("sensor: simulated decision", "decision", d)
			}
			prevA, prevB = curA, curB
		}
	}
}

type beamState struct{ a, b bool }

// simulatedPass is one complete A-then-B pass (A-ON, B-ON, A-OFF, B-OFF)
// expressed as the four beam-state snapshots that produce those edges
// from an all-clear baseline, used only under SENSOR.simulation_mode.
var simulatedPass = []beamState{
	{a: true, b: false},
	{a: true, b: true},
	{a: false, b: true},
	{a: false, b: false},
}

// randomIdleTicks spaces out synthesized passes so simulation mode
// exercises the machine's IDLE-hold path, not just back-to-back passes.
func randomIdleTicks() int {
	return rand.Intn(40) + 10
}

package httpapi

import (
	"net/http"
	"time"
)

func registerMonitoringRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("GET /api/streaming/monitoring/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Collector.Aggregate())
	})

	mux.HandleFunc("GET /api/streaming/monitoring/health", func(w http.ResponseWriter, r *http.Request) {
		overall, details := d.Health.Check()
		writeJSON(w, http.StatusOK, map[string]any{"status": overall, "components": details})
	})

	mux.HandleFunc("GET /api/streaming/monitoring/status", func(w http.ResponseWriter, r *http.Request) {
		overall, _ := d.Health.Check()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       overall,
			"uptime_sec":   time.Since(d.Started).Seconds(),
			"camera":       d.CameraManager.Status(),
			"system":       d.SysPoller.Latest(),
			"collector_on": d.Collector.Running(),
		})
	})

	mux.HandleFunc("GET /api/streaming/monitoring/stats/summary", func(w http.ResponseWriter, r *http.Request) {
		agg := d.Collector.Aggregate()
		writeJSON(w, http.StatusOK, map[string]any{
			"total_bytes_sent":    agg.TotalBytesSent,
			"total_messages_sent": agg.TotalMessagesSent,
			"total_errors":        agg.TotalErrors,
			"count_by_kind":       agg.CountByKind,
		})
	})

	mux.HandleFunc("POST /api/streaming/monitoring/start", func(w http.ResponseWriter, r *http.Request) {
		d.Collector.Start()
		writeJSON(w, http.StatusOK, map[string]bool{"running": true})
	})

	mux.HandleFunc("POST /api/streaming/monitoring/stop", func(w http.ResponseWriter, r *http.Request) {
		d.Collector.Stop()
		writeJSON(w, http.StatusOK, map[string]bool{"running": false})
	})
}

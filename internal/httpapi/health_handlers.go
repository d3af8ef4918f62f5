package httpapi

import "net/http"

func registerHealthRoutes(mux *http.ServeMux, d *Deps) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		overall, details := d.Health.Check()
		status := http.StatusOK
		if overall != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"status": overall, "components": details})
	}
	mux.HandleFunc("GET /health", handler)
	mux.HandleFunc("GET /api/health", handler)
}

package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/config"
)

func registerConfigRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("GET /api/streaming/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Config.Current())
	})

	mux.HandleFunc("GET /api/streaming/config/{section}", func(w http.ResponseWriter, r *http.Request) {
		section, ok := configSection(d.Config.Current(), r.PathValue("section"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown config section")
			return
		}
		writeJSON(w, http.StatusOK, section)
	})

	mux.HandleFunc("PUT /api/streaming/config", func(w http.ResponseWriter, r *http.Request) {
		var proposed config.Settings
		if err := json.NewDecoder(r.Body).Decode(&proposed); err != nil {
			writeError(w, http.StatusBadRequest, "invalid settings body: "+err.Error())
			return
		}
		if violations := d.Config.Update(&proposed); len(violations) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"violations": violations})
			return
		}
		writeJSON(w, http.StatusOK, d.Config.Current())
	})

	mux.HandleFunc("PUT /api/streaming/config/{section}", func(w http.ResponseWriter, r *http.Request) {
		// A per-section PUT validates against the full current object with
		// just that section replaced: spec.md §4.11 validates "a proposed
		// full object", never a bare fragment.
		current := *d.Config.Current()
		if !applyConfigSection(&current, r.PathValue("section"), r.Body) {
			writeError(w, http.StatusNotFound, "unknown config section")
			return
		}
		if violations := d.Config.Update(&current); len(violations) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"violations": violations})
			return
		}
		writeJSON(w, http.StatusOK, d.Config.Current())
	})

	mux.HandleFunc("POST /api/streaming/config/reload", func(w http.ResponseWriter, r *http.Request) {
		if violations := d.Config.Reload(); len(violations) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"violations": violations})
			return
		}
		writeJSON(w, http.StatusOK, d.Config.Current())
	})

	// /api/streaming/config/validate is a supplemented feature
	// (SPEC_FULL.md §5): a dry run of the transactional update that never
	// swaps state in.
	mux.HandleFunc("POST /api/streaming/config/validate", func(w http.ResponseWriter, r *http.Request) {
		var proposed config.Settings
		if err := json.NewDecoder(r.Body).Decode(&proposed); err != nil {
			writeError(w, http.StatusBadRequest, "invalid settings body: "+err.Error())
			return
		}
		violations := config.Validate(&proposed)
		writeJSON(w, http.StatusOK, map[string]any{"valid": len(violations) == 0, "violations": violations})
	})

	mux.HandleFunc("POST /api/streaming/config/reset", func(w http.ResponseWriter, r *http.Request) {
		defaults := config.Defaults()
		if violations := d.Config.Update(defaults); len(violations) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"violations": violations})
			return
		}
		writeJSON(w, http.StatusOK, d.Config.Current())
	})
}

func configSection(s *config.Settings, name string) (any, bool) {
	switch name {
	case "camera":
		return s.Camera, true
	case "sensor":
		return s.Sensor, true
	case "ui":
		return s.UI, true
	case "logging":
		return s.Logging, true
	case "streaming":
		return s.Streaming, true
	default:
		return nil, false
	}
}

func applyConfigSection(s *config.Settings, name string, body io.Reader) bool {
	dec := json.NewDecoder(body)
	switch name {
	case "camera":
		return dec.Decode(&s.Camera) == nil
	case "sensor":
		return dec.Decode(&s.Sensor) == nil
	case "ui":
		return dec.Decode(&s.UI) == nil
	case "logging":
		return dec.Decode(&s.Logging) == nil
	case "streaming":
		return dec.Decode(&s.Streaming) == nil
	default:
		return false
	}
}

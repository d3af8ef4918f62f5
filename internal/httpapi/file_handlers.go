package httpapi

import (
	"net/http"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/resolver"
)

func registerFileRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("GET /api/file", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		res := resolver.Resolve(path, d.Config.Current().Streaming.Data.InspectionDir)
		if !res.Found {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":    "not-found",
				"attempts": res.Attempts,
			})
			return
		}

		variant := model.VariantOriginal
		if r.URL.Query().Get("convert") == "jpg" {
			variant = model.VariantJPG
		}
		entry, err := d.Cache.Get(res.FoundPath, variant)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", entry.ContentType)
		http.ServeFile(w, r, entry.CachePath)
	})

	// /api/file/check is a supplemented feature (SPEC_FULL.md §5): an
	// existence probe ahead of a full file transfer.
	mux.HandleFunc("GET /api/file/check", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		res := resolver.Resolve(path, d.Config.Current().Streaming.Data.InspectionDir)
		writeJSON(w, http.StatusOK, map[string]any{
			"exists":        res.Found,
			"resolved_path": res.FoundPath,
			"attempts":      res.Attempts,
		})
	})

	mux.HandleFunc("GET /api/image-cache/image", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		res := resolver.Resolve(path, d.Config.Current().Streaming.Data.InspectionDir)
		if !res.Found {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not-found", "attempts": res.Attempts})
			return
		}

		variant := model.VariantOriginal
		if r.URL.Query().Get("variant") == "jpg" {
			variant = model.VariantJPG
		}
		entry, err := d.Cache.Get(res.FoundPath, variant)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", entry.ContentType)
		http.ServeFile(w, r, entry.CachePath)
	})

	mux.HandleFunc("GET /api/image-cache/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Cache.Stats())
	})

	mux.HandleFunc("GET /api/image-cache/cleanup", func(w http.ResponseWriter, r *http.Request) {
		d.Cache.Cleanup()
		writeJSON(w, http.StatusOK, d.Cache.Stats())
	})
}

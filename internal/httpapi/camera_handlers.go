package httpapi

import (
	"encoding/base64"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/camera"
)

// httpSessionUser is the logical user_id the HTTP surface holds the
// camera manager's refcount under for the lifetime of an explicit
// connect/disconnect pair (spec.md §4.3's acquire/release contract is
// per user_id, not per request).
const httpSessionUser = "http-session"

type cameraResponse struct {
	Image  string `json:"image"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func registerCameraRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("POST /api/camera/connect", func(w http.ResponseWriter, r *http.Request) {
		kind := camera.Kind(r.URL.Query().Get("kind"))
		if kind == "" {
			kind = camera.Kind(d.Config.Current().Camera.DefaultCameraType)
		}
		drv := d.CameraManager.Acquire(kind, httpSessionUser)
		writeJSON(w, http.StatusOK, cameraResponse{Status: statusFor(drv.IsConnected())})
	})

	mux.HandleFunc("POST /api/camera/disconnect", func(w http.ResponseWriter, r *http.Request) {
		d.CameraManager.Release(httpSessionUser)
		writeJSON(w, http.StatusOK, cameraResponse{Status: "disconnected"})
	})

	mux.HandleFunc("POST /api/camera/start", func(w http.ResponseWriter, r *http.Request) {
		drv := d.CameraManager.Acquire(camera.KindActive, httpSessionUser)
		drv.SetMode(camera.ModeContinuous)
		writeJSON(w, http.StatusOK, cameraResponse{Status: "continuous"})
	})

	mux.HandleFunc("POST /api/camera/stop", func(w http.ResponseWriter, r *http.Request) {
		drv := d.CameraManager.Acquire(camera.KindActive, httpSessionUser)
		drv.SetMode(camera.ModeSnapshot)
		writeJSON(w, http.StatusOK, cameraResponse{Status: "snapshot"})
	})

	// /api/camera/save is a supplemented feature (SPEC_FULL.md §5):
	// writes one frame to disk without going through the sensor gate,
	// for manual calibration shots.
	mux.HandleFunc("POST /api/camera/save", func(w http.ResponseWriter, r *http.Request) {
		ephemeralUser := "camera-save-" + uuid.NewString()
		drv := d.CameraManager.Acquire(camera.KindActive, ephemeralUser)
		defer d.CameraManager.Release(ephemeralUser)

		dir := filepath.Join(d.Config.Current().Streaming.Data.InspectionDir, time.Now().Format("20060102"))
		path, err := drv.WriteFrame(dir)
		if err != nil {
			writeJSON(w, http.StatusOK, cameraResponse{Status: "error", Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "path": path})
	})

	mux.HandleFunc("GET /api/camera/is_connected", func(w http.ResponseWriter, r *http.Request) {
		st := d.CameraManager.Status()
		writeJSON(w, http.StatusOK, map[string]any{
			"is_connected": st.IsConnected,
			"kind":         st.Kind,
			"user_count":   st.UserCount,
		})
	})

	mux.HandleFunc("GET /api/camera/snapshot", func(w http.ResponseWriter, r *http.Request) {
		ephemeralUser := "camera-snapshot-" + uuid.NewString()
		drv := d.CameraManager.Acquire(camera.KindActive, ephemeralUser)
		defer d.CameraManager.Release(ephemeralUser)

		f, ok := drv.GetFrame()
		if !ok {
			writeJSON(w, http.StatusOK, cameraResponse{Status: "no_frame"})
			return
		}

		img := f.Image
		if f.Width > 0 && f.Height > 0 {
			quality := d.Config.Current().Streaming.Camera.Quality
			jpeg, err := camera.EncodeJPEG(f, quality)
			if err != nil {
				writeJSON(w, http.StatusOK, cameraResponse{Status: "error", Error: err.Error()})
				return
			}
			img = jpeg
		}
		writeJSON(w, http.StatusOK, cameraResponse{Image: base64.StdEncoding.EncodeToString(img), Status: "ok"})
	})
}

func statusFor(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}

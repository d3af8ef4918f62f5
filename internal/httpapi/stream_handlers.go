package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/camera"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/streaming"
)

// driverSource adapts a camera.Driver's on-demand GetFrame to the
// streaming.FrameSource interface, used when the requested camera is in
// snapshot mode and has no ring buffer backing it (spec.md §4.7: "The
// producer reads from C2 if continuous, else polls C1").
type driverSource struct{ drv camera.Driver }

func (s driverSource) Latest() (model.Frame, bool) { return s.drv.GetFrame() }

func registerStreamRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("GET /api/stream/camera/{kind}", func(w http.ResponseWriter, r *http.Request) {
		kind := camera.Kind(r.PathValue("kind"))
		if kind == "" {
			kind = camera.KindActive
		}
		userID := "mjpeg-" + uuid.NewString()
		drv := d.CameraManager.Acquire(kind, userID)
		defer d.CameraManager.Release(userID)

		var source streaming.FrameSource = driverSource{drv: drv}
		if d.RingBuffer.Len() > 0 {
			source = d.RingBuffer
		}

		settings := d.Config.Current()
		timeout := time.Duration(settings.Streaming.ErrorHandling.SlowClientTimeoutMS) * time.Millisecond
		if err := d.MJPEG.Serve(r.Context(), w, r.RemoteAddr, source, timeout); err != nil {
			d.Log.Debugw("httpapi: mjpeg stream ended", "error", err)
		}
	})

	mux.HandleFunc("GET /api/stream/sensor/status", func(w http.ResponseWriter, r *http.Request) {
		ch, unsubscribe := d.SensorBroadcast.Subscribe()
		defer unsubscribe()

		settings := d.Config.Current()
		timeout := time.Duration(settings.Streaming.ErrorHandling.SlowClientTimeoutMS) * time.Millisecond
		if err := d.SSE.Serve(r.Context(), w, r.RemoteAddr, ch, timeout); err != nil {
			d.Log.Debugw("httpapi: sse stream ended", "error", err)
		}
	})

	mux.HandleFunc("GET /api/stream/file", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		convert := r.URL.Query().Get("convert") == "jpg"
		settings := d.Config.Current()
		timeout := time.Duration(settings.Streaming.ErrorHandling.SlowClientTimeoutMS) * time.Millisecond
		if err := d.File.Serve(r.Context(), w, r.RemoteAddr, path, convert, timeout); err != nil {
			d.Log.Debugw("httpapi: file stream ended", "path", path, "error", err)
		}
	})

	mux.HandleFunc("GET /api/stream/inspections", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		dateFrom := parseDate(r.URL.Query().Get("date_from"))
		dateTo := parseDate(r.URL.Query().Get("date_to"))

		rows, err := d.WatcherStore.ListInspections(r.Context(), limit, dateFrom, dateTo)
		if err != nil {
			d.Log.Warnw("httpapi: list inspections failed", "error", err)
			rows = nil
		}

		ch := make(chan any, 1)
		go func() {
			defer close(ch)
			for _, row := range rows {
				select {
				case ch <- row:
				case <-r.Context().Done():
					return
				}
			}
		}()

		settings := d.Config.Current()
		timeout := time.Duration(settings.Streaming.ErrorHandling.SlowClientTimeoutMS) * time.Millisecond
		if err := d.Progressive.Serve(r.Context(), w, r.RemoteAddr, ch, timeout); err != nil {
			d.Log.Debugw("httpapi: inspection history stream ended", "error", err)
		}
	})

	mux.HandleFunc("POST /api/stream/analysis/multi-image", func(w http.ResponseWriter, r *http.Request) {
		// The ML inference service is an external collaborator named only
		// by contract (spec.md §1): this endpoint accepts the upload and
		// streams one acknowledgement record per file progressively; the
		// actual analysis is out of scope for this module.
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}

		type fileResult struct {
			Filename string `json:"filename"`
			Bytes    int64  `json:"bytes"`
			Status   string `json:"status"`
		}

		var files []fileResult
		if r.MultipartForm != nil {
			for _, headers := range r.MultipartForm.File {
				for _, h := range headers {
					files = append(files, fileResult{Filename: h.Filename, Bytes: h.Size, Status: "queued"})
				}
			}
		}

		ch := make(chan any, 1)
		go func() {
			defer close(ch)
			for _, f := range files {
				select {
				case ch <- f:
				case <-r.Context().Done():
					return
				}
			}
		}()

		settings := d.Config.Current()
		timeout := time.Duration(settings.Streaming.ErrorHandling.SlowClientTimeoutMS) * time.Millisecond
		if err := d.Progressive.Serve(r.Context(), w, r.RemoteAddr, ch, timeout); err != nil {
			d.Log.Debugw("httpapi: multi-image analysis stream ended", "error", err)
		}
	})
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

func registerInspectionRoutes(mux *http.ServeMux, d *Deps) {
	var latestWS http.HandlerFunc

	mux.HandleFunc("GET /inspections/latest", func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			latestWS(w, r)
			return
		}
		productNo := r.URL.Query().Get("product_no")
		if productNo == "" {
			writeError(w, http.StatusBadRequest, "product_no is required")
			return
		}

		latest, err := d.WatcherStore.LatestInspectionIDs(r.Context(), []string{productNo})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		id, ok := latest[productNo]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no inspections for product_no"})
			return
		}
		update, err := d.WatcherStore.InspectionUpdate(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, update)
	})

	// WS /inspections/latest (also served on /inspections/latest/ws): a
	// client subscribes to one product_no and receives
	// model.InspectionUpdate JSON pushes whenever the watcher (C6)
	// observes a new or changed inspection row for it.
	latestWS = func(w http.ResponseWriter, r *http.Request) {
		productNo := r.URL.Query().Get("product_no")
		if productNo == "" {
			writeError(w, http.StatusBadRequest, "product_no is required")
			return
		}

		conn, err := d.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.Log.Debugw("httpapi: websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		d.WatcherRegistry.Subscribe(productNo, conn)
		defer d.WatcherRegistry.Unsubscribe(productNo, conn)

		// Block until the client disconnects. This endpoint is push-only:
		// any frame the client sends is read and discarded, and no read
		// deadline is set. The watcher dispatches updates fire-and-forget
		// on its own goroutines (internal/watcher.Watcher.broadcast); this
		// loop only detects when to unsubscribe.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
	mux.HandleFunc("GET /inspections/latest/ws", latestWS)
}

// Package watcher implements the inspection watcher (C6): a 500 ms poll
// loop that diffs each watched product_no's latest inspection id against a
// snapshot and fans the changed rows out to subscribed websocket clients,
// fire-and-forget. Grounded on
// original_source/inspections_watcher_task.py's poll/diff/dispatch/
// snapshot-update ordering, with the per-key connection registry idiom
// (map[key][]connection guarded by a mutex) taken from
// other_examples' stefanpenner-lcc.live Store.
package watcher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

const pollInterval = 500 * time.Millisecond

// Registry tracks which websocket connections are subscribed to which
// product_no. A connection may be registered under several product_nos,
// and several connections may share one product_no.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[*websocket.Conn]struct{})}
}

// Subscribe registers conn as a listener for productNo.
func (r *Registry) Subscribe(productNo string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[productNo]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		r.conns[productNo] = set
	}
	set[conn] = struct{}{}
}

// Unsubscribe removes conn from productNo's listener set, dropping the
// set entirely once empty.
func (r *Registry) Unsubscribe(productNo string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[productNo]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, productNo)
	}
}

// WatchedProductNos returns the distinct product_nos with at least one
// subscriber, the set the poll loop queries against.
func (r *Registry) WatchedProductNos() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for p := range r.conns {
		out = append(out, p)
	}
	return out
}

func (r *Registry) listeners(productNo string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[productNo]
	out := make([]*websocket.Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Watcher runs the poll loop against a Store and fans changed inspections
// out through a Registry.
type Watcher struct {
	store    *Store
	registry *Registry
	log      *zap.SugaredLogger

	mu       sync.Mutex
	snapshot map[string]int64 // product_no -> last-broadcast inspection_id
}

func New(store *Store, registry *Registry, log *zap.SugaredLogger) *Watcher {
	return &Watcher{store: store, registry: registry, log: log, snapshot: make(map[string]int64)}
}

// Run polls every 500ms until ctx is cancelled. It never returns an error:
// a poll failure (e.g. the database briefly unreachable) is logged and
// ignored, matching the original's bare except-and-continue loop.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context) {
	productNos := w.registry.WatchedProductNos()
	if len(productNos) == 0 {
		return
	}

	latest, err := w.store.LatestInspectionIDs(ctx, productNos)
	if err != nil {
		w.log.Warnw("watcher: poll failed", "error", err)
		return
	}

	w.mu.Lock()
	changed := make(map[string]int64)
	for productNo, inspectionID := range latest {
		if prev, ok := w.snapshot[productNo]; !ok || prev != inspectionID {
			changed[productNo] = inspectionID
		}
	}
	w.mu.Unlock()

	for productNo, inspectionID := range changed {
		update, err := w.store.InspectionUpdate(ctx, inspectionID)
		if err != nil {
			w.log.Warnw("watcher: load changed inspection failed", "product_no", productNo, "error", err)
			continue
		}
		w.broadcast(productNo, update)
	}

	// Snapshot update happens after dispatch, replacing wholesale rather
	// than merging — a product_no with no current subscribers drops out
	// naturally on the next poll's WatchedProductNos() call.
	w.mu.Lock()
	w.snapshot = latest
	w.mu.Unlock()
}

// broadcast sends update to every listener of productNo, fire-and-forget:
// each write runs on its own goroutine and a failure only logs, matching
// the original's ignore_exception_wrapper.
func (w *Watcher) broadcast(productNo string, update model.InspectionUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		w.log.Errorw("watcher: marshal update failed", "product_no", productNo, "error", err)
		return
	}
	for _, conn := range w.registry.listeners(productNo) {
		go func(c *websocket.Conn) {
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				w.log.Debugw("watcher: dispatch failed, client likely disconnected", "product_no", productNo, "error", err)
			}
		}(conn)
	}
}

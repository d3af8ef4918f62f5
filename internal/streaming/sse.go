package streaming

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// SSEProducer streams sensor notifications as Server-Sent Events, with a
// periodic heartbeat comment to keep idle connections alive through
// intervening proxies.
type SSEProducer struct {
	registry     *Registry
	log          *zap.SugaredLogger
	heartbeatDur time.Duration
}

func NewSSEProducer(registry *Registry, heartbeatSec int, log *zap.SugaredLogger) *SSEProducer {
	if heartbeatSec <= 0 {
		heartbeatSec = 15
	}
	return &SSEProducer{registry: registry, log: log, heartbeatDur: time.Duration(heartbeatSec) * time.Second}
}

// Serve relays notifications received on ch to w as SSE "data:" frames
// until ctx is cancelled or ch closes.
func (p *SSEProducer) Serve(ctx context.Context, w http.ResponseWriter, endpoint string, ch <-chan model.SensorNotification, slowClientTimeout time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	reg, detach := p.registry.Register(model.StreamSSE, endpoint)
	defer detach()

	heartbeat := time.NewTicker(p.heartbeatDur)
	defer heartbeat.Stop()

	var eventID int

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if err := writeWithDeadline(w, flusher, slowClientTimeout, []byte(": heartbeat\n\n")); err != nil {
				p.registry.RecordError(reg)
				return err
			}
		case n, open := <-ch:
			if !open {
				return nil
			}
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(sseDataPayload(n)); err != nil {
				p.registry.RecordError(reg)
				continue
			}
			payload := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
			eventID++
			frame := fmt.Appendf(nil, "event: %s\nid: %d\ndata: %s\n\n", n.EventName(), eventID, payload)
			if err := writeWithDeadline(w, flusher, slowClientTimeout, frame); err != nil {
				p.registry.RecordError(reg)
				p.log.Debugw("streaming: sse client dropped", "endpoint", endpoint, "error", err)
				return err
			}
			p.registry.RecordWrite(reg, len(frame))
		}
	}
}

// sseDataPayload narrows n to the wire shape spec.md §4.7 mandates per
// event type: a "decision" event carries only {decision, at}, a
// "sensor-state" event carries only {state, sequence, last_event_time}.
func sseDataPayload(n model.SensorNotification) any {
	if n.Decision != "" {
		return struct {
			Decision model.Decision `json:"decision"`
			At       time.Time      `json:"at"`
		}{Decision: n.Decision, At: n.At}
	}
	return struct {
		State         model.SensorState       `json:"state"`
		Sequence      []model.SensorEventKind `json:"sequence"`
		LastEventTime time.Time               `json:"last_event_time"`
	}{State: n.State, Sequence: n.Sequence, LastEventTime: n.At}
}

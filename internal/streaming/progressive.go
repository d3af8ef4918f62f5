package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// ProgressiveProducer streams a sequence of items as a single JSON array
// whose elements arrive incrementally — the client can parse each
// completed element as soon as its closing delimiter lands, without
// waiting for the whole response body (spec.md §4.7's "progressive JSON").
type ProgressiveProducer struct {
	registry *Registry
	log      *zap.SugaredLogger
}

func NewProgressiveProducer(registry *Registry, log *zap.SugaredLogger) *ProgressiveProducer {
	return &ProgressiveProducer{registry: registry, log: log}
}

// Serve writes "[" then one marshaled item per receive on ch (comma
// separated), then "]" once ch closes. If ctx is cancelled first it
// returns without writing the closing "]".
func (p *ProgressiveProducer) Serve(ctx context.Context, w http.ResponseWriter, endpoint string, ch <-chan any, slowClientTimeout time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	reg, detach := p.registry.Register(model.StreamInspection, endpoint)
	defer detach()

	if err := writeWithDeadline(w, flusher, slowClientTimeout, []byte("[")); err != nil {
		p.registry.RecordError(reg)
		return err
	}

	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case item, open := <-ch:
			if !open {
				_, err := w.Write([]byte("]"))
				flusher.Flush()
				return err
			}
			encoded, err := json.Marshal(item)
			if err != nil {
				p.registry.RecordError(reg)
				continue
			}
			var chunk []byte
			if !first {
				chunk = append(chunk, ',')
			}
			first = false
			chunk = append(chunk, encoded...)

			if err := writeWithDeadline(w, flusher, slowClientTimeout, chunk); err != nil {
				p.registry.RecordError(reg)
				p.log.Debugw("streaming: progressive client dropped", "endpoint", endpoint, "error", err)
				return err
			}
			p.registry.RecordWrite(reg, len(chunk))
		}
	}
}

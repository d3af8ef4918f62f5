package httpapi

import (
	"sync"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// SensorBroadcast fans every sensor.Machine notification out to however
// many SSE clients are currently attached to /api/stream/sensor/status.
// It must never block the sensor machine's dispatch: Publish drops the
// notification for any subscriber whose channel is full rather than wait
// (spec.md §5: the state machine never suspends, and a dropped capture
// must be observably dropped, never silently duplicated - the same
// tolerance extends to this purely-observational fan-out).
type SensorBroadcast struct {
	mu   sync.Mutex
	subs map[chan model.SensorNotification]struct{}
}

func NewSensorBroadcast() *SensorBroadcast {
	return &SensorBroadcast{subs: make(map[chan model.SensorNotification]struct{})}
}

// Subscribe returns a channel of future notifications and an unsubscribe
// func the caller must defer.
func (b *SensorBroadcast) Subscribe() (<-chan model.SensorNotification, func()) {
	ch := make(chan model.SensorNotification, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish fans n out to every current subscriber, non-blocking.
func (b *SensorBroadcast) Publish(n model.SensorNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

package model

import (
	"sync/atomic"
	"time"
)

// StreamKind distinguishes the wire shapes the streaming fabric serves.
type StreamKind string

const (
	StreamCamera     StreamKind = "camera"
	StreamSSE        StreamKind = "sse"
	StreamFile       StreamKind = "file"
	StreamInspection StreamKind = "inspection"
	StreamAnalysis   StreamKind = "analysis"
)

// StreamRegistration tracks one live client attachment. Counters are
// atomics so producers can update them without taking the registry lock.
type StreamRegistration struct {
	ID             string
	Kind           StreamKind
	ClientEndpoint string
	StartedAt      time.Time

	bytesSent     atomic.Int64
	messagesSent  atomic.Int64
	errors        atomic.Int64
	lastActivity  atomic.Int64 // unix nanos
}

func NewStreamRegistration(id string, kind StreamKind, endpoint string) *StreamRegistration {
	r := &StreamRegistration{
		ID:             id,
		Kind:           kind,
		ClientEndpoint: endpoint,
		StartedAt:      time.Now(),
	}
	r.lastActivity.Store(r.StartedAt.UnixNano())
	return r
}

func (r *StreamRegistration) RecordWrite(n int) {
	r.bytesSent.Add(int64(n))
	r.messagesSent.Add(1)
	r.lastActivity.Store(time.Now().UnixNano())
}

func (r *StreamRegistration) RecordError() {
	r.errors.Add(1)
}

func (r *StreamRegistration) BytesSent() int64    { return r.bytesSent.Load() }
func (r *StreamRegistration) MessagesSent() int64 { return r.messagesSent.Load() }
func (r *StreamRegistration) Errors() int64       { return r.errors.Load() }
func (r *StreamRegistration) LastActivity() time.Time {
	return time.Unix(0, r.lastActivity.Load())
}
func (r *StreamRegistration) ConnectionDuration() time.Duration {
	return time.Since(r.StartedAt)
}

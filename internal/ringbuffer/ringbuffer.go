// Package ringbuffer implements the frame ring buffer (C2): a fixed
// capacity, mutex-guarded queue of model.Frame that drops the oldest entry
// on overflow. Adapted from the teacher repo's internal/frame.CameraCache,
// generalized from a per-camera JPEG ring to a shared model.Frame ring
// sized by configured buffer duration * FPS rather than a hardcoded 10.
package ringbuffer

import (
	"sync"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

const DefaultMaxSize = 300

// Buffer is safe under concurrent producers (spec.md §5 expects at most
// one in practice) and multiple consumers.
type Buffer struct {
	mu       sync.RWMutex
	frames   []model.Frame
	writeIdx int
	size     int // number of valid entries, <= cap(frames)
}

func New(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Buffer{frames: make([]model.Frame, maxSize)}
}

// Append is O(1); it drops the oldest frame on overflow.
func (b *Buffer) Append(f model.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames[b.writeIdx] = f
	b.writeIdx = (b.writeIdx + 1) % len(b.frames)
	if b.size < len(b.frames) {
		b.size++
	}
}

// Snapshot returns a shallow copy of the current contents, oldest first.
func (b *Buffer) Snapshot() []model.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Frame, b.size)
	start := (b.writeIdx - b.size + len(b.frames)) % len(b.frames)
	for i := 0; i < b.size; i++ {
		out[i] = b.frames[(start+i)%len(b.frames)]
	}
	return out
}

// Latest returns the most recently appended frame, if any.
func (b *Buffer) Latest() (model.Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.size == 0 {
		return model.Frame{}, false
	}
	idx := (b.writeIdx - 1 + len(b.frames)) % len(b.frames)
	return b.frames[idx], true
}

// Clear empties the buffer in one atomic step.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeIdx = 0
	b.size = 0
}

// Len reports the current number of valid entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

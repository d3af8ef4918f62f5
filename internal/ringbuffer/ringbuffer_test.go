package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

func frame(ts int64) model.Frame {
	return model.Frame{TimestampUS: ts}
}

func TestAppendDropsOldestOnOverflow(t *testing.T) {
	b := New(3)
	b.Append(frame(1))
	b.Append(frame(2))
	b.Append(frame(3))
	b.Append(frame(4)) // overflow: drops ts=1

	got := b.Snapshot()
	assert.Len(t, got, 3)
	assert.Equal(t, []int64{2, 3, 4}, []int64{got[0].TimestampUS, got[1].TimestampUS, got[2].TimestampUS})
}

func TestSnapshotOrderBeforeFull(t *testing.T) {
	b := New(5)
	b.Append(frame(10))
	b.Append(frame(20))

	got := b.Snapshot()
	assert.Equal(t, []int64{10, 20}, []int64{got[0].TimestampUS, got[1].TimestampUS})
}

func TestLatest(t *testing.T) {
	b := New(2)
	_, ok := b.Latest()
	assert.False(t, ok)

	b.Append(frame(1))
	b.Append(frame(2))
	f, ok := b.Latest()
	assert.True(t, ok)
	assert.Equal(t, int64(2), f.TimestampUS)
}

func TestClear(t *testing.T) {
	b := New(4)
	b.Append(frame(1))
	b.Append(frame(2))
	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())
}

func TestDefaultMaxSize(t *testing.T) {
	b := New(0)
	assert.Equal(t, DefaultMaxSize, len(b.frames))
}

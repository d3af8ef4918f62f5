package streaming

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

func TestRegistry_RegisterDetachCount(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())

	_, detach1 := reg.Register(model.StreamCamera, "/camera/1")
	_, detach2 := reg.Register(model.StreamCamera, "/camera/2")
	_, detachSSE := reg.Register(model.StreamSSE, "/sensor")

	assert.Equal(t, 2, reg.Count(model.StreamCamera))
	assert.Equal(t, 1, reg.Count(model.StreamSSE))
	assert.Len(t, reg.Snapshot(), 3)

	detach1()
	assert.Equal(t, 1, reg.Count(model.StreamCamera))

	detach2()
	detachSSE()
	assert.Empty(t, reg.Snapshot())
}

func TestRegistry_RecordWriteAndError(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	r, detach := reg.Register(model.StreamCamera, "/camera/1")
	defer detach()

	reg.RecordWrite(r, 128)
	reg.RecordWrite(r, 64)
	reg.RecordError(r)

	assert.EqualValues(t, 192, r.BytesSent())
	assert.EqualValues(t, 2, r.MessagesSent())
	assert.EqualValues(t, 1, r.Errors())
}

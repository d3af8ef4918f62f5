package streaming

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// staticSource always returns the same already-JPEG-encoded frame, so the
// producer exercises the "already encoded" branch of toJPEG without
// needing a real OpenCV transcode in tests.
type staticSource struct {
	frame model.Frame
	ok    bool
}

func (s staticSource) Latest() (model.Frame, bool) { return s.frame, s.ok }

func TestToJPEG_PassesThroughAlreadyEncodedFrame(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	out, err := toJPEG(model.Frame{Image: jpeg}, 80)
	assert.NoError(t, err)
	assert.Equal(t, jpeg, out)
}

func TestMJPEGProducer_StopsOnContextCancel(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	p := NewMJPEGProducer(reg, 80, 30, zap.NewNop().Sugar())

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	src := staticSource{frame: model.Frame{Image: jpeg, TimestampUS: 1}, ok: true}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	err := p.Serve(ctx, rec, "/camera/test", src, 2*time.Second)
	assert.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "--frame")
	assert.Equal(t, 0, reg.Count(model.StreamCamera)) // detached on return
}

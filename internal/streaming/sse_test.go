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

func TestSSEProducer_EmitsNamedEventsWithMonotonicID(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	p := NewSSEProducer(reg, 15, zap.NewNop().Sugar())

	ch := make(chan model.SensorNotification, 2)
	ch <- model.SensorNotification{State: model.StateAActive, Sequence: []model.SensorEventKind{model.EventAOn}, At: time.Now()}
	ch <- model.SensorNotification{Decision: model.DecisionPassLtoR, At: time.Now()}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	err := p.Serve(ctx, rec, "/sensor/stream", ch, 2*time.Second)
	assert.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "event: sensor-state\nid: 1\ndata:")
	assert.Contains(t, body, `"state":"A_ACTIVE"`)
	assert.Contains(t, body, "event: decision\nid: 2\ndata:")
	assert.Contains(t, body, `"decision":"pass-L->R"`)
}

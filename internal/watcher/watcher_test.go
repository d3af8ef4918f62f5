package watcher

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func TestRegistry_SubscribeUnsubscribe(t *testing.T) {
	r := NewRegistry()
	c1 := &websocket.Conn{}
	c2 := &websocket.Conn{}

	r.Subscribe("PN-1", c1)
	r.Subscribe("PN-1", c2)
	r.Subscribe("PN-2", c1)

	assert.ElementsMatch(t, []string{"PN-1", "PN-2"}, r.WatchedProductNos())
	assert.Len(t, r.listeners("PN-1"), 2)

	r.Unsubscribe("PN-1", c1)
	assert.Len(t, r.listeners("PN-1"), 1)

	r.Unsubscribe("PN-1", c2)
	assert.NotContains(t, r.WatchedProductNos(), "PN-1")
}

func TestWatcher_PollOnceSkipsWhenNoSubscribers(t *testing.T) {
	w := New(nil, NewRegistry(), testLogger())
	// store is nil; pollOnce must return before touching it because
	// WatchedProductNos() is empty.
	w.pollOnce(nil)
}

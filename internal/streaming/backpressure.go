package streaming

import (
	"fmt"
	"net/http"
	"time"
)

// writeWithDeadline writes each of chunks to w, first arming a write
// deadline via http.ResponseController (spec.md §4.7's 2s slow-client
// backpressure close). A client that can't keep up trips the deadline and
// the connection is torn down instead of buffering unboundedly in the
// kernel socket buffer.
func writeWithDeadline(w http.ResponseWriter, flusher http.Flusher, timeout time.Duration, chunks ...[]byte) error {
	rc := http.NewResponseController(w)
	if timeout > 0 {
		if err := rc.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			// Underlying writer doesn't support deadlines (e.g. in tests
			// against httptest.ResponseRecorder); proceed without one.
		}
	}
	for _, c := range chunks {
		if len(c) == 0 {
			continue
		}
		if _, err := w.Write(c); err != nil {
			return fmt.Errorf("streaming: write: %w", err)
		}
	}
	flusher.Flush()
	return nil
}

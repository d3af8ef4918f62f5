package streaming

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/camera"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/ringbuffer"
)

// FrameSource is whatever the MJPEG producer reads from: the camera
// manager's ring buffer in the common case.
type FrameSource interface {
	Latest() (model.Frame, bool)
}

var _ FrameSource = (*ringbuffer.Buffer)(nil)

// maxConsecutiveNoFrame is the "after 5 consecutive failures the stream
// closes with status ok" threshold spec.md §4.7/§7 names for the
// transient-camera error class.
const maxConsecutiveNoFrame = 5

// heartbeatInterval bounds how often the no-frame heartbeat comment is
// emitted ("at most once per second", spec.md §4.7).
const heartbeatInterval = time.Second

// MJPEGProducer streams frames from a FrameSource as a
// multipart/x-mixed-replace response, matching the teacher's
// streamCameraFromCache frame-header byte-banging exactly, generalized to
// read from any FrameSource instead of one hardcoded per-camera cache.
type MJPEGProducer struct {
	registry *Registry
	log      *zap.SugaredLogger
	quality  int
	fps      int
}

func NewMJPEGProducer(registry *Registry, quality, fps int, log *zap.SugaredLogger) *MJPEGProducer {
	if fps <= 0 {
		fps = 10
	}
	if quality <= 0 {
		quality = 80
	}
	return &MJPEGProducer{registry: registry, log: log, quality: quality, fps: fps}
}

// Serve writes the MJPEG stream to w until the client disconnects or a
// write stalls past the slow-client timeout (spec.md §4.7 scenario 6).
func (p *MJPEGProducer) Serve(ctx context.Context, w http.ResponseWriter, endpoint string, source FrameSource, slowClientTimeout time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	reg, detach := p.registry.Register(model.StreamCamera, endpoint)
	defer detach()

	ticker := time.NewTicker(time.Second / time.Duration(p.fps))
	defer ticker.Stop()

	headerBuf := make([]byte, 0, 128)
	var lastSeen int64
	var consecutiveNoFrame int
	var lastHeartbeat time.Time
	var heartbeatSeq int

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, ok := source.Latest()
		if !ok {
			consecutiveNoFrame++
			if consecutiveNoFrame >= maxConsecutiveNoFrame {
				p.log.Debugw("streaming: mjpeg no frame after retries, closing stream", "endpoint", endpoint)
				return nil
			}
			if time.Since(lastHeartbeat) >= heartbeatInterval {
				heartbeatSeq++
				heartbeat := fmt.Appendf(nil, "--frame\r\nX-Heartbeat: %d\r\n\r\n", heartbeatSeq)
				if err := writeWithDeadline(w, flusher, slowClientTimeout, heartbeat); err != nil {
					p.registry.RecordError(reg)
					p.log.Debugw("streaming: mjpeg client dropped during heartbeat", "endpoint", endpoint, "error", err)
					return err
				}
				lastHeartbeat = time.Now()
			}
			continue
		}
		consecutiveNoFrame = 0

		if frame.TimestampUS == lastSeen {
			continue
		}
		lastSeen = frame.TimestampUS

		jpeg, err := toJPEG(frame, p.quality)
		if err != nil {
			p.registry.RecordError(reg)
			continue
		}

		headerBuf = headerBuf[:0]
		headerBuf = append(headerBuf, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: "...)
		headerBuf = fmt.Appendf(headerBuf, "%d", len(jpeg))
		headerBuf = append(headerBuf, "\r\n\r\n"...)

		if err := writeWithDeadline(w, flusher, slowClientTimeout, headerBuf, jpeg, []byte("\r\n")); err != nil {
			p.registry.RecordError(reg)
			p.log.Debugw("streaming: mjpeg client dropped", "endpoint", endpoint, "error", err)
			return err
		}
		p.registry.RecordWrite(reg, len(jpeg))
	}
}

// toJPEG returns frame's JPEG bytes directly when it already arrived
// JPEG-encoded (Industrial's vendor snapshot, Width==0), or transcodes a
// raw RGB frame (Dummy/Webcam) via camera.EncodeJPEG otherwise.
func toJPEG(f model.Frame, quality int) ([]byte, error) {
	if f.Width == 0 && f.Height == 0 {
		return f.Image, nil
	}
	return camera.EncodeJPEG(f, quality)
}

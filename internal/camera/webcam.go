package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// reconnectPause is the pause between release and reopen on a single
// reconnect attempt per GetFrame call (spec.md §4.1).
const reconnectPause = 500 * time.Millisecond

// Webcam drives a local USB/consumer camera via OpenCV's VideoCapture.
type Webcam struct {
	mu        sync.Mutex
	deviceID  int
	cap       *gocv.VideoCapture
	connected bool
	mode      Mode
	sink      FrameSink
	fps       int
	stopTick  chan struct{}
	seq       int
}

func NewWebcam(deviceID, fps int, sink FrameSink) *Webcam {
	if fps <= 0 {
		fps = 15
	}
	return &Webcam{deviceID: deviceID, fps: fps, sink: sink, mode: ModeSnapshot}
}

func (w *Webcam) Kind() Kind { return KindWebcam }

func (w *Webcam) Connect() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connectLocked()
}

func (w *Webcam) connectLocked() bool {
	if w.connected {
		return true
	}
	cap, err := gocv.OpenVideoCapture(w.deviceID)
	if err != nil || cap == nil || !cap.IsOpened() {
		if cap != nil {
			cap.Close()
		}
		return false
	}
	w.cap = cap
	w.connected = true
	return true
}

func (w *Webcam) Disconnect() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disconnectLocked()
}

func (w *Webcam) disconnectLocked() bool {
	w.stopTickerLocked()
	if w.cap != nil {
		_ = w.cap.Close()
		w.cap = nil
	}
	w.connected = false
	return true
}

func (w *Webcam) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *Webcam) SetMode(m Mode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mode == m {
		return
	}
	w.mode = m
	if m == ModeContinuous {
		w.startTickerLocked()
	} else {
		w.stopTickerLocked()
	}
}

func (w *Webcam) startTickerLocked() {
	if w.stopTick != nil || w.sink == nil {
		return
	}
	stop := make(chan struct{})
	w.stopTick = stop
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(w.fps))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if f, ok := w.GetFrame(); ok {
					w.sink.Append(f)
				}
			}
		}
	}()
}

func (w *Webcam) stopTickerLocked() {
	if w.stopTick != nil {
		close(w.stopTick)
		w.stopTick = nil
	}
}

// GetFrame reads one frame. On transient failure it marks the instance
// disconnected and attempts exactly one reconnect (release, pause, reopen)
// before giving up and returning nil, per spec.md §4.1.
func (w *Webcam) GetFrame() (model.Frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.readOnceLocked()
	if ok {
		return f, true
	}

	w.disconnectLocked()
	time.Sleep(reconnectPause)
	if !w.connectLocked() {
		return model.Frame{}, false
	}
	return w.readOnceLocked()
}

func (w *Webcam) readOnceLocked() (model.Frame, bool) {
	if w.cap == nil || !w.connected {
		return model.Frame{}, false
	}
	mat := gocv.NewMat()
	defer mat.Close()
	if !w.cap.Read(&mat) || mat.Empty() {
		w.connected = false
		return model.Frame{}, false
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	return model.Frame{
		Image:       rgb.ToBytes(),
		Width:       rgb.Cols(),
		Height:      rgb.Rows(),
		TimestampUS: time.Now().UnixMicro(),
	}, true
}

func (w *Webcam) WriteFrame(dir string) (string, error) {
	f, ok := w.GetFrame()
	if !ok {
		return "", fmt.Errorf("webcam: no frame available")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.mu.Unlock()
	path := filepath.Join(dir, frameFilename(seq, f.Width, f.Height))
	return path, os.WriteFile(path, encodeBMP(f), 0o644)
}

func (w *Webcam) SetParams(p map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil {
		return
	}
	if width, ok := p["width"].(float64); ok {
		w.cap.Set(gocv.VideoCaptureFrameWidth, width)
	}
	if height, ok := p["height"].(float64); ok {
		w.cap.Set(gocv.VideoCaptureFrameHeight, height)
	}
}

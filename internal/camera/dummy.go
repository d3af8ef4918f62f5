package camera

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// Dummy is the canonical fallback driver: an in-process black-frame
// producer used whenever no physical camera is reachable (spec.md §4.1,
// glossary "Dummy camera"). It always satisfies the Driver contract.
type Dummy struct {
	mu        sync.Mutex
	connected bool
	mode      Mode
	width     int
	height    int
	sink      FrameSink
	fps       int
	stopTick  chan struct{}
	seq       int
}

func NewDummy(width, height, fps int, sink FrameSink) *Dummy {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	if fps <= 0 {
		fps = 10
	}
	return &Dummy{width: width, height: height, fps: fps, sink: sink, mode: ModeSnapshot}
}

func (d *Dummy) Kind() Kind { return KindDummy }

func (d *Dummy) Connect() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return true
}

func (d *Dummy) Disconnect() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTickerLocked()
	d.connected = false
	return true
}

func (d *Dummy) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Dummy) SetMode(m Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == m {
		return // idempotent
	}
	d.mode = m
	if m == ModeContinuous {
		d.startTickerLocked()
	} else {
		d.stopTickerLocked()
	}
}

func (d *Dummy) startTickerLocked() {
	if d.stopTick != nil || d.sink == nil {
		return
	}
	stop := make(chan struct{})
	d.stopTick = stop
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(d.fps))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f, _ := d.GetFrame()
				d.sink.Append(f)
			}
		}
	}()
}

func (d *Dummy) stopTickerLocked() {
	if d.stopTick != nil {
		close(d.stopTick)
		d.stopTick = nil
	}
}

func (d *Dummy) GetFrame() (model.Frame, bool) {
	d.mu.Lock()
	w, h := d.width, d.height
	d.seq++
	d.mu.Unlock()

	buf := make([]byte, w*h*3) // already zeroed: pure black
	return model.Frame{
		Image:       buf,
		Width:       w,
		Height:      h,
		TimestampUS: time.Now().UnixMicro(),
		IsFallback:  true,
	}, true
}

func (d *Dummy) WriteFrame(dir string) (string, error) {
	f, _ := d.GetFrame()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()
	path := filepath.Join(dir, frameFilename(seq, f.Width, f.Height))
	return path, os.WriteFile(path, encodeBMP(f), 0o644)
}

func (d *Dummy) SetParams(p map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := p["width"].(int); ok {
		d.width = w
	}
	if h, ok := p["height"].(int); ok {
		d.height = h
	}
}

package camera

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/config"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/utils"
)

// Industrial drives a line-scan/vendor camera whose native SDK exposes an
// HTTP snapshot endpoint (the common shape for vendor control planes that
// don't ship a cgo binding). Its transport is adapted directly from the
// teacher repo's internal/client.Client: a resty client with short
// timeouts and no transport-level retry, authenticated via cookie/token.
//
// Connect() may retry internally per spec.md §4.1; GetFrame() never does —
// transient failure there just marks the instance disconnected.
type Industrial struct {
	mu        sync.Mutex
	connected bool
	mode      Mode
	sink      FrameSink
	fps       int
	stopTick  chan struct{}
	seq       int

	rc        *resty.Client
	auth      config.IndustrialAuth
	connectRetries int
}

func NewIndustrial(auth config.IndustrialAuth, fps int, sink FrameSink) *Industrial {
	if fps <= 0 {
		fps = 20
	}
	rc := resty.New().
		SetTimeout(5 * time.Second).
		SetHeader("User-Agent", "oin-wood-inspection/industrial-camera-client").
		SetHeader("Accept", "image/jpeg").
		SetDisableWarn(true)
	rc.SetTransport(&http.Transport{
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ResponseHeaderTimeout: 3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	})
	return &Industrial{rc: rc, auth: auth, fps: fps, sink: sink, mode: ModeSnapshot, connectRetries: 3}
}

func (ind *Industrial) Kind() Kind { return KindIndustrial }

// Connect performs vendor-specific retry (a bounded number of probe
// fetches) but is the only place Industrial retries — GetFrame never does.
func (ind *Industrial) Connect() bool {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.connected {
		return true
	}
	if ind.auth.BaseURL == "" {
		return false
	}
	for attempt := 0; attempt < ind.connectRetries; attempt++ {
		if ind.probeLocked() {
			ind.connected = true
			return true
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func (ind *Industrial) probeLocked() bool {
	resp, err := ind.fetchLocked()
	return err == nil && resp != nil && resp.StatusCode() == http.StatusOK
}

func (ind *Industrial) fetchLocked() (*resty.Response, error) {
	req := ind.rc.R()
	if ind.auth.Token != "" {
		req.SetHeader("Authorization", ind.auth.Token)
	}
	if name, value := ind.auth.CookieNameValue(); value != "" {
		req.SetCookie(&http.Cookie{Name: name, Value: value})
	}
	return req.Get(ind.auth.BaseURL)
}

func (ind *Industrial) Disconnect() bool {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	ind.stopTickerLocked()
	ind.connected = false
	return true
}

func (ind *Industrial) IsConnected() bool {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.connected
}

func (ind *Industrial) SetMode(m Mode) {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.mode == m {
		return
	}
	ind.mode = m
	if m == ModeContinuous {
		ind.startTickerLocked()
	} else {
		ind.stopTickerLocked()
	}
}

func (ind *Industrial) startTickerLocked() {
	if ind.stopTick != nil || ind.sink == nil {
		return
	}
	stop := make(chan struct{})
	ind.stopTick = stop
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(ind.fps))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if f, ok := ind.GetFrame(); ok {
					ind.sink.Append(f)
				}
			}
		}
	}()
}

func (ind *Industrial) stopTickerLocked() {
	if ind.stopTick != nil {
		close(ind.stopTick)
		ind.stopTick = nil
	}
}

// GetFrame never retries internally (spec.md §4.1): on transient failure
// it marks the instance disconnected and returns nil, leaving reconnect to
// the caller (via the camera manager's next Acquire).
func (ind *Industrial) GetFrame() (model.Frame, bool) {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if !ind.connected {
		return model.Frame{}, false
	}

	resp, err := ind.fetchLocked()
	if err != nil || resp == nil || resp.StatusCode() != http.StatusOK {
		ind.connected = false
		return model.Frame{}, false
	}
	body := resp.Body()
	if len(body) == 0 || !utils.IsValidJPEG(body) {
		ind.connected = false
		return model.Frame{}, false
	}

	return model.Frame{
		Image:       body,
		TimestampUS: time.Now().UnixMicro(),
	}, true
}

func (ind *Industrial) WriteFrame(dir string) (string, error) {
	f, ok := ind.GetFrame()
	if !ok {
		return "", fmt.Errorf("industrial: no frame available")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ind.mu.Lock()
	ind.seq++
	seq := ind.seq
	ind.mu.Unlock()
	// The vendor snapshot already arrives JPEG-encoded; persist it as-is
	// as frame<seq>.jpg. Unlike the frame<seq>_<w>x<h>.bmp captures of the
	// other drivers, the resolver's (C9) frame-id glob, which matches only
	// .bmp files, does not pick these up; its basename strategies do.
	path := filepath.Join(dir, fmt.Sprintf("frame%03d.jpg", seq))
	return path, os.WriteFile(path, f.Image, 0o644)
}

func (ind *Industrial) SetParams(p map[string]any) {
	// Vendor-specific parameter tuning (exposure, gain, …) would be sent
	// as a vendor HTTP control-plane call here; no parameters are
	// currently exercised by this module's callers.
}

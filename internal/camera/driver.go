// Package camera implements the driver abstraction (C1), the camera
// manager singleton (C3), and the concrete Industrial/Webcam/Dummy
// variants that satisfy Driver.
package camera

import (
	"errors"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// Kind names a driver variant. KindActive is a sentinel used by callers
// that just want "whatever is currently active" without switching it.
type Kind string

const (
	KindIndustrial Kind = "industrial"
	KindWebcam     Kind = "webcam"
	KindDummy      Kind = "dummy"
	KindActive     Kind = "active"
)

// Mode is the acquisition mode (spec.md §4.1).
type Mode string

const (
	ModeSnapshot   Mode = "snapshot"
	ModeContinuous Mode = "continuous"
)

var ErrNotConnected = errors.New("camera: not connected")

// Driver is the capability set every backend satisfies (spec.md §4.1).
// Dummy is a concrete, always-succeeding variant, not an abstract
// fallback: it implements every method exactly like any other driver.
type Driver interface {
	Kind() Kind
	Connect() bool
	Disconnect() bool
	IsConnected() bool
	SetMode(Mode)
	GetFrame() (model.Frame, bool)
	WriteFrame(dir string) (string, error)
	SetParams(map[string]any)
}

// FrameSink receives frames produced by a driver's continuous-mode ticker,
// normally a ringbuffer.Buffer.
type FrameSink interface {
	Append(model.Frame)
}

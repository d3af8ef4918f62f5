package model

import "time"

// Frame is a single acquired image, RGB width*height*3, with a producer
// timestamp. The Industrial driver is the exception: its frames carry the
// vendor's JPEG bytes as-is, with Width and Height left at zero.
// TimestampUS is monotonic when the backend supplies one, else wall-clock
// microseconds. IsFallback marks frames synthesized by the Dummy
// driver or served in place of a failed acquisition.
type Frame struct {
	Image       []byte
	Width       int
	Height      int
	TimestampUS int64
	IsFallback  bool
}

// CapturedAt converts TimestampUS to a time.Time for logging/comparison.
func (f Frame) CapturedAt() time.Time {
	return time.UnixMicro(f.TimestampUS)
}

// JPEG holds an already-encoded frame, as produced by a driver's
// WriteFrame/snapshot path or by the image cache's transcode step.
type JPEG struct {
	Data      []byte
	Width     int
	Height    int
	Quality   int
	EncodedAt time.Time
}

// Package clock provides the frame sources that drive the scheduler.
//
// A FrameSource behaves like a display's animation-frame primitive: a caller
// requests the next frame, receives exactly one callback with a monotonically
// increasing timestamp, and must request again to keep receiving frames.
// A Visibility reports whether the host surface is hidden, which lets the
// scheduler suspend its loop.
package clock

import (
	"time"
)

// FrameID identifies a pending frame request. Zero is never a valid ID.
type FrameID uint64

// FrameFunc receives the frame timestamp, measured from the source's origin.
type FrameFunc func(ts time.Duration)

type FrameSource interface {
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
}

type Visibility interface {
	Hidden() bool
	// Watch installs fn as a listener for visibility changes and returns a
	// function that removes it.
	Watch(fn func(hidden bool)) (stop func())
}

// Poster runs fn on the goroutine that owns a frame source.
type Poster interface {
	Post(fn func()) bool
}

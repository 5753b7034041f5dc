package clock

import (
	"sort"
	"time"
)

// Manual is a deterministic FrameSource and Visibility for tests and
// simulations. Frames are only delivered when Pulse is called.
//
// Manual is not safe for concurrent use.
type Manual struct {
	seq       FrameID
	pendingID FrameID
	pending   FrameFunc

	hidden   bool
	wseq     int
	watchers map[int]func(bool)

	requests int
	cancels  int
}

var (
	_ FrameSource = (*Manual)(nil)
	_ Visibility  = (*Manual)(nil)
)

func NewManual() *Manual {
	return &Manual{watchers: map[int]func(bool){}}
}

func (m *Manual) RequestFrame(fn FrameFunc) FrameID {
	m.seq++
	m.pendingID = m.seq
	m.pending = fn
	m.requests++
	return m.seq
}

func (m *Manual) CancelFrame(id FrameID) {
	if id == 0 || id != m.pendingID {
		return
	}
	m.pendingID = 0
	m.pending = nil
	m.cancels++
}

// Pending reports whether a frame has been requested and not yet delivered.
func (m *Manual) Pending() bool { return m.pending != nil }

// Requests returns how many frames have been requested so far.
func (m *Manual) Requests() int { return m.requests }

// Pulse delivers the pending frame, if any, with timestamp ts.
func (m *Manual) Pulse(ts time.Duration) bool {
	fn := m.pending
	if fn == nil {
		return false
	}
	m.pending = nil
	m.pendingID = 0
	fn(ts)
	return true
}

// Run delivers frames every step from start until end (inclusive) or until no
// frame is pending. It returns the number of frames delivered.
func (m *Manual) Run(start, end, step time.Duration) int {
	if step <= 0 {
		return 0
	}
	n := 0
	for ts := start; ts <= end; ts += step {
		if !m.Pulse(ts) {
			break
		}
		n++
	}
	return n
}

func (m *Manual) Hidden() bool { return m.hidden }

func (m *Manual) Watch(fn func(hidden bool)) func() {
	if fn == nil {
		return func() {}
	}
	m.wseq++
	id := m.wseq
	m.watchers[id] = fn
	return func() { delete(m.watchers, id) }
}

// SetHidden flips visibility and notifies watchers in installation order.
func (m *Manual) SetHidden(hidden bool) {
	if m.hidden == hidden {
		return
	}
	m.hidden = hidden
	ids := make([]int, 0, len(m.watchers))
	for id := range m.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn := m.watchers[id]; fn != nil {
			fn(hidden)
		}
	}
}

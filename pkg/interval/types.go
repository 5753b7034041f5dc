package interval

import (
	"time"
)

// Unbounded is the Limit (and Remaining) value of an interval that never
// disables itself from its firing count alone.
const Unbounded = -1

// DefaultDelay is used when neither the interval nor its owner provide a
// usable delay.
const DefaultDelay = time.Second

// Func observes an interval. It always receives a copy of the public state.
type Func func(State)

// DelayFunc computes the next delay of a variable-rate interval.
// Non-positive results are ignored and the previous delay is kept.
type DelayFunc func(State) time.Duration

// Settings is the immutable configuration of an interval.
//
// Defaults (applied by New):
//   - Autostart: true
//   - Delay: owner default when <= 0
//   - Limit: Unbounded when < 0
type Settings struct {
	Autostart      bool
	Callback       Func
	Delay          time.Duration
	DelayFunc      DelayFunc
	Limit          int
	RunImmediately bool
}

// Callbacks are optional per-interval observers.
type Callbacks struct {
	OnLimitReached Func
	OnProgress     Func
}

// State is a point-in-time copy of an interval's public state.
type State struct {
	Name        string
	Delay       time.Duration
	Enabled     bool
	Progress    float64
	Iteration   int
	Remaining   int
	LastRunTime time.Duration
	Settings    Settings
}

// Bounded reports whether the interval stops after a finite number of firings.
func (s State) Bounded() bool { return s.Remaining != Unbounded }

// Event identifies which observer an interval is notifying.
type Event int

const (
	EventFire Event = iota
	EventLimitReached
	EventProgress
)

func (e Event) String() string {
	switch e {
	case EventFire:
		return "fire"
	case EventLimitReached:
		return "limit_reached"
	case EventProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// Owner is the scheduler side of an interval.
//
// Wake must ensure the shared frame loop is running. Observe receives every
// event after the interval's own callbacks ran.
type Owner interface {
	Wake()
	Observe(ev Event, st State)
}

// Option configures an interval at creation time.
type Option func(*Settings, *Callbacks)

func WithDelay(d time.Duration) Option {
	return func(s *Settings, _ *Callbacks) { s.Delay = d }
}

// WithDelayFunc makes the interval variable-rate: fn is consulted when a
// fresh period begins (Start, Restart) and after every firing. Pausing and
// suspending keep the current delay.
func WithDelayFunc(fn DelayFunc) Option {
	return func(s *Settings, _ *Callbacks) { s.DelayFunc = fn }
}

func WithCallback(fn Func) Option {
	return func(s *Settings, _ *Callbacks) { s.Callback = fn }
}

// WithLimit caps the number of firings. Negative means Unbounded.
func WithLimit(n int) Option {
	return func(s *Settings, _ *Callbacks) { s.Limit = n }
}

func WithRunImmediately(v bool) Option {
	return func(s *Settings, _ *Callbacks) { s.RunImmediately = v }
}

func WithAutostart(v bool) Option {
	return func(s *Settings, _ *Callbacks) { s.Autostart = v }
}

func OnLimitReached(fn Func) Option {
	return func(_ *Settings, c *Callbacks) { c.OnLimitReached = fn }
}

func OnProgress(fn Func) Option {
	return func(_ *Settings, c *Callbacks) { c.OnProgress = fn }
}

// Package scheduler runs many intervals off one shared frame loop.
//
// A Scheduler owns the registry of intervals, the single frame subscription
// and the visibility listener. It is not safe for concurrent use: create it,
// call it and receive frames on one goroutine (see clock.Loop).
package scheduler

import (
	"time"

	"framesched/pkg/clock"
	"framesched/pkg/interval"
	logx "framesched/pkg/logx"
)

// Hooks are process-wide observers. Interval observers receive a copy of the
// interval state and run after the interval's own callbacks.
type Hooks struct {
	OnFire         interval.Func
	OnLimitReached interval.Func
	OnProgress     interval.Func

	OnSuspend func()
	OnResume  func()
}

// Config controls a Scheduler.
//
// Use DefaultConfig as the starting point; the zero value disables
// autostart and suspend-on-hidden.
type Config struct {
	// Autostart starts intervals on creation unless the interval opts out.
	Autostart bool
	// DelayDefault is used by intervals created without a usable delay.
	// Non-positive values fall back to interval.DefaultDelay.
	DelayDefault time.Duration
	// SuspendWhenHidden stops frames while the host surface is hidden.
	SuspendWhenHidden bool

	Hooks Hooks
}

func DefaultConfig() Config {
	return Config{
		Autostart:         true,
		DelayDefault:      interval.DefaultDelay,
		SuspendWhenHidden: true,
	}
}

func (c Config) normalized() Config {
	if c.DelayDefault <= 0 {
		c.DelayDefault = interval.DefaultDelay
	}
	return c
}

type Scheduler struct {
	cfg   Config
	log   logx.Logger
	trace logx.Logger

	frames  clock.FrameSource
	vis     clock.Visibility
	unwatch func()

	frame     clock.FrameID
	suspended bool
	pulses    uint64
	lastPulse time.Duration

	intervals []*interval.Interval
}

// New creates a scheduler. A nil frames source means the environment has no
// frame clock: intervals can be created and driven manually, but the loop
// never produces frames. A nil vis means the host is always visible.
func New(cfg Config, frames clock.FrameSource, vis clock.Visibility, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Scheduler{
		cfg:    cfg.normalized(),
		log:    log,
		trace:  log.Throttle(2),
		frames: frames,
		vis:    vis,
	}
	if vis != nil {
		s.unwatch = vis.Watch(s.onVisibilityChange)
	}
	return s
}

// Config returns the active configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Apply swaps the process-wide configuration. Existing intervals keep their
// own settings; DelayDefault only affects intervals created afterwards.
func (s *Scheduler) Apply(cfg Config) {
	prev := s.cfg
	s.cfg = cfg.normalized()
	s.log.Debug("config applied",
		logx.Bool("autostart", s.cfg.Autostart),
		logx.Duration("delay_default", s.cfg.DelayDefault),
		logx.Bool("suspend_when_hidden", s.cfg.SuspendWhenHidden),
	)

	switch {
	case prev.SuspendWhenHidden && !s.cfg.SuspendWhenHidden && s.suspended:
		s.resume()
	case !prev.SuspendWhenHidden && s.cfg.SuspendWhenHidden && s.hidden():
		s.suspend()
	}
}

// Close detaches the visibility listener and releases the frame
// subscription. Intervals stay registered.
func (s *Scheduler) Close() {
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
	s.release()
}

// Create registers a new interval configured by opts.
func (s *Scheduler) Create(name string, opts ...interval.Option) *interval.Interval {
	iv := interval.New(name, owner{s}, s.cfg.DelayDefault, opts...)
	s.intervals = append(s.intervals, iv)

	st := iv.State()
	s.log.Debug("interval created",
		logx.String("name", name),
		logx.Duration("delay", st.Delay),
		logx.Int("limit", st.Settings.Limit),
		logx.Int("registered", len(s.intervals)),
	)

	if s.cfg.Autostart && st.Settings.Autostart {
		iv.Start()
	}
	return iv
}

// CreateFunc registers an interval that calls fn every delay. A
// non-positive delay selects the configured default.
func (s *Scheduler) CreateFunc(name string, fn interval.Func, delay time.Duration) *interval.Interval {
	return s.Create(name, interval.WithCallback(fn), interval.WithDelay(delay))
}

// Interval returns the first interval registered under name. An empty name
// matches any interval.
func (s *Scheduler) Interval(name string) (*interval.Interval, bool) {
	for _, iv := range s.intervals {
		if name == "" || iv.Name() == name {
			return iv, true
		}
	}
	return nil, false
}

// Intervals returns the intervals matching name, in registration order.
// An empty name matches all.
func (s *Scheduler) Intervals(name string) []*interval.Interval {
	out := make([]*interval.Interval, 0, len(s.intervals))
	for _, iv := range s.intervals {
		if name == "" || iv.Name() == name {
			out = append(out, iv)
		}
	}
	return out
}

func (s *Scheduler) Len() int { return len(s.intervals) }

// Destroy disables and removes every interval matching name (all when name
// is empty). It reports whether anything was removed.
func (s *Scheduler) Destroy(name string) bool {
	// Build a fresh slice: a pulse in progress keeps iterating the old one.
	kept := make([]*interval.Interval, 0, len(s.intervals))
	removed := 0
	for _, iv := range s.intervals {
		if name == "" || iv.Name() == name {
			iv.Enable(false)
			removed++
			continue
		}
		kept = append(kept, iv)
	}
	if removed == 0 {
		return false
	}
	s.intervals = kept
	s.log.Debug("intervals destroyed", logx.String("name", name), logx.Int("removed", removed), logx.Int("registered", len(kept)))
	return true
}

func (s *Scheduler) Enable(name string, enable bool) {
	for _, iv := range s.Intervals(name) {
		iv.Enable(enable)
	}
}

func (s *Scheduler) Start(name string) {
	for _, iv := range s.Intervals(name) {
		iv.Start()
	}
}

func (s *Scheduler) Restart(name string) {
	for _, iv := range s.Intervals(name) {
		iv.Restart()
	}
}

// SetProgress seeks every matching interval to the given fraction of its
// current delay.
func (s *Scheduler) SetProgress(name string, progress float64) {
	for _, iv := range s.Intervals(name) {
		iv.Seek(progress)
	}
}

// owner adapts a Scheduler to interval.Owner without widening its API.
type owner struct{ s *Scheduler }

func (o owner) Wake() { o.s.start() }

func (o owner) Observe(ev interval.Event, st interval.State) { o.s.observe(ev, st) }

func (s *Scheduler) observe(ev interval.Event, st interval.State) {
	h := s.cfg.Hooks
	switch ev {
	case interval.EventFire:
		s.log.Debug("interval fired", logx.String("name", st.Name), logx.Int("iteration", st.Iteration), logx.Int("remaining", st.Remaining))
		if h.OnFire != nil {
			h.OnFire(st)
		}
	case interval.EventLimitReached:
		s.log.Debug("interval limit reached", logx.String("name", st.Name), logx.Int("iteration", st.Iteration))
		if h.OnLimitReached != nil {
			h.OnLimitReached(st)
		}
	case interval.EventProgress:
		if h.OnProgress != nil {
			h.OnProgress(st)
		}
	}
}

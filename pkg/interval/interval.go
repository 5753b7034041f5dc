// Package interval implements the per-interval state machine of the frame
// scheduler.
//
// An Interval does no timing of its own. It is fed timestamps by its owner
// (Tick) and turns them into progress, firings and limit transitions. All
// methods must be called from the goroutine that delivers frames.
package interval

import (
	"math"
	"time"
)

// Interval is a named, repeatable timed callback.
type Interval struct {
	name      string
	settings  Settings
	callbacks Callbacks
	owner     Owner

	delay       time.Duration
	enabled     bool
	progress    float64
	iteration   int
	remaining   int
	lastRunTime time.Duration

	// Timing state. elapsed = now + lastTime - startTime once based is set.
	// lastTime carries time accumulated before a pause or suspend.
	startTime   time.Duration
	currentTime time.Duration
	lastTime    time.Duration
	now         time.Duration
	based       bool

	runImmediately bool
}

// New creates an interval in the reset state (disabled, zero progress).
//
// defaultDelay replaces a non-positive Delay; if it is non-positive too,
// DefaultDelay is used. New never starts the interval; that is the owner's
// decision (see Settings.Autostart).
func New(name string, owner Owner, defaultDelay time.Duration, opts ...Option) *Interval {
	s := Settings{Autostart: true, Limit: Unbounded}
	var c Callbacks
	for _, o := range opts {
		if o != nil {
			o(&s, &c)
		}
	}
	if defaultDelay <= 0 {
		defaultDelay = DefaultDelay
	}
	if s.Delay <= 0 {
		s.Delay = defaultDelay
	}
	if s.Limit < 0 {
		s.Limit = Unbounded
	}

	i := &Interval{
		name:           name,
		settings:       s,
		callbacks:      c,
		owner:          owner,
		delay:          s.Delay,
		runImmediately: s.RunImmediately,
	}
	i.Reset()
	return i
}

func (i *Interval) Name() string         { return i.name }
func (i *Interval) Settings() Settings   { return i.settings }
func (i *Interval) Enabled() bool        { return i.enabled }
func (i *Interval) Progress() float64    { return i.progress }
func (i *Interval) Iteration() int       { return i.iteration }
func (i *Interval) Remaining() int       { return i.remaining }
func (i *Interval) Delay() time.Duration { return i.delay }

// State returns a copy of the public state.
func (i *Interval) State() State {
	return State{
		Name:        i.name,
		Delay:       i.delay,
		Enabled:     i.enabled,
		Progress:    i.progress,
		Iteration:   i.iteration,
		Remaining:   i.remaining,
		LastRunTime: i.lastRunTime,
		Settings:    i.settings,
	}
}

// Reset zeroes progress and counters. It never changes Enabled.
func (i *Interval) Reset() {
	i.currentTime = 0
	i.progress = 0
	i.iteration = 0
	if i.settings.Limit >= 0 {
		i.remaining = i.settings.Limit
	} else {
		i.remaining = Unbounded
	}
}

// Start enables a disabled interval from a fresh reset. It is a no-op when
// the interval is already enabled.
func (i *Interval) Start() {
	if i.enabled {
		return
	}
	i.Reset()
	i.enabled = true
	i.rebase()
	i.updateDelay()
	i.wake()

	if i.runImmediately && i.settings.Limit != 0 {
		i.runImmediately = false
		i.run()
	}
}

// Restart resets the counters and starts the interval. A running interval
// also restarts its current period.
func (i *Interval) Restart() {
	i.Reset()
	if i.enabled {
		i.rebase()
		i.updateDelay()
		i.wake()
		return
	}
	i.Start()
}

// Enable pauses (false) or resumes (true) the interval without touching its
// counters. Pausing snapshots elapsed time so resuming owes nothing for the
// paused span. An interval that exhausted its limit stays disabled; use
// Restart for that.
func (i *Interval) Enable(enable bool) {
	if enable && i.exhausted() {
		return
	}
	i.enabled = enable
	if !enable {
		i.rebase()
		return
	}
	i.wake()
}

// Seek jumps to the given fraction of the current delay. It fires right away
// when p >= 1 and never calls the progress observer.
func (i *Interval) Seek(p float64) {
	if math.IsNaN(p) || i.exhausted() {
		return
	}
	i.progress = clamp01(p)
	n := i.iteration
	i.advance(time.Duration(i.progress*float64(i.delay)), false)
	if i.iteration == n {
		// Continue from the sought position on the next frame.
		i.based = false
		i.lastTime = i.currentTime
	}
}

// Tick feeds one frame timestamp to an enabled interval.
func (i *Interval) Tick(now time.Duration) {
	if !i.enabled {
		return
	}
	i.now = now
	if !i.based {
		i.startTime = now
		i.based = true
	}
	i.advance(now+i.lastTime-i.startTime, true)
}

// Rebase drops the current time baseline while keeping elapsed time and the
// current delay. The owner calls it before frames resume after a suspend so
// the suspended span is not charged to the interval.
func (i *Interval) Rebase() { i.rebase() }

func (i *Interval) rebase() {
	i.based = false
	i.startTime = 0
	i.lastTime = i.currentTime
}

func (i *Interval) advance(elapsed time.Duration, natural bool) {
	delay := i.delay
	if natural {
		i.progress = clamp01(float64(elapsed) / float64(delay))
		i.emit(EventProgress, i.callbacks.OnProgress)
	}
	i.currentTime = min(max(elapsed, 0), delay)
	if i.currentTime >= delay {
		i.run()
	}
}

func (i *Interval) run() {
	i.lastTime = 0
	i.currentTime = 0
	i.lastRunTime = i.now
	i.iteration++
	if i.settings.Limit >= 0 && i.remaining > 0 {
		i.remaining--
	}
	i.updateDelay()

	if i.settings.Limit >= 0 && i.remaining == 0 {
		i.enabled = false
		i.emit(EventLimitReached, i.callbacks.OnLimitReached)
	} else if i.based {
		i.startTime = i.now
	}
	if i.settings.Limit != 0 {
		i.emit(EventFire, i.settings.Callback)
	}
}

func (i *Interval) updateDelay() {
	if i.settings.DelayFunc == nil {
		return
	}
	if d := i.settings.DelayFunc(i.State()); d > 0 {
		i.delay = d
	}
}

func (i *Interval) exhausted() bool {
	return i.settings.Limit >= 0 && i.remaining == 0 && i.iteration > 0
}

func (i *Interval) emit(ev Event, fn Func) {
	st := i.State()
	if fn != nil {
		fn(st)
	}
	if i.owner != nil {
		i.owner.Observe(ev, st)
	}
}

func (i *Interval) wake() {
	if i.owner != nil {
		i.owner.Wake()
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

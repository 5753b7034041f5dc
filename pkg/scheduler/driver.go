package scheduler

import (
	"time"

	"framesched/pkg/clock"
	logx "framesched/pkg/logx"
)

// start requests a frame unless one is pending, the host is hidden (and
// suspension is on), or nothing is registered. It returns the pending frame.
func (s *Scheduler) start() clock.FrameID {
	if s.frame == 0 && s.canRun() && len(s.intervals) > 0 {
		s.frame = s.frames.RequestFrame(s.step)
	}
	return s.frame
}

func (s *Scheduler) canRun() bool {
	if s.frames == nil {
		return false
	}
	return !s.cfg.SuspendWhenHidden || !s.hidden()
}

func (s *Scheduler) hidden() bool {
	return s.vis != nil && s.vis.Hidden()
}

// step is the frame callback. The frame stays recorded as pending while the
// pulse runs so that intervals started by callbacks do not request a second
// frame.
func (s *Scheduler) step(ts time.Duration) {
	s.pulses++
	s.lastPulse = ts
	n := s.dispatch(ts)
	s.trace.Trace("pulse", logx.Duration("ts", ts), logx.Int("serviced", n), logx.Int("registered", len(s.intervals)))

	if n > 0 && s.canRun() {
		s.frame = s.frames.RequestFrame(s.step)
		return
	}
	s.frame = 0
	if n == 0 {
		s.log.Debug("frame loop idle", logx.Uint64("pulses", s.pulses))
	}
}

// dispatch ticks every enabled interval once, in registration order, and
// returns how many were serviced.
func (s *Scheduler) dispatch(ts time.Duration) int {
	list := s.intervals
	n := 0
	for _, iv := range list {
		if !iv.Enabled() {
			continue
		}
		iv.Tick(ts)
		n++
	}
	return n
}

func (s *Scheduler) onVisibilityChange(hidden bool) {
	if !s.cfg.SuspendWhenHidden {
		return
	}
	if hidden {
		s.suspend()
		return
	}
	s.resume()
}

func (s *Scheduler) suspend() {
	s.release()
	if s.suspended {
		return
	}
	s.suspended = true
	s.log.Info("frame loop suspended", logx.Int("registered", len(s.intervals)))
	if fn := s.cfg.Hooks.OnSuspend; fn != nil {
		fn()
	}
}

// resume rebases every interval before frames restart so the suspended span
// is not counted as elapsed time.
func (s *Scheduler) resume() {
	if !s.suspended {
		s.start()
		return
	}
	s.suspended = false
	for _, iv := range s.intervals {
		iv.Rebase()
	}
	s.start()
	s.log.Info("frame loop resumed", logx.Int("registered", len(s.intervals)), logx.Bool("running", s.frame != 0))
	if fn := s.cfg.Hooks.OnResume; fn != nil {
		fn()
	}
}

func (s *Scheduler) release() {
	if s.frame != 0 && s.frames != nil {
		s.frames.CancelFrame(s.frame)
	}
	s.frame = 0
}

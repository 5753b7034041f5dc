package scheduler

import (
	"time"

	"framesched/pkg/interval"
)

// Snapshot is a lightweight view for diagnostics.
type Snapshot struct {
	Running           bool
	Suspended         bool
	Pulses            uint64
	LastPulse         time.Duration
	Autostart         bool
	DelayDefault      time.Duration
	SuspendWhenHidden bool
	Enabled           int
	Intervals         []interval.State
}

func (s *Scheduler) Snapshot() Snapshot {
	items := make([]interval.State, 0, len(s.intervals))
	enabled := 0
	for _, iv := range s.intervals {
		st := iv.State()
		if st.Enabled {
			enabled++
		}
		items = append(items, st)
	}
	return Snapshot{
		Running:           s.frame != 0,
		Suspended:         s.suspended,
		Pulses:            s.pulses,
		LastPulse:         s.lastPulse,
		Autostart:         s.cfg.Autostart,
		DelayDefault:      s.cfg.DelayDefault,
		SuspendWhenHidden: s.cfg.SuspendWhenHidden,
		Enabled:           enabled,
		Intervals:         items,
	}
}

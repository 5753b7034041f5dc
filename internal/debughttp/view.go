package debughttp

import (
	"framesched/pkg/interval"
	"framesched/pkg/scheduler"
)

type snapshotView struct {
	Running           bool           `json:"running"`
	Suspended         bool           `json:"suspended"`
	Pulses            uint64         `json:"pulses"`
	LastPulse         string         `json:"last_pulse"`
	Autostart         bool           `json:"autostart"`
	DelayDefault      string         `json:"delay_default"`
	SuspendWhenHidden bool           `json:"suspend_when_hidden"`
	Enabled           int            `json:"enabled"`
	Intervals         []intervalView `json:"intervals"`
}

type intervalView struct {
	Name        string  `json:"name"`
	Enabled     bool    `json:"enabled"`
	Delay       string  `json:"delay"`
	Progress    float64 `json:"progress"`
	Iteration   int     `json:"iteration"`
	Remaining   *int    `json:"remaining,omitempty"` // omitted when unbounded
	LastRunTime string  `json:"last_run_time"`
}

func viewSnapshot(s scheduler.Snapshot) snapshotView {
	out := snapshotView{
		Running:           s.Running,
		Suspended:         s.Suspended,
		Pulses:            s.Pulses,
		LastPulse:         s.LastPulse.String(),
		Autostart:         s.Autostart,
		DelayDefault:      s.DelayDefault.String(),
		SuspendWhenHidden: s.SuspendWhenHidden,
		Enabled:           s.Enabled,
		Intervals:         make([]intervalView, 0, len(s.Intervals)),
	}
	for _, st := range s.Intervals {
		out.Intervals = append(out.Intervals, viewInterval(st))
	}
	return out
}

func viewInterval(st interval.State) intervalView {
	v := intervalView{
		Name:        st.Name,
		Enabled:     st.Enabled,
		Delay:       st.Delay.String(),
		Progress:    st.Progress,
		Iteration:   st.Iteration,
		LastRunTime: st.LastRunTime.String(),
	}
	if st.Bounded() {
		r := st.Remaining
		v.Remaining = &r
	}
	return v
}

package scheduler

import (
	"testing"
	"time"

	"framesched/pkg/clock"
	"framesched/pkg/interval"
	logx "framesched/pkg/logx"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func newTestScheduler(t *testing.T, mutate func(*Config)) (*Scheduler, *clock.Manual) {
	t.Helper()
	m := clock.NewManual()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s := New(cfg, m, m, logx.Nop())
	t.Cleanup(s.Close)
	return s, m
}

func TestLimitScenarioDrivenByFrames(t *testing.T) {
	t.Parallel()
	limitHits := 0
	s, m := newTestScheduler(t, func(c *Config) {
		c.Hooks.OnLimitReached = func(interval.State) { limitHits++ }
	})

	var firedAt []time.Duration
	var remaining []int
	s.Create("x",
		interval.WithDelay(ms(100)),
		interval.WithLimit(3),
		interval.WithCallback(func(st interval.State) {
			firedAt = append(firedAt, st.LastRunTime)
			remaining = append(remaining, st.Remaining)
		}),
	)
	if !m.Pending() {
		t.Fatal("autostart should request a frame")
	}

	for _, ts := range []int{0, 100, 200, 300} {
		if !m.Pulse(ms(ts)) {
			t.Fatalf("no frame pending at %dms", ts)
		}
	}
	iv, _ := s.Interval("x")
	if iv.Enabled() {
		t.Fatal("interval should be disabled after the third firing")
	}
	// The fourth pulse finds nothing enabled and releases the loop.
	if !m.Pulse(ms(400)) {
		t.Fatal("expected a frame at 400ms")
	}
	if m.Pending() {
		t.Fatal("loop should stop once no interval is enabled")
	}
	if s.Snapshot().Running {
		t.Fatal("snapshot reports a running loop")
	}

	if len(firedAt) != 3 {
		t.Fatalf("fired %d times, want 3", len(firedAt))
	}
	for k, want := range []int{100, 200, 300} {
		if firedAt[k] != ms(want) {
			t.Fatalf("firing %d at %v, want %dms", k, firedAt[k], want)
		}
	}
	for k, want := range []int{2, 1, 0} {
		if remaining[k] != want {
			t.Fatalf("remaining[%d] = %d, want %d", k, remaining[k], want)
		}
	}
	if limitHits != 1 {
		t.Fatalf("OnLimitReached hook called %d times, want 1", limitHits)
	}
}

func TestRunImmediatelyBeforeAnyPulse(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, nil)
	fired := 0
	s.Create("now",
		interval.WithLimit(-1),
		interval.WithRunImmediately(true),
		interval.WithCallback(func(interval.State) { fired++ }),
	)
	if fired != 1 {
		t.Fatalf("fired = %d before any pulse, want 1", fired)
	}
	if m.Requests() != 1 {
		t.Fatalf("frame requests = %d, want 1", m.Requests())
	}
}

func TestSharedNameBulkOperations(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t, nil)
	first := s.CreateFunc("x", nil, ms(10))
	second := s.CreateFunc("x", nil, ms(20))
	other := s.CreateFunc("y", nil, ms(30))

	s.Enable("x", false)
	if first.Enabled() || second.Enabled() {
		t.Fatal("enable(x, false) must disable every interval named x")
	}
	if !other.Enabled() {
		t.Fatal("y should be untouched")
	}

	got, ok := s.Interval("x")
	if !ok || got != first {
		t.Fatal("Interval(x) should return the first created")
	}
	if _, ok := s.Interval("missing"); ok {
		t.Fatal("lookup miss should report not found")
	}

	s.Enable("", false)
	if other.Enabled() {
		t.Fatal("empty name should match every interval")
	}
	s.Start("x")
	if !first.Enabled() || !second.Enabled() || other.Enabled() {
		t.Fatal("Start(x) should only start intervals named x")
	}
}

func TestSuspendResumeContinuesFromAccumulatedProgress(t *testing.T) {
	t.Parallel()
	suspends, resumes := 0, 0
	s, m := newTestScheduler(t, func(c *Config) {
		c.Hooks.OnSuspend = func() { suspends++ }
		c.Hooks.OnResume = func() { resumes++ }
	})
	fired := 0
	iv := s.CreateFunc("blink", func(interval.State) { fired++ }, ms(100))

	m.Pulse(ms(0))
	m.Pulse(ms(40))
	if iv.Progress() != 0.4 {
		t.Fatalf("Progress = %v, want 0.4", iv.Progress())
	}

	m.SetHidden(true)
	if m.Pending() {
		t.Fatal("hidden host must not keep a frame pending")
	}
	if !s.Snapshot().Suspended || suspends != 1 {
		t.Fatalf("suspended=%v hooks=%d", s.Snapshot().Suspended, suspends)
	}

	m.SetHidden(false)
	if !m.Pending() || resumes != 1 {
		t.Fatalf("pending=%v resumes=%d", m.Pending(), resumes)
	}
	m.Pulse(ms(90_000))
	if iv.Progress() != 0.4 {
		t.Fatalf("Progress after resume = %v, want 0.4", iv.Progress())
	}
	if fired != 0 {
		t.Fatalf("suspended time was charged: fired = %d", fired)
	}
	m.Pulse(ms(90_060))
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestSuspendOptOut(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, func(c *Config) { c.SuspendWhenHidden = false })
	s.CreateFunc("always", nil, ms(100))
	m.SetHidden(true)
	if !m.Pending() {
		t.Fatal("frames must continue when suspension is disabled")
	}
	if s.Snapshot().Suspended {
		t.Fatal("scheduler should not report suspension")
	}
}

func TestApplyTogglesSuspension(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, nil)
	s.CreateFunc("a", nil, ms(100))
	m.SetHidden(true)
	if m.Pending() {
		t.Fatal("expected suspension")
	}

	cfg := s.Config()
	cfg.SuspendWhenHidden = false
	s.Apply(cfg)
	if !m.Pending() {
		t.Fatal("disabling suspension while hidden should resume frames")
	}

	cfg.SuspendWhenHidden = true
	s.Apply(cfg)
	if m.Pending() {
		t.Fatal("enabling suspension while hidden should stop frames")
	}
}

func TestStartWhileHiddenWaitsForVisibility(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, nil)
	m.SetHidden(true)
	iv := s.CreateFunc("later", nil, ms(10))
	if !iv.Enabled() {
		t.Fatal("interval should be enabled even while hidden")
	}
	if m.Pending() {
		t.Fatal("no frame should be requested while hidden")
	}
	m.SetHidden(false)
	if !m.Pending() {
		t.Fatal("frame should be requested once visible")
	}
}

func TestNoFrameSourceNeverTicks(t *testing.T) {
	t.Parallel()
	s := New(DefaultConfig(), nil, nil, logx.Logger{})
	fired := 0
	iv := s.CreateFunc("silent", func(interval.State) { fired++ }, ms(1))
	if !iv.Enabled() {
		t.Fatal("interval should still start")
	}
	if s.Snapshot().Running {
		t.Fatal("no frame source means no running loop")
	}
	if fired != 0 {
		t.Fatal("callback must never run without frames")
	}
}

func TestAutostartDisabled(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, func(c *Config) { c.Autostart = false })
	a := s.CreateFunc("a", nil, ms(10))
	b := s.Create("b", interval.WithAutostart(false))
	if a.Enabled() || b.Enabled() || m.Pending() {
		t.Fatal("nothing should start when autostart is off")
	}
	s.Start("")
	if !a.Enabled() || !b.Enabled() || !m.Pending() {
		t.Fatal("Start() should start everything and request a frame")
	}
	if m.Requests() != 1 {
		t.Fatalf("frame requests = %d, want a single shared frame", m.Requests())
	}
}

func TestIntervalOptOutOfAutostart(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t, nil)
	iv := s.Create("manual", interval.WithAutostart(false))
	if iv.Enabled() {
		t.Fatal("interval opted out of autostart")
	}
}

func TestDelayDefaultApplied(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t, func(c *Config) { c.DelayDefault = ms(250) })
	iv := s.CreateFunc("default", nil, 0)
	if iv.Delay() != ms(250) {
		t.Fatalf("Delay = %v, want 250ms", iv.Delay())
	}
}

func TestDestroy(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t, nil)
	x1 := s.CreateFunc("x", nil, ms(10))
	s.CreateFunc("x", nil, ms(10))
	y := s.CreateFunc("y", nil, ms(10))

	if s.Destroy("missing") {
		t.Fatal("destroying an unknown name should report false")
	}
	if !s.Destroy("x") {
		t.Fatal("destroy(x) should report true")
	}
	if s.Len() != 1 || x1.Enabled() {
		t.Fatalf("len=%d x1.enabled=%v", s.Len(), x1.Enabled())
	}
	if !s.Destroy("") {
		t.Fatal("destroy all should report true")
	}
	if s.Len() != 0 || y.Enabled() {
		t.Fatal("destroy all must disable and remove everything")
	}
}

func TestDestroyFromCallbackDuringPulse(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, nil)
	bFired := 0
	s.CreateFunc("a", func(interval.State) { s.Destroy("b") }, ms(10))
	s.CreateFunc("b", func(interval.State) { bFired++ }, ms(10))

	m.Pulse(ms(0))
	m.Pulse(ms(10))
	m.Pulse(ms(20))
	if bFired != 0 {
		t.Fatalf("destroyed interval fired %d times", bFired)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestSetProgressFiresMatchingIntervals(t *testing.T) {
	t.Parallel()
	progress := 0
	s, _ := newTestScheduler(t, func(c *Config) {
		c.Hooks.OnProgress = func(interval.State) { progress++ }
	})
	fired := map[string]int{}
	count := func(st interval.State) { fired[st.Name]++ }
	s.CreateFunc("a", count, ms(100))
	s.CreateFunc("b", count, ms(100))

	s.SetProgress("a", 1)
	if fired["a"] != 1 || fired["b"] != 0 {
		t.Fatalf("fired = %v", fired)
	}
	s.SetProgress("", 2)
	if fired["a"] != 2 || fired["b"] != 1 {
		t.Fatalf("fired = %v", fired)
	}
	if progress != 0 {
		t.Fatalf("seeking must not call the progress hook, got %d", progress)
	}
}

func TestReEnableWakesIdleLoop(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, nil)
	s.CreateFunc("x", nil, ms(100))
	m.Pulse(ms(0))
	s.Enable("x", false)
	m.Pulse(ms(16))
	if m.Pending() {
		t.Fatal("loop should go idle when everything is disabled")
	}
	s.Enable("x", true)
	if !m.Pending() {
		t.Fatal("re-enabling should restart the loop")
	}
}

func TestRestartResetsCounters(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, nil)
	iv := s.Create("r", interval.WithDelay(ms(10)), interval.WithLimit(2))
	m.Run(0, ms(100), ms(10))
	if iv.Enabled() || iv.Remaining() != 0 {
		t.Fatalf("enabled=%v remaining=%d", iv.Enabled(), iv.Remaining())
	}
	s.Restart("r")
	if !iv.Enabled() || iv.Iteration() != 0 || iv.Remaining() != 2 {
		t.Fatalf("after restart: enabled=%v iteration=%d remaining=%d", iv.Enabled(), iv.Iteration(), iv.Remaining())
	}
	if !m.Pending() {
		t.Fatal("restart should wake the loop")
	}
}

func TestSnapshotCountsPulses(t *testing.T) {
	t.Parallel()
	s, m := newTestScheduler(t, nil)
	s.CreateFunc("a", nil, ms(50))
	s.Create("b", interval.WithAutostart(false))
	m.Run(0, ms(32), ms(16))
	snap := s.Snapshot()
	if snap.Pulses != 3 || snap.LastPulse != ms(32) {
		t.Fatalf("pulses=%d last=%v", snap.Pulses, snap.LastPulse)
	}
	if snap.Enabled != 1 || len(snap.Intervals) != 2 {
		t.Fatalf("enabled=%d intervals=%d", snap.Enabled, len(snap.Intervals))
	}
	if !snap.Running || !snap.Autostart || snap.DelayDefault != interval.DefaultDelay {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

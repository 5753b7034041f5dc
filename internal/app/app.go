// Package app wires the frame scheduler into a long-running daemon: config
// file with hot reload, real-time frame loop, signal-driven visibility,
// firing journal and systemd notifications.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"framesched/internal/config"
	"framesched/internal/debughttp"
	"framesched/internal/eventbus"
	"framesched/internal/storage"
	"framesched/internal/supervisor"
	"framesched/pkg/clock"
	"framesched/pkg/interval"
	logx "framesched/pkg/logx"
	"framesched/pkg/scheduler"
)

type App struct {
	cfgPath string
	debug   debughttp.Config

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	ilog  logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	loop  *clock.Loop
	vis   *clock.Switch
	sched *scheduler.Scheduler
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	appLog := log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Journal (optional)
	var store storage.Store
	if jc, enabled, err := mapJournalConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(jc, log)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		appLog.Info("journal enabled", logx.String("driver", jc.Driver))
	}

	sc, err := mapSchedulerConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	dc, err := mapDebugConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	sc.Hooks = busHooks(bus)

	loop := clock.NewLoop(mapLoopConfig(cfg), log.With(logx.String("comp", "loop")))
	vis := clock.NewSwitch(loop)
	sched := scheduler.New(sc, loop, vis, log.With(logx.String("comp", "scheduler")))

	return &App{
		cfgPath: cfgPath,
		debug:   dc,
		cfgm:    cfgm,
		log:     appLog,
		ilog:    log.With(logx.String("comp", "interval")),
		logs:    logSvc,
		bus:     bus,
		store:   store,
		loop:    loop,
		vis:     vis,
		sched:   sched,
	}, nil
}

// busHooks publishes scheduler activity on the bus. Publish never blocks, so
// the hooks are safe on the frame loop.
func busHooks(bus eventbus.Bus) scheduler.Hooks {
	publish := func(typ string) interval.Func {
		return func(st interval.State) { bus.Publish(eventbus.Event{Type: typ, Data: st}) }
	}
	return scheduler.Hooks{
		OnFire:         publish(eventbus.IntervalFired),
		OnLimitReached: publish(eventbus.IntervalLimitReached),
		OnSuspend:      func() { bus.Publish(eventbus.Event{Type: eventbus.SchedulerSuspended}) },
		OnResume:       func() { bus.Publish(eventbus.Event{Type: eventbus.SchedulerResumed}) },
	}
}

func (a *App) Bus() eventbus.Bus { return a.bus }

// Done is closed when the app context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Snapshot reads the scheduler state on the loop goroutine.
func (a *App) Snapshot(ctx context.Context) (scheduler.Snapshot, error) {
	var snap scheduler.Snapshot
	err := a.loop.Do(ctx, func() { snap = a.sched.Snapshot() })
	return snap, err
}

// SetHidden flips host visibility, as SIGUSR1/SIGUSR2 do.
func (a *App) SetHidden(hidden bool) bool { return a.vis.Set(hidden) }

// Recent returns the newest n journal records.
func (a *App) Recent(ctx context.Context, n int) ([]storage.Record, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.Recent(ctx, n)
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapSchedulerConfig(cfg); err != nil {
			return err
		}
		if _, err := mapDebugConfig(cfg); err != nil {
			return err
		}
		_, _, err := mapJournalConfig(cfg)
		return err
	})

	if a.store != nil {
		events, unsub := a.bus.Subscribe(256)
		a.sup.Go("journal", func(c context.Context) error {
			defer unsub()
			return runJournal(c, events, a.store, a.log.With(logx.String("comp", "journal")))
		})
	}

	a.sup.Go("frame.loop", a.loop.Run)

	var createErr error
	if err := a.loop.Do(ctx, func() {
		createErr = createIntervals(a.sched, a.cfgm.Get(), nil, a.ilog)
	}); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("register intervals: %w", err)
	}
	if createErr != nil {
		a.sup.Cancel()
		return createErr
	}

	a.sup.Go("visibility.signals", func(c context.Context) error {
		return watchVisibility(c, a.vis, a.log.With(logx.String("comp", "visibility")))
	})
	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		return runWatchdog(c, a.log.With(logx.String("comp", "systemd")), func(pc context.Context) error {
			return a.loop.Do(pc, func() {})
		})
	})

	if a.debug.Enabled {
		// Optional diagnostics; a failing listener retries instead of stopping the app.
		a.sup.GoRestart("debug.http", func(c context.Context) error {
			return debughttp.Serve(c, a.debug, a, a.log.With(logx.String("comp", "debug")))
		}, 500*time.Millisecond, 10*time.Second)
	}

	sdNotify(a.log, daemon.SdNotifyReady)
	a.log.Info("app started",
		logx.String("config", a.cfgPath),
		logx.Int("intervals", len(a.cfgm.Get().Intervals)),
		logx.Duration("frame_interval", a.loop.FrameInterval()),
	)
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		var newCfg *config.Config
		select {
		case <-ctx.Done():
			return
		case c, ok := <-sub:
			if !ok {
				return
			}
			newCfg = c
		}
		// Coalesce bursts: keep only the latest config.
	drain:
		for {
			select {
			case newer := <-sub:
				if newer != nil {
					newCfg = newer
				}
			default:
				break drain
			}
		}
		a.apply(ctx, lastApplied, newCfg)
		lastApplied = newCfg
	}
}

func (a *App) apply(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs, changed := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	a.logs.Apply(mapLoggingConfig(newCfg))

	if oldCfg != nil && oldCfg.Scheduler.FrameRate != newCfg.Scheduler.FrameRate {
		a.log.Warn("scheduler.frame_rate changed; restart required for changes to take effect")
	}
	for _, s := range sections {
		if s == "journal" || s == "debug" {
			a.log.Warn(s + " config changed; restart required for changes to take effect")
		}
	}

	sc, err := mapSchedulerConfig(newCfg)
	if err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
		return
	}
	sc.Hooks = busHooks(a.bus)

	var rerr error
	if err := a.loop.Do(ctx, func() {
		a.sched.Apply(sc)
		rerr = reconcileIntervals(a.sched, newCfg, changed, a.ilog)
	}); err != nil {
		a.log.Warn("config apply aborted", logx.Err(err))
		return
	}
	if rerr != nil {
		a.log.Warn("some intervals were not recreated", logx.Err(rerr))
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Data: sections})
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	if len(changed) > 0 {
		fields = append(fields, logx.Any("intervals", changed))
	}
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)

	a.sup.Cancel()

	// Each step is bounded so one component cannot stall the whole stop.
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()
		start := time.Now()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("supervisor", 3*time.Second, a.sup.Wait)
	// The loop has exited; nothing else touches the scheduler now.
	step("scheduler", time.Second, func(context.Context) error { a.sched.Close(); return nil })
	step("journal", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped", logx.Uint64("frames", a.loop.Frames()))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

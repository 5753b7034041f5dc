package app

import (
	"fmt"
	"strings"

	"framesched/internal/config"
	"framesched/internal/delayspec"
	"framesched/pkg/interval"
	logx "framesched/pkg/logx"
	"framesched/pkg/scheduler"
)

// intervalOptions turns one configured interval into scheduler options. The
// callback logs the configured message at info level.
func intervalOptions(ic config.IntervalConfig, log logx.Logger) ([]interval.Option, error) {
	name := strings.TrimSpace(ic.Name)
	var opts []interval.Option
	if raw := strings.TrimSpace(ic.Delay); raw != "" {
		spec, err := delayspec.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("interval %s: %w", name, err)
		}
		opts = append(opts, spec.Options(nil)...)
	}
	if ic.Limit != nil {
		opts = append(opts, interval.WithLimit(*ic.Limit))
	}

	msg := strings.TrimSpace(ic.Message)
	if msg == "" {
		msg = "interval fired"
	}
	opts = append(opts,
		interval.WithRunImmediately(ic.RunImmediately),
		interval.WithAutostart(config.BoolOr(ic.Autostart, true)),
		interval.WithCallback(func(st interval.State) {
			log.Info(msg,
				logx.String("interval", st.Name),
				logx.Int("iteration", st.Iteration),
				logx.Int("remaining", st.Remaining),
				logx.Duration("next_delay", st.Delay),
			)
		}),
	)
	return opts, nil
}

// createIntervals registers every configured interval whose name is in
// names (all when names is nil). It must run on the loop goroutine.
func createIntervals(s *scheduler.Scheduler, cfg *config.Config, names map[string]bool, log logx.Logger) error {
	var errs []error
	for _, ic := range cfg.Intervals {
		name := strings.TrimSpace(ic.Name)
		if names != nil && !names[name] {
			continue
		}
		opts, err := intervalOptions(ic, log)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.Create(name, opts...)
	}
	if len(errs) > 0 {
		return fmt.Errorf("create intervals: %v", errs)
	}
	return nil
}

// reconcileIntervals destroys the changed intervals and recreates those
// still present in cfg. Unchanged intervals keep running untouched. It
// must run on the loop goroutine.
func reconcileIntervals(s *scheduler.Scheduler, cfg *config.Config, changed []string, log logx.Logger) error {
	if len(changed) == 0 {
		return nil
	}
	names := make(map[string]bool, len(changed))
	for _, name := range changed {
		names[name] = true
		if s.Destroy(name) {
			log.Debug("interval removed for reload", logx.String("interval", name))
		}
	}
	return createIntervals(s, cfg, names, log)
}

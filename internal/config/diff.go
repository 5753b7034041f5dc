package config

import (
	"reflect"
	"sort"
	"strings"

	logx "framesched/pkg/logx"
)

// SummarizeConfigChange returns (1) the sorted list of changed sections,
// (2) structured attrs for the reload log line and (3) the names of
// intervals that were added, removed or redefined.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	oldS, newS := oldCfg.Scheduler, newCfg.Scheduler
	if BoolOr(oldS.Autostart, true) != BoolOr(newS.Autostart, true) ||
		BoolOr(oldS.SuspendWhenHidden, true) != BoolOr(newS.SuspendWhenHidden, true) ||
		strings.TrimSpace(oldS.DelayDefault) != strings.TrimSpace(newS.DelayDefault) ||
		oldS.FrameRate != newS.FrameRate {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.autostart", BoolOr(newS.Autostart, true)),
			logx.Bool("scheduler.suspend_when_hidden", BoolOr(newS.SuspendWhenHidden, true)),
			logx.String("scheduler.delay_default", strings.TrimSpace(newS.DelayDefault)),
			logx.Int("scheduler.frame_rate", newS.FrameRate),
		)
	}

	// Nil means disabled.
	var oj, nj JournalConfig
	if oldCfg.Journal != nil {
		oj = *oldCfg.Journal
	}
	if newCfg.Journal != nil {
		nj = *newCfg.Journal
	}
	if strings.TrimSpace(oj.Driver) != strings.TrimSpace(nj.Driver) ||
		strings.TrimSpace(oj.Path) != strings.TrimSpace(nj.Path) ||
		strings.TrimSpace(oj.BusyTimeout) != strings.TrimSpace(nj.BusyTimeout) {
		changed = append(changed, "journal")
		attrs = append(attrs,
			logx.String("journal.driver", strings.TrimSpace(nj.Driver)),
			logx.Bool("journal.path_set", strings.TrimSpace(nj.Path) != ""),
		)
	}

	// Never log the token.
	od, nd := oldCfg.Debug, newCfg.Debug
	if od.Enabled != nd.Enabled ||
		strings.TrimSpace(od.Addr) != strings.TrimSpace(nd.Addr) ||
		od.Token != nd.Token ||
		od.AllowInsecure != nd.AllowInsecure ||
		strings.TrimSpace(od.ReadTimeout) != strings.TrimSpace(nd.ReadTimeout) ||
		strings.TrimSpace(od.IdleTimeout) != strings.TrimSpace(nd.IdleTimeout) {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", nd.Enabled),
			logx.String("debug.addr", strings.TrimSpace(nd.Addr)),
			logx.Bool("debug.token_set", strings.TrimSpace(nd.Token) != ""),
		)
	}

	ivChanged := diffIntervals(oldCfg.Intervals, newCfg.Intervals)
	if len(ivChanged) > 0 {
		changed = append(changed, "intervals")
		attrs = append(attrs,
			logx.Int("intervals.changed_count", len(ivChanged)),
			logx.Int("intervals.count", len(newCfg.Intervals)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, ivChanged
}

func diffIntervals(oldL, newL []IntervalConfig) []string {
	oldM := indexIntervals(oldL)
	newM := indexIntervals(newL)

	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, okOld := oldM[name]
		n, okNew := newM[name]
		if okOld != okNew || !reflect.DeepEqual(o, n) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func indexIntervals(l []IntervalConfig) map[string]IntervalConfig {
	m := make(map[string]IntervalConfig, len(l))
	for _, ic := range l {
		m[strings.TrimSpace(ic.Name)] = ic
	}
	return m
}

package app

import (
	"fmt"
	"strings"
	"time"

	"framesched/internal/config"
	"framesched/internal/debughttp"
	"framesched/internal/storage"
	"framesched/pkg/clock"
	logx "framesched/pkg/logx"
	"framesched/pkg/scheduler"
)

// ---- Config mapping ----

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// mapSchedulerConfig maps the scheduler section. Hooks are left empty; the
// app installs its own.
func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	sc := scheduler.DefaultConfig()
	sc.Autostart = config.BoolOr(cfg.Scheduler.Autostart, sc.Autostart)
	sc.SuspendWhenHidden = config.BoolOr(cfg.Scheduler.SuspendWhenHidden, sc.SuspendWhenHidden)
	d, err := config.ParseDurationOrDefault("scheduler.delay_default", cfg.Scheduler.DelayDefault, sc.DelayDefault)
	if err != nil {
		return scheduler.Config{}, err
	}
	sc.DelayDefault = d
	return sc, nil
}

func mapLoopConfig(cfg *config.Config) clock.LoopConfig {
	return clock.LoopConfig{FrameRate: cfg.Scheduler.FrameRate}
}

// mapJournalConfig reports (cfg, enabled, err). A nil section disables the
// journal.
func mapJournalConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Journal == nil {
		return storage.Config{}, false, nil
	}
	jc := cfg.Journal
	driver := strings.ToLower(strings.TrimSpace(jc.Driver))
	switch driver {
	case "", "none", "off", "disabled":
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(jc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("journal.path is required when journal.driver=%s", driver)
	}
	busy, err := config.ParseDurationOrDefault("journal.busy_timeout", jc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
}

func mapDebugConfig(cfg *config.Config) (debughttp.Config, error) {
	d := cfg.Debug
	read, err := config.ParseDurationOrDefault("debug.read_timeout", d.ReadTimeout, 10*time.Second)
	if err != nil {
		return debughttp.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("debug.idle_timeout", d.IdleTimeout, time.Minute)
	if err != nil {
		return debughttp.Config{}, err
	}
	dc := debughttp.Config{
		Enabled:       d.Enabled,
		Addr:          strings.TrimSpace(d.Addr),
		Token:         strings.TrimSpace(d.Token),
		AllowInsecure: d.AllowInsecure,
		ReadTimeout:   read,
		IdleTimeout:   idle,
	}
	if dc.Enabled {
		if err := debughttp.CheckAddr(dc); err != nil {
			return debughttp.Config{}, err
		}
	}
	return dc, nil
}

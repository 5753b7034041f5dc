package config

import (
	"fmt"
	"strings"

	"framesched/internal/delayspec"
)

// Validate checks values a strict decode cannot: durations, delay specs,
// duplicate or empty interval names, and the journal driver.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, _, err := parseDuration("scheduler.delay_default", cfg.Scheduler.DelayDefault); err != nil {
		return err
	}
	if cfg.Scheduler.FrameRate < 0 {
		return fmt.Errorf("scheduler.frame_rate: must be >= 0")
	}
	if j := cfg.Journal; j != nil {
		switch strings.ToLower(strings.TrimSpace(j.Driver)) {
		case "", "none", "off", "disabled", "file", "jsonl", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("journal.driver: unsupported %q", j.Driver)
		}
		if _, _, err := parseDuration("journal.busy_timeout", j.BusyTimeout); err != nil {
			return err
		}
	}

	if _, _, err := parseDuration("debug.read_timeout", cfg.Debug.ReadTimeout); err != nil {
		return err
	}
	if _, _, err := parseDuration("debug.idle_timeout", cfg.Debug.IdleTimeout); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Intervals))
	for i, ic := range cfg.Intervals {
		path := fmt.Sprintf("intervals[%d]", i)
		name := strings.TrimSpace(ic.Name)
		if name == "" {
			return fmt.Errorf("%s.name: required", path)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%s.name: duplicate %q", path, name)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(ic.Delay) != "" {
			if _, err := delayspec.Parse(ic.Delay); err != nil {
				return fmt.Errorf("%s.delay: %w", path, err)
			}
		}
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// parseDuration reads an optional duration field. set is false for a blank
// value; negative durations are rejected.
func parseDuration(field, raw string) (d time.Duration, set bool, err error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, false, nil
	}
	d, err = time.ParseDuration(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, false, fmt.Errorf("%s: duration must be >= 0, got %s", field, d)
	}
	return d, true, nil
}

// ParseDurationOrDefault returns def when the field is blank or zero.
func ParseDurationOrDefault(field, raw string, def time.Duration) (time.Duration, error) {
	d, set, err := parseDuration(field, raw)
	if err != nil {
		return 0, err
	}
	if !set || d == 0 {
		return def, nil
	}
	return d, nil
}

// Package delayspec turns the delay strings used in config files into
// interval options.
//
// Supported forms:
//   - Go duration: "250ms", "2s", "1m30s"
//   - HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//   - Cron (robfig/cron, seconds optional): "*/5 * * * * *", "@every 2s", "@hourly"
//
// Optional prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces fixed-delay parsing
//
// A cron spec produces a variable-rate interval: the delay is recomputed
// after every firing as the time until the schedule's next activation.
package delayspec

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"framesched/pkg/interval"
)

type Kind int

const (
	KindFixed Kind = iota
	KindCron
)

func (k Kind) String() string {
	if k == KindCron {
		return "cron"
	}
	return "fixed"
}

// Spec is a parsed delay string.
type Spec struct {
	Kind   Kind
	Every  time.Duration
	Cron   string
	Source string // "duration" | "hhmm" | "cron"

	schedule cron.Schedule
}

var (
	reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)
	// SecondOptional allows both 5-field and 6-field (with seconds) specs.
	parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// Parse parses a delay string.
func Parse(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("delay required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "interval:"):
		return parseFixed(strings.TrimSpace(s[len("interval:"):]))
	case strings.HasPrefix(low, "every:"):
		return parseFixed(strings.TrimSpace(s[len("every:"):]))
	}

	// Any whitespace or a leading '@' means cron.
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return parseCron(s)
	}
	spec, err := parseFixed(s)
	if err != nil {
		return Spec{}, fmt.Errorf(
			"invalid delay %q (use a duration like '250ms', HH:MM like '00:50', or cron like '*/5 * * * * *')",
			raw,
		)
	}
	return spec, nil
}

// Options returns the interval options for this delay. now supplies
// wall-clock time for cron specs; nil means time.Now.
func (s Spec) Options(now func() time.Time) []interval.Option {
	if s.Kind != KindCron || s.schedule == nil {
		return []interval.Option{interval.WithDelay(s.Every)}
	}
	if now == nil {
		now = time.Now
	}
	sched := s.schedule
	untilNext := func(interval.State) time.Duration {
		t := now()
		return sched.Next(t).Sub(t)
	}
	return []interval.Option{
		interval.WithDelay(untilNext(interval.State{})),
		interval.WithDelayFunc(untilNext),
	}
}

func (s Spec) String() string {
	if s.Kind == KindCron {
		return "cron:" + s.Cron
	}
	return s.Every.String()
}

func parseCron(expr string) (Spec, error) {
	if expr == "" {
		return Spec{}, fmt.Errorf("cron expression required")
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return Spec{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return Spec{Kind: KindCron, Cron: expr, Source: "cron", schedule: sched}, nil
}

func parseFixed(v string) (Spec, error) {
	if v == "" {
		return Spec{}, fmt.Errorf("delay required")
	}
	if reHHMM.MatchString(v) {
		d, err := parseHHMM(v)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Kind: KindFixed, Every: d, Source: "hhmm"}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return Spec{}, fmt.Errorf("invalid delay %q: %w", v, err)
	}
	if d <= 0 {
		return Spec{}, fmt.Errorf("delay must be > 0")
	}
	return Spec{Kind: KindFixed, Every: d, Source: "duration"}, nil
}

func parseHHMM(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("delay must be > 0")
	}
	return d, nil
}

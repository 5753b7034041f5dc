package config

// Config is the framesched daemon configuration.
//
// Example (YAML):
//
//	logging:
//	  level: info
//	  console: true
//	scheduler:
//	  delay_default: 1s
//	  frame_rate: 60
//	journal:
//	  driver: sqlite
//	  path: ./data/framesched.db
//	debug:
//	  enabled: true
//	  addr: 127.0.0.1:6060
//	intervals:
//	  - name: heartbeat
//	    delay: 5s
//	  - name: quarter-hour
//	    delay: "*/15 * * * *"
//	    limit: 4
type Config struct {
	Logging   LoggingConfig    `json:"logging"`
	Scheduler SchedulerConfig  `json:"scheduler"`
	Journal   *JournalConfig   `json:"journal,omitempty"`
	Debug     DebugConfig      `json:"debug"`
	Intervals []IntervalConfig `json:"intervals"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the shared frame loop.
//
// Autostart and SuspendWhenHidden are pointers so an omitted key keeps the
// default (true) while an explicit false is honored.
type SchedulerConfig struct {
	Autostart *bool `json:"autostart,omitempty"`
	// DelayDefault is a Go duration string (e.g. "1s"). Default: 1s.
	DelayDefault      string `json:"delay_default,omitempty"`
	SuspendWhenHidden *bool  `json:"suspend_when_hidden,omitempty"`
	// FrameRate is frames per second of the daemon's loop. Default: 60.
	FrameRate int `json:"frame_rate,omitempty"`
}

// JournalConfig controls the optional firing journal.
//
//	"journal": { "driver": "file", "path": "./data/firings.jsonl" }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DebugConfig controls the optional diagnostics HTTP server.
//
// Prefer a loopback Addr; a non-loopback one needs Token or AllowInsecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:6060"
	Token         string `json:"token,omitempty"` // bearer token (never logged)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	// Go duration strings.
	ReadTimeout string `json:"read_timeout,omitempty"`
	IdleTimeout string `json:"idle_timeout,omitempty"`
}

// IntervalConfig declares one interval created at startup.
type IntervalConfig struct {
	Name string `json:"name"`
	// Delay is a duration, HH:MM, or cron spec (see internal/delayspec).
	// Empty uses scheduler.delay_default.
	Delay string `json:"delay,omitempty"`
	// Limit is the number of firings; omitted or negative means unbounded.
	Limit          *int  `json:"limit,omitempty"`
	RunImmediately bool  `json:"run_immediately,omitempty"`
	Autostart      *bool `json:"autostart,omitempty"`
	// Message is logged at info level on each firing.
	Message string `json:"message,omitempty"`
}

// BoolOr returns *p, or def when p is nil.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the journal.
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one journaled interval event. Keep it compact and schema-stable.
type Record struct {
	At        time.Time     `json:"at"`
	Name      string        `json:"name"`
	Event     string        `json:"event"`
	Iteration int           `json:"iteration"`
	Remaining int           `json:"remaining"`
	Delay     time.Duration `json:"delay_ns"`
	Frame     time.Duration `json:"frame_ns"`
}

package admission

import "time"

const (
	DefaultPollInterval   = 2 * time.Second
	DefaultExpiryCeiling  = 300 * time.Second
	DefaultRosterInterval = time.Second
	DefaultCallTimeout    = 5 * time.Second
)

// Options tunes the loops. Zero values take the defaults.
type Options struct {
	PollInterval   time.Duration
	ExpiryCeiling  time.Duration
	RosterInterval time.Duration
	CallTimeout    time.Duration
	Clock          Clock
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ExpiryCeiling <= 0 {
		o.ExpiryCeiling = DefaultExpiryCeiling
	}
	if o.RosterInterval <= 0 {
		o.RosterInterval = DefaultRosterInterval
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	return o
}

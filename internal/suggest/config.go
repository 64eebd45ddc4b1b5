package suggest

import "time"

const (
	DefaultMinLength    = 1
	DefaultQueryDelay   = 300 * time.Millisecond
	DefaultPersistDelay = 500 * time.Millisecond
)

// Config tunes the per-field timing and gating.
type Config struct {
	// MinLength is the minimum number of runes that triggers a search.
	MinLength int
	// QueryDelay is the debounce interval between the last keystroke and the query.
	QueryDelay time.Duration
	// PersistDelay is the delay between a commit and the write-back to the store.
	PersistDelay time.Duration
	// MaxResults truncates merged lists. Zero keeps every result.
	MaxResults int
}

func DefaultConfig() Config {
	return Config{
		MinLength:    DefaultMinLength,
		QueryDelay:   DefaultQueryDelay,
		PersistDelay: DefaultPersistDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.MinLength < 0 {
		c.MinLength = 0
	}
	if c.QueryDelay <= 0 {
		c.QueryDelay = DefaultQueryDelay
	}
	if c.PersistDelay <= 0 {
		c.PersistDelay = DefaultPersistDelay
	}
	if c.MaxResults < 0 {
		c.MaxResults = 0
	}
	return c
}

package models

import (
	"time"
)

type RetryStrategy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryStrategy bounds compare-and-swap loops against shared stores.
var DefaultRetryStrategy = RetryStrategy{
	MaxAttempts:     8,
	InitialInterval: 10 * time.Millisecond,
	MaxInterval:     500 * time.Millisecond,
	Multiplier:      2.0,
}

// Next returns the delay that follows interval.
func (s RetryStrategy) Next(interval time.Duration) time.Duration {
	if interval >= s.MaxInterval {
		return s.MaxInterval
	}
	next := time.Duration(float64(interval) * s.Multiplier)
	if next > s.MaxInterval {
		next = s.MaxInterval
	}
	return next
}

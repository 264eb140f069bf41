// Package service contains domain services for the KeyGate API Key Service:
// the clock source, authorization predicates, and collaborator interfaces.
package service

import (
	"sync/atomic"
	"time"
)

// Clock supplies the current time as integer seconds since the unix epoch.
// The ledger tolerates any int64 value, including zero and negative readings,
// so implementations never need to guard against "impossible" times.
type Clock interface {
	Now() int64
}

type systemClock struct{}

// NewSystemClock returns a Clock backed by the wall clock.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() int64 {
	return time.Now().Unix()
}

// ManualClock is a settable Clock for tests and replay tooling.
type ManualClock struct {
	now atomic.Int64
}

// NewManualClock returns a ManualClock frozen at the given time.
func NewManualClock(now int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(now)
	return c
}

// Now returns the frozen time.
func (c *ManualClock) Now() int64 {
	return c.now.Load()
}

// Set moves the clock to an absolute time.
func (c *ManualClock) Set(now int64) {
	c.now.Store(now)
}

// Advance moves the clock forward (or backward, for negative d) by d seconds.
func (c *ManualClock) Advance(d int64) {
	c.now.Add(d)
}

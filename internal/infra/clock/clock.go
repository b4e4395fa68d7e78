// Package clock provides the simulation time sources the engine reads.
package clock

import (
	"math"
	"sync/atomic"
	"time"
)

// Manual is a clock the host pushes values into. It starts invalid (zero).
type Manual struct {
	bits atomic.Uint64
}

// NewManual creates a clock reading ut.
func NewManual(ut float64) *Manual {
	c := &Manual{}
	c.Set(ut)
	return c
}

func (c *Manual) Now() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Set moves the clock to ut. Moving backwards is allowed; the engine resets its baseline.
func (c *Manual) Set(ut float64) {
	c.bits.Store(math.Float64bits(ut))
}

// Advance moves the clock forward by seconds.
func (c *Manual) Advance(seconds float64) {
	for {
		old := c.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + seconds)
		if c.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Scaled derives simulation time from wall time: start + rate * elapsed seconds.
type Scaled struct {
	start  float64
	rate   float64
	origin time.Time
	now    func() time.Time
}

// NewScaled creates a clock reading start now and running rate sim-seconds per wall second.
func NewScaled(start, rate float64) *Scaled {
	return newScaled(start, rate, time.Now)
}

func newScaled(start, rate float64, now func() time.Time) *Scaled {
	return &Scaled{start: start, rate: rate, origin: now(), now: now}
}

func (c *Scaled) Now() float64 {
	return c.start + c.rate*c.now().Sub(c.origin).Seconds()
}

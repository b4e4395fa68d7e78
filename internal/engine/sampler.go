package engine

import (
	"math/rand/v2"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
)

// Discovered-dead crew get an age at death drawn from this inclusive range.
const (
	DiscoveredAgeMin = 23
	DiscoveredAgeMax = 81
)

// blessedOdds is the one-in-N chance a new record is blessed.
const blessedOdds = 50

// Sampler is the pseudorandom source used when records are created or resampled.
// IntN returns a value in [0, n). *rand.Rand satisfies it.
type Sampler interface {
	IntN(n int) int
}

// NewSampler returns a PCG source. A zero seed draws one from the runtime.
func NewSampler(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform draws from the inclusive range [lo, hi].
func uniform(s Sampler, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.IntN(hi-lo+1)
}

func sampleBirthday(s Sampler) int {
	return 1 + s.IntN(calendar.DaysPerYear)
}

// sampleDeathAge draws a lifespan from the death range plus any blessing.
func sampleDeathAge(s Sampler, r crew.Ranges, blessed bool) int {
	age := uniform(s, r.DeathAgeMin, r.DeathAgeMax)
	if blessed {
		age += crew.BlessedBonus
	}
	return age
}

// newLivingRecord samples birthday, starting age, blessing and lifespan, in that order.
func newLivingRecord(s Sampler, name string, r crew.Ranges, year int) crew.Record {
	rec := crew.Record{
		Name:      name,
		Alive:     true,
		Birthday:  sampleBirthday(s),
		YearAdded: year,
	}
	rec.CurrentAge = uniform(s, r.StartAgeMin, r.StartAgeMax)
	rec.Blessed = s.IntN(blessedOdds) == 0
	rec.DeathAge = sampleDeathAge(s, r, rec.Blessed)
	rec.DeriveBirthYear()
	return rec
}

// newDiscoveredDeadRecord samples birthday then the age at death.
func newDiscoveredDeadRecord(s Sampler, name string, year int) crew.Record {
	rec := crew.Record{
		Name:         name,
		Birthday:     sampleBirthday(s),
		YearAdded:    year,
		Death:        crew.UnknownDeath(),
		UnknownBirth: true,
	}
	rec.CurrentAge = uniform(s, DiscoveredAgeMin, DiscoveredAgeMax)
	rec.DeathAge = rec.CurrentAge
	rec.DeriveBirthYear()
	return rec
}

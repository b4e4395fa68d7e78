// Package crew defines the core domain entities for aging crew members.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package crew

import (
	"fmt"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
)

// BlessedBonus is the lifespan bonus, in years, granted to blessed crew.
const BlessedBonus = 50

// UnsetDeathUT is the persisted sentinel for "no death timestamp".
const UnsetDeathUT = -1.0

// DeathKind distinguishes how much is known about a record's death.
type DeathKind uint8

const (
	DeathNone    DeathKind = iota // alive, or dead in legacy data without a timestamp
	DeathUnknown                  // died while unobserved; the moment is not known
	DeathKnown                    // died at an observed UT
)

// Death is the sum type Unknown | KnownAt(ut). The zero value is DeathNone.
type Death struct {
	kind DeathKind
	ut   float64
}

// UnknownDeath returns a death whose moment was never observed.
func UnknownDeath() Death { return Death{kind: DeathUnknown} }

// DeathAt returns a death observed at ut.
func DeathAt(ut float64) Death { return Death{kind: DeathKnown, ut: ut} }

// NoDeath returns the cleared state.
func NoDeath() Death { return Death{} }

func (d Death) Kind() DeathKind { return d.kind }

// IsUnknown reports whether the death happened without an observed moment.
func (d Death) IsUnknown() bool { return d.kind == DeathUnknown }

// UT returns the death timestamp and whether it carries meaning.
func (d Death) UT() (float64, bool) {
	if d.kind != DeathKnown {
		return 0, false
	}
	return d.ut, true
}

// Flags returns the persisted (deathUT, unknownDeath) pair for d.
func (d Death) Flags() (float64, bool) {
	switch d.kind {
	case DeathKnown:
		return d.ut, false
	case DeathUnknown:
		return UnsetDeathUT, true
	default:
		return UnsetDeathUT, false
	}
}

// DeathFromFlags rebuilds a Death from its persisted pair. A negative UT is unset.
func DeathFromFlags(deathUT float64, unknown bool) Death {
	if unknown {
		return UnknownDeath()
	}
	if deathUT < 0 {
		return NoDeath()
	}
	return DeathAt(deathUT)
}

// Record is the mortality record of one tracked crew member.
type Record struct {
	Name         string `json:"name"`
	CurrentAge   int    `json:"current_age"`
	DeathAge     int    `json:"death_age"`
	Alive        bool   `json:"is_alive"`
	Birthday     int    `json:"birthday"`   // 1-426
	YearAdded    int    `json:"year_added"` // calendar year of creation or last age rebase
	BirthYear    int    `json:"birth_year"` // <= 0 means before calendar start
	Blessed      bool   `json:"blessed"`
	Immortal     bool   `json:"immortal"`
	Death        Death  `json:"-"`
	UnknownBirth bool   `json:"unknown_birth"`
}

// ReachedDeathAge reports whether the record's age meets its lifespan threshold
// and nothing exempts it.
func (r *Record) ReachedDeathAge() bool {
	return !r.Immortal && r.CurrentAge >= r.DeathAge
}

// DeriveBirthYear recomputes BirthYear from YearAdded and CurrentAge.
func (r *Record) DeriveBirthYear() {
	r.BirthYear = r.YearAdded - r.CurrentAge
}

// SetBlessed toggles the blessing. Enabling adds BlessedBonus to the lifespan;
// disabling removes it but never leaves DeathAge at or below CurrentAge.
func (r *Record) SetBlessed(blessed bool) {
	if r.Blessed == blessed {
		return
	}
	r.Blessed = blessed
	if blessed {
		r.DeathAge += BlessedBonus
		return
	}
	r.DeathAge -= BlessedBonus
	if r.DeathAge < r.CurrentAge+1 {
		r.DeathAge = r.CurrentAge + 1
	}
}

// YearsLeft returns the years until the threshold; meaningless for immortal records.
func (r *Record) YearsLeft() int {
	return r.DeathAge - r.CurrentAge
}

// BirthString renders the birth date for display.
func (r *Record) BirthString() string {
	if !r.Alive && r.UnknownBirth {
		return "UNKNOWN"
	}
	if r.BirthYear <= 0 {
		return fmt.Sprintf("Y%d B.S.C. DAY %d", -r.BirthYear+1, r.Birthday)
	}
	return fmt.Sprintf("Y%d, DAY %d", r.BirthYear, r.Birthday)
}

// DeathString renders the death date for display.
func (r *Record) DeathString() string {
	ut, ok := r.Death.UT()
	if !ok || ut < 0 {
		return "UNKNOWN"
	}
	return calendar.DateOf(ut).String()
}

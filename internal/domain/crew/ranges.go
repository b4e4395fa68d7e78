package crew

import (
	"strconv"
	"strings"
)

// Default aging ranges, in years.
const (
	DefaultStartAgeMin = 22
	DefaultStartAgeMax = 35
	DefaultDeathAgeMin = 300
	DefaultDeathAgeMax = 330
)

// Ranges are the inclusive sampling ranges used when creating records.
type Ranges struct {
	StartAgeMin int `json:"start_age_min"`
	StartAgeMax int `json:"start_age_max"`
	DeathAgeMin int `json:"death_age_min"`
	DeathAgeMax int `json:"death_age_max"`
}

// DefaultRanges returns the stock ranges.
func DefaultRanges() Ranges {
	return Ranges{
		StartAgeMin: DefaultStartAgeMin,
		StartAgeMax: DefaultStartAgeMax,
		DeathAgeMin: DefaultDeathAgeMin,
		DeathAgeMax: DefaultDeathAgeMax,
	}
}

// Normalize clamps each max up to its min.
func (r Ranges) Normalize() Ranges {
	if r.StartAgeMin > r.StartAgeMax {
		r.StartAgeMax = r.StartAgeMin
	}
	if r.DeathAgeMin > r.DeathAgeMax {
		r.DeathAgeMax = r.DeathAgeMin
	}
	return r
}

// RangeInput carries raw settings-surface text. Empty or non-numeric fields
// leave the corresponding range bound unchanged.
type RangeInput struct {
	StartAgeMin string `json:"start_age_min"`
	StartAgeMax string `json:"start_age_max"`
	DeathAgeMin string `json:"death_age_min"`
	DeathAgeMax string `json:"death_age_max"`
}

// Apply overlays the parseable fields of in onto r and normalizes the result.
// It returns the names of fields that were rejected.
func (r Ranges) Apply(in RangeInput) (Ranges, []string) {
	var rejected []string
	set := func(name, raw string, dst *int) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			rejected = append(rejected, name)
			return
		}
		*dst = v
	}
	set("start_age_min", in.StartAgeMin, &r.StartAgeMin)
	set("start_age_max", in.StartAgeMax, &r.StartAgeMax)
	set("death_age_min", in.DeathAgeMin, &r.DeathAgeMin)
	set("death_age_max", in.DeathAgeMax, &r.DeathAgeMax)
	return r.Normalize(), rejected
}

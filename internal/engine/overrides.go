package engine

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
)

// Manual overrides. Every edit is refused once settings are locked, and
// threshold crossings caused by an edit are adjudicated immediately.

// ApplyAgingRange overlays the parseable fields of in onto the ranges, then
// resamples the lifespan of every living record from the new death range.
// It returns the names of rejected fields.
func (e *Engine) ApplyAgingRange(ctx context.Context, in crew.RangeInput) ([]string, error) {
	if e.settings.Locked {
		return nil, ErrSettingsLocked
	}
	ranges, rejected := e.settings.Ranges.Apply(in)
	e.settings.Ranges = ranges
	now := e.clock.Now()

	v := e.newView()
	var resampled int
	for _, name := range e.ledger.Names() {
		rec, _ := e.ledger.Get(name)
		if !rec.Alive {
			continue
		}
		e.ledger.Mutate(name, func(r *crew.Record) {
			r.DeathAge = sampleDeathAge(e.sampler, ranges, r.Blessed)
		})
		resampled++
		e.checkThreshold(ctx, v, name, now)
	}

	if len(rejected) > 0 {
		e.journal.log.Warn("ignored non-numeric range input", "fields", rejected)
	}
	e.journal.emit(events.EventTypeRangesApplied, "", now, ranges,
		fmt.Sprintf("start %d-%d, death %d-%d, %d lifespans resampled",
			ranges.StartAgeMin, ranges.StartAgeMax, ranges.DeathAgeMin, ranges.DeathAgeMax, resampled))
	e.journal.metrics.SetRecordCounts(e.ledger.Counts())
	return rejected, nil
}

// LockSettings permanently locks the settings. Locking twice is a no-op.
func (e *Engine) LockSettings() {
	if e.settings.Locked {
		return
	}
	e.settings.Locked = true
	e.journal.emit(events.EventTypeSettingsLocked, "", e.clock.Now(), nil, "settings locked")
}

// SetAge overrides a living record's age. Lowering the age rebases the year the
// record was added to the current year. Negative ages clamp to zero.
func (e *Engine) SetAge(ctx context.Context, name string, age int) error {
	rec, err := e.editable(name)
	if err != nil {
		return err
	}
	age = max(age, 0)
	now := e.clock.Now()

	e.ledger.Mutate(name, func(r *crew.Record) {
		if age < r.CurrentAge {
			r.YearAdded = calendar.CurrentYear(max(now, 0))
		}
		r.CurrentAge = age
		r.DeriveBirthYear()
	})
	e.journal.emit(events.EventTypeRecordEdited, name, now,
		events.EditPayload{Field: "current_age", From: rec.CurrentAge, To: age},
		fmt.Sprintf("age %d -> %d", rec.CurrentAge, age))

	e.checkThreshold(ctx, e.newView(), name, now)
	return nil
}

// RollBackAge removes years spent frozen from a living record's age, clamped
// at zero. Unlike SetAge it leaves YearAdded and BirthYear untouched.
func (e *Engine) RollBackAge(ctx context.Context, name string, years int) error {
	if years <= 0 {
		return ErrInvalidYears
	}
	rec, err := e.editable(name)
	if err != nil {
		return err
	}
	age := max(rec.CurrentAge-years, 0)
	now := e.clock.Now()

	// Birth date stays put; only the years spent frozen come off.
	e.ledger.Mutate(name, func(r *crew.Record) { r.CurrentAge = age })
	e.journal.emit(events.EventTypeRecordEdited, name, now,
		events.EditPayload{Field: "current_age", From: rec.CurrentAge, To: age},
		fmt.Sprintf("rolled back %d frozen years, age %d -> %d", years, rec.CurrentAge, age))

	e.checkThreshold(ctx, e.newView(), name, now)
	return nil
}

// SetBlessed grants or removes the lifespan blessing.
func (e *Engine) SetBlessed(ctx context.Context, name string, blessed bool) error {
	rec, err := e.editable(name)
	if err != nil {
		return err
	}
	if rec.Blessed == blessed {
		return nil
	}
	e.ledger.Mutate(name, func(r *crew.Record) { r.SetBlessed(blessed) })
	after, _ := e.ledger.Get(name)

	now := e.clock.Now()
	e.journal.emit(events.EventTypeRecordEdited, name, now,
		events.EditPayload{Field: "blessed", From: rec.Blessed, To: blessed},
		fmt.Sprintf("blessed=%t, lifespan %d -> %d", blessed, rec.DeathAge, after.DeathAge))
	e.checkThreshold(ctx, e.newView(), name, now)
	return nil
}

// SetImmortal toggles the death exemption. Dropping it can kill at once.
func (e *Engine) SetImmortal(ctx context.Context, name string, immortal bool) error {
	rec, err := e.editable(name)
	if err != nil {
		return err
	}
	if rec.Immortal == immortal {
		return nil
	}
	e.ledger.Mutate(name, func(r *crew.Record) { r.Immortal = immortal })

	now := e.clock.Now()
	e.journal.emit(events.EventTypeRecordEdited, name, now,
		events.EditPayload{Field: "immortal", From: rec.Immortal, To: immortal},
		fmt.Sprintf("immortal=%t", immortal))
	e.checkThreshold(ctx, e.newView(), name, now)
	return nil
}

func (e *Engine) editable(name string) (crew.Record, error) {
	if e.settings.Locked {
		return crew.Record{}, ErrSettingsLocked
	}
	rec, ok := e.ledger.Get(name)
	if !ok {
		return crew.Record{}, fmt.Errorf("%w: %s", ErrUnknownCrew, name)
	}
	if !rec.Alive {
		return crew.Record{}, fmt.Errorf("%w: %s", ErrNotAlive, name)
	}
	return rec, nil
}

// checkThreshold kills a record whose edit put it at or past its lifespan.
// Suspended crew are skipped; they are checked again once thawed.
func (e *Engine) checkThreshold(ctx context.Context, v *view, name string, now float64) {
	rec, ok := e.ledger.Get(name)
	if !ok || !rec.Alive || !rec.ReachedDeathAge() {
		return
	}
	if v.isSuspended(ctx, name) {
		return
	}
	known := now > 0
	e.adj.MarkDead(ctx, v, name, known, now)
}

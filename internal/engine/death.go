package engine

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/ledger"
)

// DeathAdjudicator is the only path by which a record becomes dead.
type DeathAdjudicator struct {
	ledger  *ledger.Ledger
	journal *journal
}

func NewDeathAdjudicator(l *ledger.Ledger, j *journal) *DeathAdjudicator {
	return &DeathAdjudicator{ledger: l, journal: j}
}

// MarkDead kills the named record. With known set the death is stamped at now,
// otherwise it is recorded as unobserved. It reports whether a transition happened.
//
// Dead records are left untouched. Suspended or excluded crew are refused with a
// warning: callers must filter them out before asking.
func (d *DeathAdjudicator) MarkDead(ctx context.Context, v *view, name string, known bool, now float64) bool {
	return d.markDead(ctx, v, name, known, now, false)
}

// MarkDeadAtCurrentAge is MarkDead for deaths the roster reported: once the
// preconditions pass, the lifespan threshold is frozen at the current age.
// A refused request leaves the record untouched.
func (d *DeathAdjudicator) MarkDeadAtCurrentAge(ctx context.Context, v *view, name string, known bool, now float64) bool {
	return d.markDead(ctx, v, name, known, now, true)
}

func (d *DeathAdjudicator) markDead(ctx context.Context, v *view, name string, known bool, now float64, freezeThreshold bool) bool {
	rec, ok := d.ledger.Get(name)
	if !ok || !rec.Alive {
		return false
	}

	m, inRoster := v.member(ctx, name)
	if inRoster && !m.Trackable() {
		d.journal.log.Warn("refusing to mark excluded crew dead", "crew", name, "category", m.Category)
		return false
	}
	if v.isSuspended(ctx, name) {
		d.journal.log.Warn("refusing to mark suspended crew dead", "crew", name)
		return false
	}

	if inRoster {
		d.releaseFromRoster(ctx, v, m)
	}

	death := crew.UnknownDeath()
	if known {
		death = crew.DeathAt(now)
	}
	d.ledger.Mutate(name, func(r *crew.Record) {
		if freezeThreshold {
			r.DeathAge = r.CurrentAge
		}
		r.Alive = false
		r.Death = death
	})

	d.journal.metrics.RecordDeath(known)
	payload := events.DeathPayload{Age: rec.CurrentAge, Known: known}
	details := fmt.Sprintf("died at age %d, moment unknown", rec.CurrentAge)
	if known {
		payload.DeathUT = now
		details = fmt.Sprintf("died at age %d on %s", rec.CurrentAge, calendar.DateOf(now))
	}
	d.journal.emit(events.EventTypeCrewDied, name, now, payload, details)
	return true
}

// releaseFromRoster detaches an assigned member and marks it dead externally.
// Failures are logged; the ledger transition still happens.
func (d *DeathAdjudicator) releaseFromRoster(ctx context.Context, v *view, m crew.Member) {
	if m.Status == crew.StatusAssigned {
		if err := v.roster.Detach(ctx, m.Name); err != nil {
			d.journal.log.Warn("detach failed", "crew", m.Name, "error", err)
			d.journal.metrics.RecordCollaboratorFailure("roster")
		}
	}
	if m.Status != crew.StatusDead {
		if err := v.roster.SetStatus(ctx, m.Name, crew.StatusDead); err != nil {
			d.journal.log.Warn("set status failed", "crew", m.Name, "error", err)
			d.journal.metrics.RecordCollaboratorFailure("roster")
			return
		}
	}
	m.Status = crew.StatusDead
	m.Placement = ""
	v.members[m.Name] = m
}

package engine

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/ledger"
)

// AgingSystem advances ages by the birthdays elapsed since the previous tick.
// It works on intervals, so a long gap between ticks ages crew in one step.
type AgingSystem struct {
	ledger  *ledger.Ledger
	adj     *DeathAdjudicator
	journal *journal

	lastUT  float64
	hasLast bool
}

func NewAgingSystem(l *ledger.Ledger, adj *DeathAdjudicator, j *journal) *AgingSystem {
	return &AgingSystem{ledger: l, adj: adj, journal: j}
}

// Baseline returns the last observed time, if any.
func (as *AgingSystem) Baseline() (float64, bool) {
	return as.lastUT, as.hasLast
}

// Reset forgets the baseline; the next Advance only records one.
func (as *AgingSystem) Reset() {
	as.lastUT, as.hasLast = 0, false
}

// Advance ages every living, unsuspended record over (lastUT, now].
func (as *AgingSystem) Advance(ctx context.Context, v *view, now float64) {
	if !as.hasLast {
		as.lastUT, as.hasLast = now, true
		return
	}
	if now < as.lastUT {
		as.journal.log.Warn("clock went backwards, resetting baseline", "last_ut", as.lastUT, "now", now)
		as.lastUT = now
		return
	}
	last := as.lastUT
	as.lastUT = now

	for _, name := range as.ledger.Names() {
		rec, _ := as.ledger.Get(name)
		if !rec.Alive || v.isSuspended(ctx, name) {
			continue
		}

		if n := calendar.CountBirthdaysBetween(rec.Birthday, last, now); n > 0 {
			as.ledger.Mutate(name, func(r *crew.Record) { r.CurrentAge += n })
			rec.CurrentAge += n
			as.journal.emit(events.EventTypeBirthday, name, now,
				events.BirthdayPayload{Birthdays: n, NewAge: rec.CurrentAge},
				fmt.Sprintf("now %d", rec.CurrentAge))
		}

		if rec.ReachedDeathAge() {
			as.adj.MarkDead(ctx, v, name, true, now)
		}
	}
}

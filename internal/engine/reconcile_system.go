package engine

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/ledger"
)

// Reconcile action labels, shared with metrics.
const (
	ActionCreated        = "created"
	ActionRemoved        = "removed"
	ActionDiscoveredDead = "discovered_dead"
	ActionReanimated     = "reanimated"
)

// ReconcileSystem keeps the ledger in line with the roster and the freeze tracker.
type ReconcileSystem struct {
	ledger   *ledger.Ledger
	adj      *DeathAdjudicator
	sampler  Sampler
	settings *Settings
	journal  *journal
}

func NewReconcileSystem(l *ledger.Ledger, adj *DeathAdjudicator, s Sampler, settings *Settings, j *journal) *ReconcileSystem {
	return &ReconcileSystem{ledger: l, adj: adj, sampler: s, settings: settings, journal: j}
}

// Run applies one reconciliation pass over the view's roster snapshot.
// Ledger records with no roster entry are left alone.
func (rs *ReconcileSystem) Run(ctx context.Context, v *view, now float64) {
	if !v.rosterOK {
		return
	}
	year := calendar.CurrentYear(now)

	for _, name := range v.order {
		m := v.members[name]
		switch {
		case !m.Trackable():
			rs.drop(name, m, now)
		case !rs.ledger.Has(name):
			rs.create(ctx, v, m, year, now)
		default:
			rs.correct(ctx, v, m, now)
		}
	}
}

func (rs *ReconcileSystem) drop(name string, m crew.Member, now float64) {
	if !rs.ledger.Remove(name) {
		return
	}
	rs.journal.metrics.RecordReconcile(ActionRemoved)
	rs.journal.emit(events.EventTypeRecordRemoved, name, now, nil,
		fmt.Sprintf("no longer tracked (%s)", m.Category))
}

func (rs *ReconcileSystem) create(ctx context.Context, v *view, m crew.Member, year int, now float64) {
	suspended := v.isSuspended(ctx, m.Name)

	var rec crew.Record
	if !suspended && m.Status == crew.StatusDead {
		rec = newDiscoveredDeadRecord(rs.sampler, m.Name, year)
	} else {
		rec = newLivingRecord(rs.sampler, m.Name, rs.settings.Ranges, year)
	}
	if err := rs.ledger.Create(rec); err != nil {
		rs.journal.log.Warn("record creation failed", "crew", m.Name, "error", err)
		return
	}

	rs.journal.metrics.RecordReconcile(ActionCreated)
	rs.journal.emit(events.EventTypeRecordCreated, m.Name, now, events.RecordCreatedPayload{
		CurrentAge: rec.CurrentAge,
		DeathAge:   rec.DeathAge,
		Alive:      rec.Alive,
		Blessed:    rec.Blessed,
		Suspended:  suspended,
	}, fmt.Sprintf("age %d, lifespan %d, alive=%t", rec.CurrentAge, rec.DeathAge, rec.Alive))
}

func (rs *ReconcileSystem) correct(ctx context.Context, v *view, m crew.Member, now float64) {
	rec, _ := rs.ledger.Get(m.Name)

	switch {
	case rec.Alive && m.Status == crew.StatusDead:
		if v.isSuspended(ctx, m.Name) {
			return
		}
		if rs.adj.MarkDeadAtCurrentAge(ctx, v, m.Name, false, now) {
			rs.journal.metrics.RecordReconcile(ActionDiscoveredDead)
		}

	case !rec.Alive && v.isSuspended(ctx, m.Name):
		rs.reanimate(m.Name, now)
	}
}

// reanimate revives a record wrongly marked dead. It is a no-op on living records.
func (rs *ReconcileSystem) reanimate(name string, now float64) {
	var (
		revived  bool
		deathAge int
	)
	rs.ledger.Mutate(name, func(r *crew.Record) {
		if r.Alive {
			return
		}
		r.Alive = true
		r.Death = crew.NoDeath()
		r.DeathAge = sampleDeathAge(rs.sampler, rs.settings.Ranges, r.Blessed)
		revived, deathAge = true, r.DeathAge
	})
	if !revived {
		return
	}
	rs.journal.metrics.RecordReconcile(ActionReanimated)
	rs.journal.emit(events.EventTypeCrewReanimated, name, now, nil,
		fmt.Sprintf("suspended crew revived, new lifespan %d", deathAge))
}

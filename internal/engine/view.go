package engine

import (
	"context"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/logger"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/metrics"
)

// view is the external state seen by one tick or one manual edit.
// Roster entries and suspension answers are read at most once per view,
// so the reconcile and aging passes of a tick agree with each other.
type view struct {
	roster     Roster
	suspension SuspensionSet
	log        *logger.Logger
	metrics    *metrics.Collector

	members   map[string]crew.Member
	order     []string
	rosterOK  bool
	suspended map[string]bool
}

func newView(roster Roster, suspension SuspensionSet, log *logger.Logger, m *metrics.Collector) *view {
	return &view{
		roster:     roster,
		suspension: suspension,
		log:        log,
		metrics:    m,
		members:    make(map[string]crew.Member),
		suspended:  make(map[string]bool),
	}
}

// loadRoster takes the full roster snapshot. A failure leaves the view without
// one and the reconcile pass is skipped for the tick.
func (v *view) loadRoster(ctx context.Context) {
	list, err := v.roster.Crew(ctx)
	if err != nil {
		v.log.Warn("roster snapshot failed, skipping reconciliation", "error", err)
		v.metrics.RecordCollaboratorFailure("roster")
		return
	}
	for _, m := range list {
		if _, dup := v.members[m.Name]; dup {
			continue
		}
		v.members[m.Name] = m
		v.order = append(v.order, m.Name)
	}
	v.rosterOK = true
}

// member returns the roster entry for name, looking it up when no snapshot holds it.
func (v *view) member(ctx context.Context, name string) (crew.Member, bool) {
	if m, ok := v.members[name]; ok {
		return m, true
	}
	if v.rosterOK {
		return crew.Member{}, false
	}
	m, ok, err := v.roster.Lookup(ctx, name)
	if err != nil {
		v.log.Warn("roster lookup failed", "crew", name, "error", err)
		v.metrics.RecordCollaboratorFailure("roster")
		return crew.Member{}, false
	}
	if ok {
		v.members[name] = m
	}
	return m, ok
}

// isSuspended answers from the freeze tracker. Failures count as not suspended.
func (v *view) isSuspended(ctx context.Context, name string) bool {
	if s, ok := v.suspended[name]; ok {
		return s
	}
	s, err := v.suspension.IsSuspended(ctx, name)
	if err != nil {
		v.log.Warn("suspension lookup failed, assuming not suspended", "crew", name, "error", err)
		v.metrics.RecordCollaboratorFailure("suspension")
		s = false
	}
	v.suspended[name] = s
	return s
}

// journal records lifecycle transitions to the event log and the logger.
type journal struct {
	events  *events.EventLog
	log     *logger.Logger
	metrics *metrics.Collector
}

func (j *journal) emit(t events.EventType, name string, ut float64, payload any, details string) {
	if j.events != nil {
		j.events.Append(events.LifecycleEvent{
			Type:     t,
			CrewName: name,
			UT:       ut,
			Payload:  payload,
		})
	}
	j.log.Event(string(t), name, details)
}

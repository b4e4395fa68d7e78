package engine

import (
	"context"
	"errors"
	"time"

	"github.com/MRamiBalles/CrewAging/server/internal/codec"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/ledger"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/logger"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/metrics"
	"github.com/MRamiBalles/CrewAging/server/internal/savetree"
)

var (
	ErrUnknownCrew    = errors.New("crew member is not tracked")
	ErrNotAlive       = errors.New("crew member is not alive")
	ErrSettingsLocked = errors.New("settings are locked")
	ErrInvalidYears   = errors.New("years must be positive")
)

// Settings are the persisted aging settings.
type Settings struct {
	Ranges crew.Ranges `json:"ranges"`
	Locked bool        `json:"locked"`
}

// Options wires the engine to its collaborators. Roster and Clock are required.
type Options struct {
	Roster     Roster
	Suspension SuspensionSet // nil means no freeze tracking
	Clock      Clock
	Sampler    Sampler // nil means a runtime-seeded PCG
	Ranges     crew.Ranges
	Events     *events.EventLog
	Logger     *logger.Logger
	Metrics    *metrics.Collector
}

// Engine owns the aging ledger and runs the reconcile and aging passes.
// It is not safe for concurrent use; hosts with threads drive it through a Ticker.
type Engine struct {
	roster     Roster
	suspension SuspensionSet
	clock      Clock
	sampler    Sampler
	journal    *journal

	ledger   *ledger.Ledger
	settings Settings

	adj        *DeathAdjudicator
	reconciler *ReconcileSystem
	aging      *AgingSystem
}

// New initializes the engine with an empty ledger.
func New(opts Options) *Engine {
	if opts.Suspension == nil {
		opts.Suspension = NoSuspension{}
	}
	if opts.Sampler == nil {
		opts.Sampler = NewSampler(0)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Ranges == (crew.Ranges{}) {
		opts.Ranges = crew.DefaultRanges()
	}

	e := &Engine{
		roster:     opts.Roster,
		suspension: opts.Suspension,
		clock:      opts.Clock,
		sampler:    opts.Sampler,
		journal:    &journal{events: opts.Events, log: opts.Logger, metrics: opts.Metrics},
		ledger:     ledger.New(),
		settings:   Settings{Ranges: opts.Ranges.Normalize()},
	}
	e.adj = NewDeathAdjudicator(e.ledger, e.journal)
	e.reconciler = NewReconcileSystem(e.ledger, e.adj, e.sampler, &e.settings, e.journal)
	e.aging = NewAgingSystem(e.ledger, e.adj, e.journal)
	return e
}

func (e *Engine) newView() *view {
	return newView(e.roster, e.suspension, e.journal.log, e.journal.metrics)
}

// OnTick reconciles against the roster, then ages crew over the time elapsed
// since the previous tick. Nothing happens until the clock is valid.
func (e *Engine) OnTick(ctx context.Context) {
	now := e.clock.Now()
	if now <= 0 {
		return
	}
	start := time.Now()

	v := e.newView()
	v.loadRoster(ctx)
	e.reconciler.Run(ctx, v, now)
	e.aging.Advance(ctx, v, now)

	e.journal.metrics.RecordTick(time.Since(start))
	e.journal.metrics.SetRecordCounts(e.ledger.Counts())
}

// OnExternalStatusChanged adjudicates a death the moment the roster reports it,
// so the death time is known. Other transitions wait for the next tick.
func (e *Engine) OnExternalStatusChanged(ctx context.Context, name string, prev, next crew.Status) {
	if next != crew.StatusDead || prev == crew.StatusDead {
		return
	}
	now := e.clock.Now()
	if now <= 0 {
		return
	}
	rec, ok := e.ledger.Get(name)
	if !ok || !rec.Alive {
		return
	}

	v := e.newView()
	if v.isSuspended(ctx, name) {
		return
	}
	e.adj.MarkDeadAtCurrentAge(ctx, v, name, true, now)
	e.journal.metrics.SetRecordCounts(e.ledger.Counts())
}

// Load replaces the ledger and settings with the contents of root and resets
// the aging baseline. Skipped entries are logged; the rest still load.
func (e *Engine) Load(root *savetree.Node) {
	st, err := codec.Load(root, e.clock.Now(), codec.State{
		Ranges: crew.DefaultRanges(),
	})
	if err != nil {
		skipped := 1
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			skipped = len(joined.Unwrap())
		}
		e.journal.log.Warn("skipped malformed crew entries", "count", skipped, "error", err)
		e.journal.metrics.RecordSkippedEntries(skipped)
	}

	e.ledger.Replace(st.Records)
	e.settings = Settings{Ranges: st.Ranges, Locked: st.Locked}
	e.aging.Reset()
	e.journal.metrics.SetRecordCounts(e.ledger.Counts())
	e.journal.log.Info("ledger loaded", "records", e.ledger.Len(), "locked", st.Locked)
}

// Save writes the ledger and settings into root.
func (e *Engine) Save(root *savetree.Node) {
	codec.Save(root, codec.State{
		Records: e.ledger.Snapshot(),
		Ranges:  e.settings.Ranges,
		Locked:  e.settings.Locked,
	})
}

// Records returns copies of the records matching preds, ordered by cmpFn.
func (e *Engine) Records(cmpFn ledger.Compare, preds ...ledger.Predicate) []crew.Record {
	return e.ledger.Select(cmpFn, preds...)
}

// Record returns a copy of one record.
func (e *Engine) Record(name string) (crew.Record, bool) {
	return e.ledger.Get(name)
}

// Settings returns the current aging settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Now returns the collaborator clock's current value.
func (e *Engine) Now() float64 {
	return e.clock.Now()
}

// Counts returns the number of living and dead records.
func (e *Engine) Counts() (alive, dead int) {
	return e.ledger.Counts()
}

package engine

import (
	"context"
	"time"

	"github.com/MRamiBalles/CrewAging/server/internal/platform/logger"
)

// DefaultTickRate is how often the ledger is polled against the host.
const DefaultTickRate = 1 * time.Second

type job struct {
	fn   func(*Engine)
	done chan struct{}
}

// Ticker is the single serialized worker that owns an Engine.
// Ticks, manual edits and reads all run on its goroutine, one at a time,
// so no edit ever interleaves with a tick in progress.
type Ticker struct {
	engine   *Engine
	logger   *logger.Logger
	interval time.Duration
	jobs     chan job
}

// NewTicker creates a ticker for e. A non-positive interval uses DefaultTickRate.
func NewTicker(e *Engine, interval time.Duration, log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickRate
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Ticker{
		engine:   e,
		logger:   log,
		interval: interval,
		jobs:     make(chan job),
	}
}

// Start runs the loop until ctx is done. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) error {
	t.logger.Info("aging ticker started", "interval", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("aging ticker stopped")
			return nil
		case <-ticker.C:
			t.engine.OnTick(ctx)
		case j := <-t.jobs:
			j.fn(t.engine)
			close(j.done)
		}
	}
}

// Do runs fn on the worker and waits for it to finish. It returns ctx.Err()
// if ctx ends before fn is picked up or completes; fn may still run later
// only if it was already picked up.
func (t *Ticker) Do(ctx context.Context, fn func(*Engine)) error {
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case t.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TickNow runs one tick on the worker outside the regular cadence.
func (t *Ticker) TickNow(ctx context.Context) error {
	return t.Do(ctx, func(e *Engine) { e.OnTick(ctx) })
}

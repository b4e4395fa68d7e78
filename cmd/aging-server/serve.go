package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/CrewAging/server/internal/engine"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/infra/cache"
	"github.com/MRamiBalles/CrewAging/server/internal/infra/clock"
	"github.com/MRamiBalles/CrewAging/server/internal/infra/roster"
	"github.com/MRamiBalles/CrewAging/server/internal/infra/storage"
	"github.com/MRamiBalles/CrewAging/server/internal/network"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/config"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/logger"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/metrics"
	"github.com/MRamiBalles/CrewAging/server/internal/savetree"
)

const (
	pollInterval    = 200 * time.Millisecond
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the aging ticker with its HTTP API and live event feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger.New(os.Stdout, cfg.LogLevel))
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address")
	cmd.Flags().Uint64("seed", 0, "sampler seed; 0 draws one at startup")
	cmd.Flags().Duration("tick", 0, "tick interval")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, appLogger *logger.Logger) error {
	appLogger.Info("starting aging server", "slot", cfg.SaveSlot, "db", cfg.DBDriver, "clock", cfg.ClockMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.DBDriver, err)
	}
	defer st.close()

	eventLog := events.NewEventLog(storage.NewSlotPersister(st.events, cfg.SaveSlot))
	eventLog.OnPersistError(func(err error) {
		appLogger.Warn("failed to persist lifecycle event", "error", err)
		m.RecordEventWriteError()
	})
	reconstructor := storage.NewReconstructor(st.events)
	restored, err := reconstructor.Restore(ctx, cfg.SaveSlot, eventLog)
	if err != nil {
		return err
	}
	appLogger.Info("lifecycle history restored", "events", restored)

	crewRoster := roster.NewMemory()
	simClock, clockSetter := newClock(cfg)

	var suspension engine.SuspensionSet = engine.NoSuspension{}
	var freezer network.Freezer
	if cfg.RedisURL != "" {
		client, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		frozen := cache.NewFrozenSet(client, cfg.FrozenKey)
		suspension, freezer = frozen, frozen
		appLogger.Info("freeze tracking enabled", "key", cfg.FrozenKey)
	}

	eng := engine.New(engine.Options{
		Roster:     crewRoster,
		Suspension: suspension,
		Clock:      simClock,
		Sampler:    engine.NewSampler(cfg.Seed),
		Events:     eventLog,
		Logger:     appLogger,
		Metrics:    m,
	})

	tree, err := st.saves.LoadTree(ctx, cfg.SaveSlot)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		appLogger.Info("no saved ledger, starting fresh", "slot", cfg.SaveSlot)
	case err != nil:
		return err
	default:
		eng.Load(tree)
	}

	ticker := engine.NewTicker(eng, cfg.TickInterval, appLogger)
	hub := network.NewHub(appLogger, m)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: network.NewRouter(network.APIDeps{
			Ticker:   ticker,
			Roster:   crewRoster,
			Clock:    clockSetter,
			Freezer:  freezer,
			History:  network.NewHistoryHandler(eventLog, reconstructor, cfg.SaveSlot, appLogger),
			Hub:      hub,
			Gatherer: reg,
			Logger:   appLogger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ticker.Start(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return hub.StartEventPoller(gctx, eventLog, pollInterval) })
	g.Go(func() error {
		return autosave(gctx, ticker, st.saves, cfg.SaveSlot, cfg.AutosaveInterval, appLogger)
	})
	g.Go(func() error {
		appLogger.Info("HTTP API and feed listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	// The worker has exited; the engine is ours again.
	appLogger.Info("shutting down, saving ledger", "slot", cfg.SaveSlot)
	saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	saveErr := saveSlot(saveCtx, eng, st.saves, cfg.SaveSlot)
	eventLog.Flush()
	return errors.Join(runErr, saveErr)
}

// newClock returns the simulation clock and, in external mode, the setter the API pushes UT into.
func newClock(cfg config.Config) (engine.Clock, network.ClockSetter) {
	if cfg.ClockMode == config.ClockScaled {
		return clock.NewScaled(cfg.ClockStartUT, cfg.ClockRate), nil
	}
	manual := clock.NewManual(cfg.ClockStartUT)
	return manual, manual
}

// autosave periodically snapshots the ledger on the worker and writes it to the slot.
func autosave(ctx context.Context, ticker *engine.Ticker, repo storage.SaveRepository, slot string, interval time.Duration, log *logger.Logger) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			tree := savetree.New(sceneRoot)
			var ut float64
			if err := ticker.Do(ctx, func(e *engine.Engine) {
				e.Save(tree)
				ut = e.Now()
			}); err != nil {
				return nil
			}
			if err := repo.SaveTree(ctx, slot, ut, tree); err != nil {
				log.Warn("autosave failed", "slot", slot, "error", err)
				continue
			}
			log.Debug("ledger autosaved", "slot", slot, "ut", ut)
		}
	}
}

func saveSlot(ctx context.Context, eng *engine.Engine, repo storage.SaveRepository, slot string) error {
	tree := savetree.New(sceneRoot)
	eng.Save(tree)
	if err := repo.SaveTree(ctx, slot, eng.Now(), tree); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", slot, err)
	}
	return nil
}

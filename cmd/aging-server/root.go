// Package main is the entry point for the crew aging server.
// It only handles dependency injection and command wiring.
// NO business logic belongs here.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/CrewAging/server/internal/infra/storage"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/config"
)

// sceneRoot names the top node of every stored save tree.
const sceneRoot = "SCENARIO"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aging-server",
		Short: "Crew aging and mortality ledger",
		Long: `aging-server tracks the age and lifespan of every crew member the host reports, ` +
			`ages them as simulation time passes and records their deaths. ` +
			`Settings come from CREWAGING_* environment variables; flags override them.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("env-file", ".env", "optional dotenv file read before the environment")
	pf.String("db-driver", "", "database driver: sqlite or postgres")
	pf.String("db-dsn", "", "database file path or connection string")
	pf.String("slot", "", "save slot name")
	pf.String("log-level", "", "debug, info, warn or error")

	root.AddCommand(newServeCmd(), newInspectCmd(), newExportCmd(), newImportCmd())
	return root
}

// loadConfig reads the environment and applies any flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}

	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("db-driver", &cfg.DBDriver)
	override("db-dsn", &cfg.DBDSN)
	override("slot", &cfg.SaveSlot)
	override("log-level", &cfg.LogLevel)
	override("addr", &cfg.HTTPAddr)
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("tick") {
		cfg.TickInterval, _ = flags.GetDuration("tick")
	}
	return cfg, cfg.Validate()
}

// stores bundles the repositories of one database.
type stores struct {
	saves  storage.SaveRepository
	events storage.EventRepository
	close  func() error
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := storage.InitPostgres(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			saves:  storage.NewPostgresSaveRepository(db),
			events: storage.NewPostgresEventRepository(db),
			close:  db.Close,
		}, nil
	case "sqlite":
		db, err := storage.InitSQLite(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			saves:  storage.NewSQLiteSaveRepository(db),
			events: storage.NewSQLiteEventRepository(db),
			close:  db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
}

// slotUT returns the UT a slot was last saved at, or ErrNotFound.
func slotUT(ctx context.Context, repo storage.SaveRepository, slot string) (float64, error) {
	slots, err := repo.ListSlots(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range slots {
		if s.Slot == slot {
			return s.UT, nil
		}
	}
	return 0, fmt.Errorf("slot %q: %w", slot, storage.ErrNotFound)
}

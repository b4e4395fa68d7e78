package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/engine"
	"github.com/MRamiBalles/CrewAging/server/internal/infra/clock"
	"github.com/MRamiBalles/CrewAging/server/internal/infra/roster"
	"github.com/MRamiBalles/CrewAging/server/internal/ledger"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/logger"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the ledger stored in a save slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sortMode, _ := cmd.Flags().GetString("sort")
			state, _ := cmd.Flags().GetString("state")

			ctx := cmd.Context()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			ut, err := slotUT(ctx, st.saves, cfg.SaveSlot)
			if err != nil {
				return err
			}
			tree, err := st.saves.LoadTree(ctx, cfg.SaveSlot)
			if err != nil {
				return err
			}

			eng := engine.New(engine.Options{
				Roster: roster.NewMemory(),
				Clock:  clock.NewManual(ut),
				Logger: logger.New(cmd.ErrOrStderr(), cfg.LogLevel),
			})
			eng.Load(tree)

			var preds []ledger.Predicate
			switch state {
			case "alive":
				preds = append(preds, ledger.Alive())
			case "dead":
				preds = append(preds, ledger.Dead())
			}
			mode := ledger.SortMode(sortMode)
			records := eng.Records(mode.Comparator(), preds...)

			alive, dead := eng.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "slot %s at %s: %d alive, %d dead, settings locked=%t (%s)\n",
				cfg.SaveSlot, calendar.DateOf(ut), alive, dead, eng.Settings().Locked, mode.Label())
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().String("sort", string(ledger.SortOldestFirst), "oldest, youngest, az or za")
	cmd.Flags().String("state", "all", "alive, dead or all")
	return cmd
}

func printRecords(out io.Writer, records []crew.Record) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAGE\tLIFESPAN\tSTATE\tBORN\tDIED")
	for _, r := range records {
		lifespan := strconv.Itoa(r.DeathAge)
		switch {
		case r.Immortal:
			lifespan = "immortal"
		case r.Blessed:
			lifespan += " (blessed)"
		}
		state, died := "alive", "-"
		if !r.Alive {
			state, died = "dead", r.DeathString()
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", r.Name, r.CurrentAge, lifespan, state, r.BirthString(), died)
	}
	return tw.Flush()
}

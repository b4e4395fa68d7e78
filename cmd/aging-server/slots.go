package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/CrewAging/server/internal/codec"
	"github.com/MRamiBalles/CrewAging/server/internal/savetree"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write a save slot as YAML (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			tree, err := st.saves.LoadTree(ctx, cfg.SaveSlot)
			if err != nil {
				return fmt.Errorf("failed to load slot %s: %w", cfg.SaveSlot, err)
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return savetree.WriteYAML(out, tree)
		},
	}
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Store a YAML save tree into a slot (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ut, _ := cmd.Flags().GetFloat64("ut")

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			tree, err := savetree.ReadYAML(in)
			if err != nil {
				return err
			}

			// Reject trees the ledger could not use at all; per-entry damage is
			// reported and otherwise tolerated like any other load.
			if !tree.HasNode(codec.NodeAgeData) {
				return fmt.Errorf("tree has no %s node", codec.NodeAgeData)
			}
			st, loadErr := codec.Load(tree, ut, codec.State{})
			if loadErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", loadErr)
			}

			ctx := cmd.Context()
			repos, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer repos.close()
			if err := repos.saves.SaveTree(ctx, cfg.SaveSlot, ut, tree); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records into slot %s\n", len(st.Records), cfg.SaveSlot)
			return nil
		},
	}
	cmd.Flags().Float64("ut", 0, "UT recorded for the imported slot")
	return cmd
}

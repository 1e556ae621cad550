package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/neat-engine/neat/nn"
	"github.com/baldhumanity/neat-engine/neat/store"
)

func newShowCmd() *cobra.Command {
	var (
		dbPath   string
		runID    string
		genomeID int
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored genome and its XOR truth table",
		Long: `Print a stored genome and its XOR truth table.

Without --run the runs in the database are listed. Without --genome the
fittest genome of the run is shown.

Examples:
  neatxor show --db neatxor.db
  neatxor show --db neatxor.db --run 0b6c... --genome 4021`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()

			st := store.NewSQLiteStore(dbPath)
			if err := st.Init(ctx); err != nil {
				return fmt.Errorf("failed to open genome store: %w", err)
			}
			defer st.Close()

			if runID == "" {
				runs, err := st.ListRuns(ctx)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs stored.")
					return nil
				}
				fmt.Fprintln(out, "Runs:")
				for _, r := range runs {
					fmt.Fprintf(out, "  %s\n", r)
				}
				return nil
			}

			if !cmd.Flags().Changed("genome") {
				list, err := st.ListGenomes(ctx, runID)
				if err != nil {
					return err
				}
				genomeID = list[0].ID
			}
			g, err := st.LoadGenome(ctx, runID, genomeID)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, g)
			for _, gene := range g.Connections.Genes {
				fmt.Fprintf(out, "  %s\n", gene)
			}
			net, err := nn.NewDecoder().Decode(g)
			if err != nil {
				return err
			}
			printTruthTable(out, net)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "neatxor.db", "SQLite database written by run")
	cmd.Flags().StringVar(&runID, "run", "", "Run id")
	cmd.Flags().IntVar(&genomeID, "genome", 0, "Genome id (defaults to the fittest genome of the run)")
	return cmd
}

// Command neatxor evolves networks for the XOR task and inspects stored genomes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neatxor",
		Short: "Evolve XOR networks with NEAT",
		Long: `neatxor runs a NEAT evolution on the XOR task.

Genomes are stored in a SQLite database so that the best network of a run
can be inspected later with the show command.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(
		newRunCmd(),
		newShowCmd(),
	)
	return rootCmd
}

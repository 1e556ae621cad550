package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/baldhumanity/neat-engine/neat"
	"github.com/baldhumanity/neat-engine/neat/nn"
	"github.com/baldhumanity/neat-engine/neat/store"
)

type runOptions struct {
	configPath      string
	generations     int
	seed            int64
	dbPath          string
	checkpoint      string
	checkpointEvery int
	metricsFile     string
	logLevel        string
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve a population on the XOR task",
		Long: `Evolve a population on the XOR task until the fitness threshold or the
generation limit is reached.

Examples:
  neatxor run --config configs/xor.ini
  neatxor run --seed 7 --db xor.db
  neatxor run --checkpoint xor_checkpoint.gz   # resumes when the file exists`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.logLevel, _ = cmd.Flags().GetString("log-level")
			return runXOR(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "configs/xor.ini", "Config file (INI, or YAML with a .yaml/.yml extension)")
	cmd.Flags().IntVar(&opts.generations, "generations", 300, "Maximum number of generations")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed (0 uses the current time)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "neatxor.db", "SQLite database for genomes (empty keeps them in memory)")
	cmd.Flags().StringVar(&opts.checkpoint, "checkpoint", "", "Checkpoint file to resume from and save to")
	cmd.Flags().IntVar(&opts.checkpointEvery, "checkpoint-every", 10, "Generations between checkpoints")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file when done")
	return cmd
}

func runXOR(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	logger := neat.NewLogger(opts.logLevel, cmd.ErrOrStderr())

	config, err := neat.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	reg := prometheus.NewRegistry()
	popOpts := []neat.PopulationOption{
		neat.WithLogger(logger),
		neat.WithMetrics(neat.NewMetrics(reg)),
	}

	var pop *neat.Population
	if opts.checkpoint != "" {
		if _, statErr := os.Stat(opts.checkpoint); statErr == nil {
			pop, err = neat.LoadCheckpoint(opts.checkpoint, config, rng, popOpts...)
			if err != nil {
				logger.Warn("failed to load checkpoint, starting new evolution", "path", opts.checkpoint, "err", err)
				pop = nil
			} else {
				logger.Info("resumed from checkpoint", "path", opts.checkpoint, "generation", pop.Generation)
			}
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat checkpoint: %w", statErr)
		}
	}
	if pop == nil {
		pop, err = neat.NewPopulation(config, rng, popOpts...)
		if err != nil {
			return fmt.Errorf("failed to create population: %w", err)
		}
	}

	var st store.Store = store.NewMemoryStore()
	if opts.dbPath != "" {
		st = store.NewSQLiteStore(opts.dbPath)
	}
	if err := st.Init(ctx); err != nil {
		return fmt.Errorf("failed to open genome store: %w", err)
	}
	defer st.Close()
	runID := store.NewRunID()

	decoder := nn.NewDecoder()
	decoder.Metrics = nn.NewMetrics(reg)
	if !config.Genome.FeedForward {
		decoder.CyclesPerActivation = 3
	}
	eval := xorFitness(decoder)

	logger.Info("starting evolution", "run", runID, "seed", seed, "generations", opts.generations)
	var winner *neat.Genome
	var lastSaved *neat.Genome
	for pop.Generation < opts.generations {
		winner, err = pop.RunGeneration(ctx, eval)
		if err != nil {
			return fmt.Errorf("generation %d failed: %w", pop.Generation, err)
		}
		if best := pop.BestGenome; best != nil && best != lastSaved {
			if err := st.SaveGenome(ctx, runID, best); err != nil {
				return err
			}
			lastSaved = best
		}
		if winner != nil {
			break
		}
		if opts.checkpoint != "" && opts.checkpointEvery > 0 && pop.Generation%opts.checkpointEvery == 0 {
			if err := pop.SaveCheckpoint(opts.checkpoint); err != nil {
				logger.Warn("failed to save checkpoint", "generation", pop.Generation, "err", err)
			}
		}
	}

	if opts.checkpoint != "" {
		if err := pop.SaveCheckpoint(opts.checkpoint); err != nil {
			logger.Warn("failed to save final checkpoint", "err", err)
		}
	}
	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			logger.Warn("failed to write metrics", "path", opts.metricsFile, "err", err)
		}
	}

	best := pop.BestGenome
	fmt.Fprintln(out, "--- Evolution Complete ---")
	fmt.Fprintf(out, "Run: %s\n", runID)
	if winner != nil {
		fmt.Fprintf(out, "Fitness threshold met in generation %d.\n", pop.Generation)
	} else {
		fmt.Fprintf(out, "Reached generation limit (%d).\n", opts.generations)
	}
	if best == nil {
		fmt.Fprintln(out, "No genome was evaluated.")
		return nil
	}
	fmt.Fprintf(out, "Best genome %d: fitness %.4f, %d connections, %d hidden nodes\n",
		best.ID, best.Fitness.PrimaryFitness, best.Connections.Len(), len(best.HiddenNodeIDs))
	net, err := decoder.Decode(best)
	if err != nil {
		return err
	}
	printTruthTable(out, net)
	return nil
}

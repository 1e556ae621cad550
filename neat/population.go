package neat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// FitnessFunc evaluates a single genome. It is called concurrently for different genomes
// and must not modify the genome.
type FitnessFunc func(ctx context.Context, g *Genome) (FitnessInfo, error)

// RunStats summarises one evaluated generation.
type RunStats struct {
	Generation     int
	BestFitness    float64
	MeanFitness    float64
	StdDevFitness  float64
	MeanComplexity float64
	SpeciesCount   int
	Mode           ComplexityRegulationMode
}

// PopulationOption configures optional collaborators of a Population.
type PopulationOption func(*Population)

// WithLogger sets the logger used by the population and its operators.
func WithLogger(l *slog.Logger) PopulationOption {
	return func(p *Population) { p.Logger = l }
}

// WithMetrics sets the metrics updated by the population and its operators.
func WithMetrics(m *Metrics) PopulationOption {
	return func(p *Population) { p.Metrics = m }
}

// Population holds the state of the evolutionary process.
type Population struct {
	Config     *Config
	Meta       *MetaNeatGenome
	Genomes    []*Genome  // Current generation of genomes
	Species    []*Species // Partition of Genomes; nil until the first generation runs
	Generation int
	BestGenome *Genome // Best genome found so far
	Stats      RunStats

	Seqs         *IDSequences
	Ledger       *InnovationLedger
	Speciation   SpeciationStrategy
	Reproduction *Reproduction
	Complexity   ComplexityRegulator
	Metrics      *Metrics
	Logger       *slog.Logger

	rng *rand.Rand
}

// NewPopulation creates a new Population with a random initial generation.
func NewPopulation(config *Config, rng *rand.Rand, opts ...PopulationOption) (*Population, error) {
	p, err := newPopulation(config, rng, opts...)
	if err != nil {
		return nil, err
	}
	p.Genomes, err = NewInitialPopulation(p.Meta, config.Neat.PopSize, config.Genome.InitialConnectionsProportion, p.Seqs, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial population: %w", err)
	}
	return p, nil
}

// newPopulation wires the operators for config without creating genomes.
func newPopulation(config *Config, rng *rand.Rand, opts ...PopulationOption) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	meta, err := config.Meta()
	if err != nil {
		return nil, err
	}
	speciation, err := config.SpeciationStrategy()
	if err != nil {
		return nil, err
	}
	seqs := NewIDSequences(meta)
	asexual, err := NewAsexualReproduction(meta, config.Mutation, seqs)
	if err != nil {
		return nil, err
	}
	sexual := NewSexualReproduction(meta, seqs)
	sexual.Crossover.SecondaryParentGeneProbability = config.Crossover.SecondaryParentGeneProbability

	p := &Population{
		Config:       config,
		Meta:         meta,
		Seqs:         seqs,
		Ledger:       NewInnovationLedger(0, DefaultLedgerCapacity),
		Speciation:   speciation,
		Reproduction: NewReproduction(&config.Reproduction, asexual, sexual),
		Complexity:   NewComplexityRegulator(config.Complexity),
		rng:          rng,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.wireObservability()
	return p, nil
}

// wireObservability hands the population's logger and metrics to its operators.
func (p *Population) wireObservability() {
	r := p.Reproduction
	r.Logger = p.Logger
	r.Asexual.Logger, r.Asexual.Metrics = p.Logger, p.Metrics
	r.Sexual.Logger, r.Sexual.Metrics = p.Logger, p.Metrics
	switch s := p.Speciation.(type) {
	case *GeneticKMeansSpeciation:
		s.Logger, s.Metrics = p.Logger, p.Metrics
	case *RegularizedGeneticKMeansSpeciation:
		s.Logger, s.Metrics = p.Logger, p.Metrics
	}
}

// RunGeneration evaluates the current generation and, unless the fitness threshold is met,
// replaces it with the next one.
// Returns the winning genome if the fitness threshold is met this generation, otherwise nil.
func (p *Population) RunGeneration(ctx context.Context, eval FitnessFunc) (*Genome, error) {
	genStartTime := time.Now()
	logger := loggerOrDefault(p.Logger)

	if len(p.Genomes) == 0 {
		return p.BestGenome, fmt.Errorf("population extinct in generation %d", p.Generation)
	}

	// 1. Speciate the initial generation. Later generations are speciated as they are born.
	if p.Species == nil {
		species, err := p.Speciation.SpeciateAll(p.Genomes, p.Config.Speciation.SpeciesCount, p.rng)
		if err != nil {
			return p.BestGenome, fmt.Errorf("speciation failed in generation %d: %w", p.Generation, err)
		}
		p.Species = species
	}

	// 2. Evaluate fitness
	failures, err := p.evaluate(ctx, eval)
	if err != nil {
		return p.BestGenome, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	// 3. Track best genome and statistics. Elites are re-evaluated every generation, so the
	// best is kept as a snapshot holding the fitness it was recorded with.
	currentBest := p.findBestGenome()
	if p.BestGenome == nil || currentBest.Fitness.PrimaryFitness > p.BestGenome.Fitness.PrimaryFitness {
		p.BestGenome = currentBest.snapshot()
		logger.Info("new best genome", "id", currentBest.ID, "fitness", currentBest.Fitness.PrimaryFitness)
	}
	p.updateSpeciesFitness()
	mode := p.Complexity.UpdateMode(p.Generation, meanComplexity(p.Genomes))
	p.Stats = p.computeStats(mode)
	p.Metrics.observeGeneration(p.Stats, failures)
	logger.Info("generation evaluated",
		"generation", p.Generation,
		"best", p.Stats.BestFitness,
		"mean", p.Stats.MeanFitness,
		"complexity", p.Stats.MeanComplexity,
		"species", p.Stats.SpeciesCount,
		"mode", mode)

	// Check fitness threshold termination
	if !p.Config.Neat.NoFitnessTermination && p.BestGenome.Fitness.PrimaryFitness >= p.Config.Neat.FitnessThreshold {
		return p.BestGenome, nil
	}

	// 4. Reproduce
	nextGen := p.Generation + 1
	p.Ledger.Reset(nextGen)
	next, err := p.Reproduction.Reproduce(ctx, p.Species, p.Config.Neat.PopSize, nextGen, mode, p.Ledger, p.rng)
	if err != nil {
		return p.BestGenome, err
	}

	// 5. Speciate offspring into the species of the surviving elites
	survivors := make(map[*Genome]bool, len(next))
	for _, g := range next {
		survivors[g] = true
	}
	var offspring []*Genome
	for _, g := range next {
		if g.BirthGeneration == nextGen {
			offspring = append(offspring, g)
		}
	}
	for _, sp := range p.Species {
		kept := sp.Members[:0]
		for _, g := range sp.Members {
			if survivors[g] {
				kept = append(kept, g)
			}
		}
		sp.Members = kept
	}
	if len(offspring) > 0 {
		species, err := p.Speciation.SpeciateAdd(offspring, p.Species, p.rng)
		if err != nil {
			return p.BestGenome, fmt.Errorf("speciation failed in generation %d: %w", nextGen, err)
		}
		if removed := len(p.Species) - len(species); removed > 0 {
			logger.Debug("species removed", "count", removed)
		}
		p.Species = species
	} else {
		p.Species = nonEmptySpecies(p.Species)
	}

	p.Genomes = next
	p.Generation = nextGen
	p.Seqs.Generation.Reset(nextGen)
	logger.Debug("generation finished", "generation", p.Generation-1, "elapsed", time.Since(genStartTime))
	return nil, nil // No winner found this generation
}

// evaluate runs eval over every genome with bounded concurrency. Genomes whose evaluation
// fails get zero fitness and are counted; only context cancellation aborts the generation.
func (p *Population) evaluate(ctx context.Context, eval FitnessFunc) (int, error) {
	logger := loggerOrDefault(p.Logger)
	var failures atomic.Int64

	workers := p.Config.Neat.EvaluationParallelism
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ep := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(workers)
	for _, g := range p.Genomes {
		g := g
		ep.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := eval(ctx, g)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failures.Add(1)
				logger.Warn("genome evaluation failed", "id", g.ID, "err", err)
				info = FitnessInfo{}
			}
			g.Fitness = info
			return nil
		})
	}
	if err := ep.Wait(); err != nil {
		return int(failures.Load()), err
	}
	return int(failures.Load()), nil
}

// updateSpeciesFitness records per-species best fitness and improvement.
func (p *Population) updateSpeciesFitness() {
	for _, sp := range p.Species {
		if best := sp.Best(); best != nil && best.Fitness.PrimaryFitness > sp.BestFitness {
			sp.BestFitness = best.Fitness.PrimaryFitness
			sp.LastImproved = p.Generation
		}
	}
}

func (p *Population) computeStats(mode ComplexityRegulationMode) RunStats {
	fitnesses := make([]float64, len(p.Genomes))
	for i, g := range p.Genomes {
		fitnesses[i] = g.Fitness.PrimaryFitness
	}
	return RunStats{
		Generation:     p.Generation,
		BestFitness:    MaxFloat(fitnesses),
		MeanFitness:    Mean(fitnesses),
		StdDevFitness:  Stdev(fitnesses),
		MeanComplexity: meanComplexity(p.Genomes),
		SpeciesCount:   len(p.Species),
		Mode:           mode,
	}
}

func nonEmptySpecies(species []*Species) []*Species {
	out := species[:0]
	for _, sp := range species {
		if len(sp.Members) > 0 {
			out = append(out, sp)
		}
	}
	return out
}

func meanComplexity(genomes []*Genome) float64 {
	c := make([]float64, len(genomes))
	for i, g := range genomes {
		c[i] = g.Complexity()
	}
	return Mean(c)
}

// findBestGenome finds the genome with the highest fitness in the current population.
func (p *Population) findBestGenome() *Genome {
	var best *Genome = nil
	maxFitness := math.Inf(-1)

	for _, g := range p.Genomes {
		if best == nil || g.Fitness.PrimaryFitness > maxFitness {
			maxFitness = g.Fitness.PrimaryFitness
			best = g
		}
	}
	return best
}

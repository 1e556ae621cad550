package neat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
)

// DefaultSecondaryParentGeneProbability is the chance that the genes only the secondary
// parent carries are inherited.
const DefaultSecondaryParentGeneProbability = 0.1

// GeneIndexPair locates one connection in two aligned gene lists. An index of -1 means the
// list does not hold the connection.
type GeneIndexPair struct {
	Index1 int
	Index2 int
}

// Matched reports whether both lists hold the connection.
func (p GeneIndexPair) Matched() bool {
	return p.Index1 >= 0 && p.Index2 >= 0
}

// AlignGenes merges two sorted gene lists by connection, in ascending order.
func AlignGenes(a, b *ConnectionGenes) []GeneIndexPair {
	pairs := make([]GeneIndexPair, 0, max(a.Len(), b.Len()))
	mergeGenes(a, b, func(i1, i2 int) bool {
		pairs = append(pairs, GeneIndexPair{Index1: i1, Index2: i2})
		return true
	})
	return pairs
}

// UniformCrossover recombines two parents. Matched genes come from either parent with equal
// probability. Genes only the primary parent carries are always inherited. Genes only the
// secondary parent carries are inherited all together or not at all, with probability
// SecondaryParentGeneProbability.
type UniformCrossover struct {
	IsAcyclic                      bool
	SecondaryParentGeneProbability float64
}

// NewUniformCrossover creates a crossover operator with default settings.
func NewUniformCrossover(isAcyclic bool) *UniformCrossover {
	return &UniformCrossover{
		IsAcyclic:                      isAcyclic,
		SecondaryParentGeneProbability: DefaultSecondaryParentGeneProbability,
	}
}

// CreateGenome builds the child of primary and secondary. For acyclic genomes, secondary
// genes that would close a cycle with the genes already inherited are dropped.
func (c *UniformCrossover) CreateGenome(primary, secondary *Genome, id, generation int, rng *rand.Rand) (*Genome, error) {
	if primary.Meta != secondary.Meta && *primary.Meta != *secondary.Meta {
		return nil, fmt.Errorf("%w: cannot cross genomes %d and %d with different meta genomes", ErrInvalidGenome, primary.ID, secondary.ID)
	}
	a, b := primary.Connections, secondary.Connections
	pairs := AlignGenes(a, b)
	includeSecondary := rng.Float64() < c.SecondaryParentGeneProbability

	var graph *connectivityGraph
	if c.IsAcyclic && includeSecondary {
		// Matched and primary-only genes are a subset of the acyclic primary, so only
		// secondary-only genes can introduce a cycle.
		graph = newConnectivityGraph(nil)
		for _, p := range pairs {
			if p.Index1 >= 0 {
				graph.addEdge(a.Genes[p.Index1].SourceID, a.Genes[p.Index1].TargetID)
			}
		}
	}

	genes := make([]ConnectionGene, 0, len(pairs))
	for _, p := range pairs {
		switch {
		case p.Matched():
			if rng.Float64() < 0.5 {
				genes = append(genes, a.Genes[p.Index1])
			} else {
				genes = append(genes, b.Genes[p.Index2])
			}
		case p.Index1 >= 0:
			genes = append(genes, a.Genes[p.Index1])
		case includeSecondary:
			gene := b.Genes[p.Index2]
			if graph != nil {
				if graph.wouldCreateCycle(gene.SourceID, gene.TargetID) {
					continue
				}
				graph.addEdge(gene.SourceID, gene.TargetID)
			}
			genes = append(genes, gene)
		}
	}

	// Genes are produced in merge order, so they are already sorted.
	child, err := NewGenome(primary.Meta, id, generation, &ConnectionGenes{Genes: genes})
	if err != nil {
		return nil, fmt.Errorf("failed to cross genomes %d and %d: %w", primary.ID, secondary.ID, err)
	}
	return child, nil
}

// SexualReproduction creates offspring by crossover, assigning ids from the run sequences.
type SexualReproduction struct {
	Crossover *UniformCrossover
	Seqs      *IDSequences
	Metrics   *Metrics
	Logger    *slog.Logger
}

// NewSexualReproduction creates a sexual reproduction operator for meta.
func NewSexualReproduction(meta *MetaNeatGenome, seqs *IDSequences) *SexualReproduction {
	return &SexualReproduction{
		Crossover: NewUniformCrossover(meta.IsAcyclic),
		Seqs:      seqs,
	}
}

// CreateOffspring returns the child of two parents born in generation.
func (r *SexualReproduction) CreateOffspring(primary, secondary *Genome, generation int, rng *rand.Rand) (*Genome, error) {
	return r.buildOffspring(primary, secondary, r.Seqs.Genome.Next(), generation, rng)
}

// buildOffspring crosses the parents into a child with the given id. Crossover never
// consults the ledger, so it can run concurrently.
func (r *SexualReproduction) buildOffspring(primary, secondary *Genome, id, generation int, rng *rand.Rand) (*Genome, error) {
	child, err := r.Crossover.CreateGenome(primary, secondary, id, generation, rng)
	if err != nil {
		return nil, err
	}
	r.Metrics.observeOffspring(MutationCrossover.String())
	loggerOrDefault(r.Logger).Log(context.Background(), LevelTrace, "offspring created",
		"kind", MutationCrossover, "parent1", primary.ID, "parent2", secondary.ID, "child", child.ID)
	return child, nil
}

package neat

import (
	"fmt"
	"math"
	"math/rand"
)

// NewInitialPopulation creates size genomes with no hidden nodes. Each genome holds a random
// subset of the possible input->output connections, sized by connectionsProportion (at least
// one connection). Every (input, output) pair has one innovation id shared by the whole
// population, so initial genomes align gene-for-gene.
func NewInitialPopulation(meta *MetaNeatGenome, size int, connectionsProportion float64, seqs *IDSequences, rng *rand.Rand) ([]*Genome, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: population size must be positive, got %d", ErrInvalidConfig, size)
	}
	if connectionsProportion <= 0 || connectionsProportion > 1 {
		return nil, fmt.Errorf("%w: initial connections proportion must be in (0,1], got %g", ErrInvalidConfig, connectionsProportion)
	}

	// Define the full set of candidate connections, in sorted order.
	candidates := make([]ConnectionGene, 0, meta.InputCount*meta.OutputCount)
	for src := 0; src < meta.InputCount; src++ {
		for o := 0; o < meta.OutputCount; o++ {
			candidates = append(candidates, ConnectionGene{
				ID:       seqs.Innovation.Next(),
				SourceID: src,
				TargetID: meta.InputCount + o,
			})
		}
	}
	count := int(math.Max(1, math.Round(connectionsProportion*float64(len(candidates)))))

	generation := seqs.Generation.Peek()
	genomes := make([]*Genome, 0, size)
	for i := 0; i < size; i++ {
		idxs := rng.Perm(len(candidates))[:count]
		genes := make([]ConnectionGene, count)
		for j, idx := range idxs {
			genes[j] = candidates[idx]
			genes[j].Weight = sampleWeight(rng, meta.ConnectionWeightScale)
		}
		g, err := NewGenome(meta, seqs.Genome.Next(), generation, NewConnectionGenes(genes))
		if err != nil {
			return nil, fmt.Errorf("failed to create initial genome: %w", err)
		}
		genomes = append(genomes, g)
	}
	return genomes, nil
}

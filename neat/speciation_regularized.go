package neat

import (
	"math/rand"
)

// DefaultRegularizationConstant weights the species-size penalty of the regularized strategy.
const DefaultRegularizationConstant = 0.1

// RegularizedGeneticKMeansSpeciation is GeneticKMeansSpeciation with a penalty that pushes
// genomes away from large species:
//
//	d'(g, s) = d(g, s) + (|s| / N) * maxCentroidDistance * RegularizationConstant
//
// Species sizes are frozen for each assignment step. When clustering leaves species empty,
// the largest species is split by moving its member furthest from the centroid into the
// empty slot, for as long as that member is at a non-zero distance. Species that stay empty
// are removed.
type RegularizedGeneticKMeansSpeciation struct {
	GeneticKMeansSpeciation
	RegularizationConstant float64
}

// NewRegularizedGeneticKMeansSpeciation creates a strategy with default settings.
func NewRegularizedGeneticKMeansSpeciation(metric DistanceMetric) *RegularizedGeneticKMeansSpeciation {
	return &RegularizedGeneticKMeansSpeciation{
		GeneticKMeansSpeciation: GeneticKMeansSpeciation{Metric: metric, MaxIterations: DefaultMaxKMeansIterations},
		RegularizationConstant:  DefaultRegularizationConstant,
	}
}

// SpeciateAll clusters genomes into at most speciesCount species.
func (s *RegularizedGeneticKMeansSpeciation) SpeciateAll(genomes []*Genome, speciesCount int, rng *rand.Rand) ([]*Species, error) {
	run, err := s.newRun(genomes, speciesCount)
	if err != nil {
		return nil, err
	}
	run.seedSpecies(genomes, speciesCount, rng)
	run.assignAll(genomes, nil)

	reg := s.regularizer(run, float64(len(genomes)))
	run.iterate(reg)
	s.populateEmptySpecies(run)
	return run.complete(), nil
}

// SpeciateAdd adds genomes to species and re-runs the regularized clustering.
func (s *RegularizedGeneticKMeansSpeciation) SpeciateAdd(genomes []*Genome, species []*Species, rng *rand.Rand) ([]*Species, error) {
	run, err := s.resumeRun(genomes, species)
	if err != nil {
		return nil, err
	}
	reg := s.regularizer(run, float64(len(run.order)))
	run.assignAll(genomes, reg())
	run.iterate(reg)
	s.populateEmptySpecies(run)
	return run.complete(), nil
}

// regularizer returns a factory for the penalised distance term. The maximum inter-centroid
// distance is measured once, when the factory is built.
func (s *RegularizedGeneticKMeansSpeciation) regularizer(run *kmeansRun, populationCount float64) func() distanceTerm {
	maxDist := 0.0
	for i := 0; i < len(run.species)-1; i++ {
		for j := i + 1; j < len(run.species); j++ {
			if d := run.cache.Distance(run.species[i].Centroid, run.species[j].Centroid); d > maxDist {
				maxDist = d
			}
		}
	}
	return func() distanceTerm {
		penalty := make([]float64, len(run.species))
		if populationCount > 0 {
			for i, sp := range run.species {
				penalty[i] = float64(len(sp.Members)) / populationCount * maxDist * s.RegularizationConstant
			}
		}
		return func(g *Genome, speciesIdx int) float64 {
			return run.baseDistance(g, speciesIdx) + penalty[speciesIdx]
		}
	}
}

// populateEmptySpecies fills empty species by splitting the largest species.
func (s *RegularizedGeneticKMeansSpeciation) populateEmptySpecies(run *kmeansRun) {
	for emptyIdx, empty := range run.species {
		if len(empty.Members) > 0 {
			continue
		}

		donorIdx := -1
		for i, sp := range run.species {
			if len(sp.Members) > 1 && (donorIdx < 0 || len(sp.Members) > len(run.species[donorIdx].Members)) {
				donorIdx = i
			}
		}
		if donorIdx < 0 {
			return
		}
		donor := run.species[donorIdx]

		var furthest *Genome
		maxDist := 0.0
		for _, g := range donor.Members {
			if d := run.cache.Distance(g, donor.Centroid); d > maxDist {
				furthest, maxDist = g, d
			}
		}
		if furthest == nil {
			// Every member sits on the centroid; nothing can be split off.
			return
		}

		run.assign[furthest] = emptyIdx
		empty.Centroid = furthest
		run.rebuildMembers()
		changed := make([]bool, len(run.species))
		changed[donorIdx] = true
		run.recalcCentroids(changed)
	}
}

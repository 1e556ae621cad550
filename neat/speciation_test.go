package neat

import (
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strategies() map[string]SpeciationStrategy {
	return map[string]SpeciationStrategy{
		"kmeans":      NewGeneticKMeansSpeciation(NewManhattanDistanceMetric()),
		"regularized": NewRegularizedGeneticKMeansSpeciation(NewManhattanDistanceMetric()),
	}
}

// twoClusters returns n genomes carrying weight +4 on 0->2 followed by n carrying -4.
func twoClusters(t *testing.T, n int) []*Genome {
	t.Helper()
	meta := testMeta(t, 2, 1, true)
	genomes := make([]*Genome, 0, 2*n)
	for i := 0; i < n; i++ {
		genomes = append(genomes, genomeOf(t, meta, i, gene(0, 0, 2, 4)))
	}
	for i := 0; i < n; i++ {
		genomes = append(genomes, genomeOf(t, meta, n+i, gene(0, 0, 2, -4)))
	}
	return genomes
}

func assertPartition(t *testing.T, genomes []*Genome, species []*Species) {
	t.Helper()
	seen := make(map[*Genome]int)
	for _, sp := range species {
		assert.NotEmpty(t, sp.Members, "species %d is empty", sp.ID)
		assert.NotNil(t, sp.Centroid)
		assert.Contains(t, sp.Members, sp.Centroid, "centroid is a member")
		for _, g := range sp.Members {
			seen[g]++
		}
	}
	assert.Len(t, seen, len(genomes))
	for _, g := range genomes {
		assert.Equal(t, 1, seen[g], "genome %d", g.ID)
	}
}

func TestSpeciateAll_IdenticalGenomesFormOneSpecies(t *testing.T) {
	meta := testMeta(t, 2, 1, true)
	genomes := make([]*Genome, 20)
	for i := range genomes {
		genomes[i] = genomeOf(t, meta, i, gene(0, 0, 2, 1.5), gene(1, 1, 2, -0.5))
	}
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			species, err := s.SpeciateAll(genomes, 5, rand.New(rand.NewSource(1)))
			require.NoError(t, err)
			require.Len(t, species, 1)
			assert.Len(t, species[0].Members, 20)
		})
	}
}

func TestSpeciateAll_SeparatesClusters(t *testing.T) {
	genomes := twoClusters(t, 10)
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			species, err := s.SpeciateAll(genomes, 2, rand.New(rand.NewSource(7)))
			require.NoError(t, err)
			require.Len(t, species, 2)
			assertPartition(t, genomes, species)
			for _, sp := range species {
				require.Len(t, sp.Members, 10)
				w := sp.Members[0].Connections.Genes[0].Weight
				for _, g := range sp.Members {
					assert.Equal(t, w, g.Connections.Genes[0].Weight)
				}
			}
		})
	}
}

func TestSpeciateAll_RandomPopulationIsPartitioned(t *testing.T) {
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(3))
			genomes := randomCyclicGenomes(t, rng, 60)
			species, err := s.SpeciateAll(genomes, 6, rng)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(species), 6)
			assert.NotEmpty(t, species)
			assertPartition(t, genomes, species)
		})
	}
}

func TestSpeciateAll_MoreSpeciesThanGenomes(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	genomes := randomCyclicGenomes(t, rng, 3)
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			species, err := s.SpeciateAll(genomes, 10, rand.New(rand.NewSource(5)))
			require.NoError(t, err)
			assert.LessOrEqual(t, len(species), 3)
			assertPartition(t, genomes, species)
		})
	}
}

func TestSpeciateAll_InvalidRequests(t *testing.T) {
	genomes := twoClusters(t, 2)
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			_, err := s.SpeciateAll(nil, 3, rng)
			assert.ErrorIs(t, err, ErrInvalidSpeciation)
			_, err = s.SpeciateAll(genomes, 0, rng)
			assert.ErrorIs(t, err, ErrInvalidSpeciation)
			_, err = s.SpeciateAdd(genomes, nil, rng)
			assert.ErrorIs(t, err, ErrInvalidSpeciation)
		})
	}
}

func TestSpeciateAdd_JoinsNearestSpecies(t *testing.T) {
	meta := testMeta(t, 2, 1, true)
	genomes := twoClusters(t, 10)
	for name, s := range strategies() {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(8))
			species, err := s.SpeciateAll(genomes, 2, rng)
			require.NoError(t, err)
			require.Len(t, species, 2)

			added := []*Genome{
				genomeOf(t, meta, 100, gene(0, 0, 2, 3.9)),
				genomeOf(t, meta, 101, gene(0, 0, 2, 4.1)),
			}
			species, err = s.SpeciateAdd(added, species, rng)
			require.NoError(t, err)
			require.Len(t, species, 2)
			assertPartition(t, append(append([]*Genome(nil), genomes...), added...), species)

			for _, sp := range species {
				if sp.Centroid.Connections.Genes[0].Weight > 0 {
					assert.Len(t, sp.Members, 12)
					assert.Contains(t, sp.Members, added[0])
					assert.Contains(t, sp.Members, added[1])
				} else {
					assert.Len(t, sp.Members, 10)
				}
			}
		})
	}
}

func TestSpeciateAll_ParallelismDoesNotChangeResult(t *testing.T) {
	genomes := randomCyclicGenomes(t, rand.New(rand.NewSource(9)), 80)

	run := func(parallelism int) [][]int {
		s := NewGeneticKMeansSpeciation(NewEuclideanDistanceMetric())
		s.Parallelism = parallelism
		species, err := s.SpeciateAll(genomes, 5, rand.New(rand.NewSource(10)))
		require.NoError(t, err)
		return speciesMemberIDs(species)
	}
	assert.Equal(t, run(1), run(8))
}

func TestRegularizedSpeciation_FillsEmptySpecies(t *testing.T) {
	s := NewRegularizedGeneticKMeansSpeciation(NewManhattanDistanceMetric())
	meta := testMeta(t, 2, 1, true)
	donor := NewSpecies(0, nil, 0)
	empty := NewSpecies(1, nil, 0)
	for i, w := range []float64{0, 0.1, 0.2, 3} {
		donor.Members = append(donor.Members, genomeOf(t, meta, i, gene(0, 0, 2, w)))
	}
	donor.Centroid = donor.Members[1]
	empty.Centroid = donor.Members[0]

	run := &kmeansRun{
		strategy: &s.GeneticKMeansSpeciation,
		cache:    NewGenomeDistanceCache(s.Metric),
		species:  []*Species{donor, empty},
		assign:   make(map[*Genome]int),
	}
	for _, g := range donor.Members {
		run.order = append(run.order, g)
		run.assign[g] = 0
	}
	s.populateEmptySpecies(run)

	require.Len(t, empty.Members, 1)
	assert.Equal(t, 3.0, empty.Members[0].Connections.Genes[0].Weight, "furthest member moves")
	assert.Same(t, empty.Members[0], empty.Centroid)
	assert.Len(t, donor.Members, 3)
}

func TestSpeciation_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := NewGeneticKMeansSpeciation(NewManhattanDistanceMetric())
	s.Metrics = m

	_, err := s.SpeciateAll(twoClusters(t, 5), 2, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SpeciesCount))
	assert.Zero(t, testutil.ToFloat64(m.SpeciationIters), "no genome moves after seeding")
}

package neat

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thresholdMetric interface {
	DistanceMetric
	testDistance(a, b *ConnectionGenes, threshold float64) (bool, int)
}

func distanceMetrics() map[string]thresholdMetric {
	return map[string]thresholdMetric{
		"manhattan": NewManhattanDistanceMetric(),
		"euclidean": NewEuclideanDistanceMetric(),
	}
}

func TestDistance_KnownValues(t *testing.T) {
	a := NewConnectionGenes([]ConnectionGene{gene(0, 0, 2, 1), gene(1, 1, 2, 2)})
	b := NewConnectionGenes([]ConnectionGene{gene(0, 0, 2, 3), gene(2, 1, 3, -1)})

	// matched |1-3| = 2, a-only |2| = 2, b-only |-1| = 1
	assert.InDelta(t, 5.0, NewManhattanDistanceMetric().Distance(a, b), 1e-12)
	assert.InDelta(t, 3.0, NewEuclideanDistanceMetric().Distance(a, b), 1e-12)

	withConstant := &ManhattanDistanceMetric{MatchCoeff: 1, MismatchCoeff: 1, MismatchConstant: 0.5}
	assert.InDelta(t, 6.0, withConstant.Distance(a, b), 1e-12)

	scaled := &EuclideanDistanceMetric{MatchCoeff: 0.5, MismatchCoeff: 0, MismatchConstant: 2}
	assert.InDelta(t, 1.0+4.0, scaled.Distance(a, b), 1e-12)
}

func TestDistance_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for name, m := range distanceMetrics() {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				a := randomGenes(rng, 3, 9, rng.Intn(15))
				b := randomGenes(rng, 3, 9, rng.Intn(15))

				assert.Zero(t, m.Distance(a, a))
				dab, dba := m.Distance(a, b), m.Distance(b, a)
				assert.InDelta(t, dab, dba, 1e-9)
				assert.GreaterOrEqual(t, dab, 0.0)

				for _, threshold := range []float64{0.5, dab * 0.5, dab, dab + 1e-6, dab * 2, 100} {
					assert.Equal(t, dab < threshold, m.TestDistance(a, b, threshold),
						"threshold %g distance %g", threshold, dab)
				}
			}
		})
	}
}

func TestTestDistance_AtExactDistance(t *testing.T) {
	a := NewConnectionGenes([]ConnectionGene{gene(0, 0, 3, 0.1), gene(1, 0, 4, 0.2), gene(2, 0, 5, 0.3)})
	empty := NewConnectionGenes(nil)
	for name, m := range distanceMetrics() {
		t.Run(name, func(t *testing.T) {
			d := m.Distance(a, empty)
			assert.False(t, m.TestDistance(a, empty, d))
			assert.False(t, m.TestDistance(empty, a, d))
			assert.True(t, m.TestDistance(a, empty, math.Nextafter(d, math.Inf(1))))
		})
	}

	rng := rand.New(rand.NewSource(7))
	for name, m := range distanceMetrics() {
		t.Run(name+"/random", func(t *testing.T) {
			for i := 0; i < 2000; i++ {
				x := randomGenes(rng, 3, 9, rng.Intn(20))
				y := randomGenes(rng, 3, 9, rng.Intn(20))
				d := m.Distance(x, y)
				require.False(t, m.TestDistance(x, y, d), "distance %g", d)
			}
		})
	}
}

func TestTestDistance_StopsEarly(t *testing.T) {
	var shared []ConnectionGene
	for i := 0; i < 20; i++ {
		shared = append(shared, gene(i, 0, 2+i, 1))
	}
	a := NewConnectionGenes(append(append([]ConnectionGene(nil), shared...), gene(100, 30, 31, 4)))
	b := NewConnectionGenes(append([]ConnectionGene(nil), shared...))
	total := a.Len()

	for name, m := range distanceMetrics() {
		t.Run(name, func(t *testing.T) {
			ok, visited := m.testDistance(a, b, 1)
			assert.False(t, ok)
			assert.Less(t, visited, total)

			ok, visited = m.testDistance(a, b, 10)
			assert.True(t, ok)
			assert.Equal(t, total, visited)
		})
	}
}

func TestTestDistance_EmptyGenomes(t *testing.T) {
	empty := &ConnectionGenes{}
	for name, m := range distanceMetrics() {
		t.Run(name, func(t *testing.T) {
			assert.Zero(t, m.Distance(empty, empty))
			assert.True(t, m.TestDistance(empty, empty, 1e-9))
			assert.False(t, m.TestDistance(empty, empty, 0), "0 < 0 is false")
		})
	}
}

func TestNewDistanceMetric(t *testing.T) {
	m, err := NewDistanceMetric("Euclidean", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, &EuclideanDistanceMetric{MatchCoeff: 1, MismatchCoeff: 2, MismatchConstant: 3}, m)

	m, err = NewDistanceMetric("", 1, 1, 0)
	require.NoError(t, err)
	assert.IsType(t, &ManhattanDistanceMetric{}, m)

	_, err = NewDistanceMetric("cosine", 1, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFindMedoid(t *testing.T) {
	meta := testMeta(t, 2, 1, true)
	var genomes []*Genome
	for i, w := range []float64{0, 1, 5, 1.5} {
		genomes = append(genomes, genomeOf(t, meta, i, gene(0, 0, 2, w)))
	}

	m, idx := FindMedoid(NewManhattanDistanceMetric(), genomes)
	assert.Equal(t, 1, idx)
	assert.Same(t, genomes[1], m)

	m, idx = FindMedoid(NewManhattanDistanceMetric(), genomes[2:])
	assert.Equal(t, 0, idx, "two genomes tie, lowest index wins")
	assert.Same(t, genomes[2], m)

	m, idx = FindMedoid(NewManhattanDistanceMetric(), nil)
	assert.Nil(t, m)
	assert.Equal(t, -1, idx)
}

func TestGenomeDistanceCache(t *testing.T) {
	meta := testMeta(t, 2, 1, true)
	a := genomeOf(t, meta, 1, gene(0, 0, 2, 1))
	b := genomeOf(t, meta, 2, gene(0, 0, 2, -2))
	cache := NewGenomeDistanceCache(NewManhattanDistanceMetric())

	assert.InDelta(t, 3.0, cache.Distance(a, b), 1e-12)
	assert.InDelta(t, 3.0, cache.Distance(b, a), 1e-12)
	assert.Zero(t, cache.Distance(a, a))
	hits, misses := cache.Stats()
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, cache.Len())
	assert.False(t, math.IsNaN(cache.Distance(a, b)))
}

func TestGenomeDistanceCache_Concurrent(t *testing.T) {
	meta := testMeta(t, 2, 1, true)
	genomes := []*Genome{
		genomeOf(t, meta, 1, gene(0, 0, 2, 1)),
		genomeOf(t, meta, 2, gene(0, 0, 2, -2)),
		genomeOf(t, meta, 3, gene(1, 1, 2, 0.5)),
	}
	cache := NewGenomeDistanceCache(NewManhattanDistanceMetric())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				cache.Distance(genomes[i%3], genomes[(i+1)%3])
				cache.Stats()
			}
		}()
	}
	wg.Wait()

	hits, misses := cache.Stats()
	assert.Equal(t, 8*50, hits+misses)
	assert.GreaterOrEqual(t, misses, 3)
	assert.Equal(t, 3, cache.Len())
}

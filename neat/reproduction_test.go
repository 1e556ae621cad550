package neat

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestComputeTargetSizes(t *testing.T) {
	tests := []struct {
		name    string
		fitness []float64
		popSize int
		bestIdx int
		want    []int
	}{
		{"proportional", []float64{3, 1}, 8, 0, []int{6, 2}},
		{"largest remainder", []float64{1, 1, 1}, 10, 0, []int{4, 3, 3}},
		{"all zero shares equally", []float64{0, 0}, 6, 1, []int{3, 3}},
		{"negative counts as zero", []float64{-5, 5}, 4, 1, []int{1, 3}},
		{"best species keeps a slot", []float64{0, 10}, 4, 0, []int{1, 3}},
		{"fewer slots than species", []float64{1, 1, 1}, 2, 2, []int{0, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeTargetSizes(tt.fitness, tt.popSize, tt.bestIdx)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.popSize, sumInts(got))
		})
	}
}

func TestComputeTargetSizes_RandomSumsToPopSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(12)
		fitness := make([]float64, n)
		for j := range fitness {
			fitness[j] = rng.Float64()*10 - 2
		}
		popSize := 1 + rng.Intn(200)
		best := rng.Intn(n)
		sizes := computeTargetSizes(fitness, popSize, best)
		require.Equal(t, popSize, sumInts(sizes))
		assert.Positive(t, sizes[best])
		if popSize >= n {
			for _, s := range sizes {
				assert.Positive(t, s)
			}
		}
	}
}

func TestAllocateSpecies(t *testing.T) {
	cfg := &DefaultConfig().Reproduction
	rng := rand.New(rand.NewSource(2))

	a := allocateSpecies(10, 10, false, cfg, Complexifying, rng)
	assert.Equal(t, SpeciesAllocation{TargetSize: 10, EliteCount: 2, SelectionCount: 2, AsexualCount: 4, SexualCount: 4}, a)
	assert.Equal(t, 8, a.OffspringCount())

	a = allocateSpecies(10, 10, false, cfg, Simplifying, rng)
	assert.Zero(t, a.SexualCount)
	assert.Equal(t, 8, a.AsexualCount)

	a = allocateSpecies(1, 5, false, cfg, Complexifying, rng)
	assert.Zero(t, a.SexualCount, "a single parent cannot mate")
	assert.Equal(t, 1, a.SelectionCount)
	assert.Equal(t, 5, a.EliteCount+a.OffspringCount())

	noElites := *cfg
	noElites.ElitismProportion = 0
	a = allocateSpecies(10, 3, true, &noElites, Complexifying, rng)
	assert.Equal(t, 1, a.EliteCount, "the species holding the best genome keeps it")

	assert.Equal(t, SpeciesAllocation{}, allocateSpecies(10, 0, true, cfg, Complexifying, rng))
}

func TestStochasticRound(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	assert.Equal(t, 4, stochasticRound(4, rng))
	total := 0
	for i := 0; i < 10000; i++ {
		v := stochasticRound(2.25, rng)
		require.True(t, v == 2 || v == 3)
		total += v
	}
	assert.InDelta(t, 2.25, float64(total)/10000, 0.05)
}

func TestRankByFitness(t *testing.T) {
	meta := testMeta(t, 2, 1, true)
	var members []*Genome
	for i, f := range []float64{1, 3, 3, 2} {
		g := genomeOf(t, meta, i)
		g.SetFitness(f)
		members = append(members, g)
	}
	ranked := rankByFitness(members)
	ids := []int{ranked[0].ID, ranked[1].ID, ranked[2].ID, ranked[3].ID}
	assert.Equal(t, []int{1, 2, 3, 0}, ids)
	assert.Equal(t, 0, members[0].ID, "input order is kept")
}

type reproductionFixture struct {
	cfg     *Config
	seqs    *IDSequences
	species []*Species
	best    *Genome
}

func newReproductionFixture(t *testing.T) *reproductionFixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Genome.NumInputs, cfg.Genome.NumOutputs = 3, 2
	cfg.Genome.InitialConnectionsProportion = 1
	cfg.Reproduction.Parallelism = 1
	meta, err := cfg.Meta()
	require.NoError(t, err)

	seqs := NewIDSequences(meta)
	genomes, err := NewInitialPopulation(meta, 20, 1, seqs, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	for i, g := range genomes {
		g.SetFitness(float64(i))
	}
	a, b := NewSpecies(0, genomes[0], 0), NewSpecies(1, genomes[10], 0)
	a.Members, b.Members = genomes[:10], genomes[10:]
	return &reproductionFixture{cfg: cfg, seqs: seqs, species: []*Species{a, b}, best: genomes[19]}
}

func (f *reproductionFixture) reproduction(t *testing.T) *Reproduction {
	t.Helper()
	meta, err := f.cfg.Meta()
	require.NoError(t, err)
	asexual, err := NewAsexualReproduction(meta, f.cfg.Mutation, f.seqs)
	require.NoError(t, err)
	return NewReproduction(&f.cfg.Reproduction, asexual, NewSexualReproduction(meta, f.seqs))
}

func TestReproduce(t *testing.T) {
	f := newReproductionFixture(t)
	r := f.reproduction(t)

	next, err := r.Reproduce(context.Background(), f.species, 20, 1, Complexifying, NewInnovationLedger(1, 0), rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	require.Len(t, next, 20)
	assert.Contains(t, next, f.best, "the best genome survives as an elite")

	ids := make(map[int]bool)
	offspring := 0
	for _, g := range next {
		assert.False(t, ids[g.ID], "duplicate genome id %d", g.ID)
		ids[g.ID] = true
		parents, ok := r.Ancestors[g.ID]
		require.True(t, ok)
		if g.BirthGeneration == 1 {
			offspring++
			assert.NotContains(t, parents, g.ID)
		} else {
			assert.Equal(t, []int{g.ID}, parents)
		}
	}
	assert.Positive(t, offspring)
}

func TestReproduce_SimplifyingIsAsexual(t *testing.T) {
	f := newReproductionFixture(t)
	r := f.reproduction(t)

	next, err := r.Reproduce(context.Background(), f.species, 20, 1, Simplifying, NewInnovationLedger(1, 0), rand.New(rand.NewSource(6)))
	require.NoError(t, err)
	require.Len(t, next, 20)
	for _, g := range next {
		assert.Len(t, r.Ancestors[g.ID], 1)
		assert.Empty(t, g.HiddenNodeIDs, "no structure is added while simplifying")
	}
}

func TestReproduce_DeterministicWithOneWorker(t *testing.T) {
	run := func() [][]ConnectionGene {
		f := newReproductionFixture(t)
		next, err := f.reproduction(t).Reproduce(context.Background(), f.species, 20, 1, Complexifying,
			NewInnovationLedger(1, 0), rand.New(rand.NewSource(7)))
		require.NoError(t, err)
		out := make([][]ConnectionGene, len(next))
		for i, g := range next {
			out[i] = g.Connections.Genes
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestReproduce_DeterministicAtAnyParallelism(t *testing.T) {
	type child struct {
		ID      int
		Genes   []ConnectionGene
		Parents []int
	}
	run := func(parallelism int) []child {
		f := newReproductionFixture(t)
		f.cfg.Reproduction.Parallelism = parallelism
		f.cfg.Mutation = AsexualSettings{
			ConnectionWeightMutationProbability: 0.4,
			AddNodeMutationProbability:          0.3,
			AddConnectionMutationProbability:    0.2,
			DeleteConnectionMutationProbability: 0.1,
		}
		r := f.reproduction(t)
		next, err := r.Reproduce(context.Background(), f.species, 20, 1, Complexifying,
			NewInnovationLedger(1, 0), rand.New(rand.NewSource(10)))
		require.NoError(t, err)
		out := make([]child, len(next))
		for i, g := range next {
			out[i] = child{ID: g.ID, Genes: g.Connections.Genes, Parents: r.Ancestors[g.ID]}
		}
		return out
	}
	want := run(1)
	for _, parallelism := range []int{2, 8, 0} {
		assert.Equal(t, want, run(parallelism), "parallelism %d", parallelism)
	}
}

func TestReproduce_Errors(t *testing.T) {
	f := newReproductionFixture(t)
	r := f.reproduction(t)
	_, err := r.Reproduce(context.Background(), nil, 20, 1, Complexifying, NewInnovationLedger(1, 0), rand.New(rand.NewSource(8)))
	assert.ErrorIs(t, err, ErrInvalidSpeciation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Reproduce(ctx, f.species, 20, 1, Complexifying, NewInnovationLedger(1, 0), rand.New(rand.NewSource(9)))
	assert.ErrorIs(t, err, context.Canceled)
}

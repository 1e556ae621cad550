package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsetSelectors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	idxs := CardinalSubsetSelector{Count: 3}.SelectSubset(10, rng)
	require.Len(t, idxs, 3)
	assert.IsIncreasing(t, idxs)
	assert.Len(t, CardinalSubsetSelector{Count: 3}.SelectSubset(2, rng), 2)
	assert.Empty(t, CardinalSubsetSelector{Count: 3}.SelectSubset(0, rng))

	assert.Len(t, ProportionalSubsetSelector{Proportion: 0.25}.SelectSubset(20, rng), 5)
	assert.Len(t, ProportionalSubsetSelector{Proportion: 0.01}.SelectSubset(20, rng), 1, "at least one")
	assert.Empty(t, ProportionalSubsetSelector{Proportion: 0}.SelectSubset(20, rng))
}

func TestWeightMutators(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		w := UniformDelta{Range: 0.5}.Mutate(1, rng)
		assert.InDelta(t, 1, w, 0.5)
		r := ReInit{Scale: 2}.Mutate(100, rng)
		assert.InDelta(t, 0, r, 2)
	}
	assert.Equal(t, 3.0, GaussianDelta{StdDev: 0}.Mutate(3, rng))
}

func TestWeightMutationScheme_Apply(t *testing.T) {
	genes := NewConnectionGenes([]ConnectionGene{
		gene(0, 0, 3, 1), gene(1, 1, 3, 1), gene(2, 2, 3, 1), gene(3, 0, 4, 1),
	})
	scheme := &WeightMutationScheme{
		WeightScale: 1.5,
		Descriptors: []WeightMutationDescriptor{
			{Probability: 1, Selector: CardinalSubsetSelector{Count: 2}, Mutator: UniformDelta{Range: 10}},
		},
	}
	require.NoError(t, scheme.Validate())

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		child := scheme.Apply(genes, rng)
		require.Equal(t, genes.Len(), child.Len())
		changed := 0
		for j, g := range child.Genes {
			assert.Equal(t, genes.Genes[j].Connection(), g.Connection())
			assert.Equal(t, genes.Genes[j].ID, g.ID)
			assert.LessOrEqual(t, g.Weight, 1.5)
			assert.GreaterOrEqual(t, g.Weight, -1.5)
			if g.Weight != 1 {
				changed++
			}
		}
		assert.LessOrEqual(t, changed, 2)
	}
	for _, g := range genes.Genes {
		assert.Equal(t, 1.0, g.Weight, "input genes are untouched")
	}
}

func TestWeightMutationScheme_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeightMutationScheme(5).Validate())
	assert.ErrorIs(t, (&WeightMutationScheme{}).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, (&WeightMutationScheme{Descriptors: []WeightMutationDescriptor{
		{Probability: -1, Selector: CardinalSubsetSelector{1}, Mutator: ReInit{1}},
	}}).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, (&WeightMutationScheme{Descriptors: []WeightMutationDescriptor{
		{Probability: 1, Selector: CardinalSubsetSelector{1}},
	}}).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, (&WeightMutationScheme{Descriptors: []WeightMutationDescriptor{
		{Probability: 0, Selector: CardinalSubsetSelector{1}, Mutator: ReInit{1}},
	}}).Validate(), ErrInvalidConfig)
}

func TestSampleDiscrete(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	assert.Equal(t, -1, sampleDiscrete([]float64{0, 0}, rng))
	assert.Equal(t, -1, sampleDiscrete(nil, rng))
	for i := 0; i < 100; i++ {
		assert.Equal(t, 2, sampleDiscrete([]float64{0, 0, 0.3}, rng))
	}

	counts := make([]int, 2)
	for i := 0; i < 10000; i++ {
		counts[sampleDiscrete([]float64{1, 3}, rng)]++
	}
	assert.InDelta(t, 0.75, float64(counts[1])/10000, 0.03)
}

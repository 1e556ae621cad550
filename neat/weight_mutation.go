package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SubsetSelector picks which connection genes a weight mutation touches.
type SubsetSelector interface {
	// SelectSubset returns distinct indexes in [0, n), in ascending order.
	SelectSubset(n int, rng *rand.Rand) []int
}

// CardinalSubsetSelector selects a fixed number of genes, capped at the gene count.
type CardinalSubsetSelector struct {
	Count int
}

// SelectSubset implements SubsetSelector.
func (s CardinalSubsetSelector) SelectSubset(n int, rng *rand.Rand) []int {
	return sampleIndexes(n, min(s.Count, n), rng)
}

// ProportionalSubsetSelector selects a proportion of the genes, rounded to the nearest
// integer and at least one when the proportion is positive.
type ProportionalSubsetSelector struct {
	Proportion float64
}

// SelectSubset implements SubsetSelector.
func (s ProportionalSubsetSelector) SelectSubset(n int, rng *rand.Rand) []int {
	count := int(math.Round(s.Proportion * float64(n)))
	if count == 0 && s.Proportion > 0 && n > 0 {
		count = 1
	}
	return sampleIndexes(n, min(count, n), rng)
}

// sampleIndexes draws count distinct indexes from [0, n) without replacement.
func sampleIndexes(n, count int, rng *rand.Rand) []int {
	if count <= 0 || n <= 0 {
		return nil
	}
	idxs := rng.Perm(n)[:count]
	sort.Ints(idxs)
	return idxs
}

// WeightMutator produces a new weight from an existing one.
type WeightMutator interface {
	Mutate(w float64, rng *rand.Rand) float64
}

// GaussianDelta adds a zero-mean Gaussian perturbation.
type GaussianDelta struct {
	StdDev float64
}

// Mutate implements WeightMutator.
func (m GaussianDelta) Mutate(w float64, rng *rand.Rand) float64 {
	return w + rng.NormFloat64()*m.StdDev
}

// UniformDelta adds a perturbation drawn uniformly from [-Range, Range].
type UniformDelta struct {
	Range float64
}

// Mutate implements WeightMutator.
func (m UniformDelta) Mutate(w float64, rng *rand.Rand) float64 {
	return w + (rng.Float64()*2-1)*m.Range
}

// ReInit replaces the weight with a fresh draw from [-Scale, Scale].
type ReInit struct {
	Scale float64
}

// Mutate implements WeightMutator.
func (m ReInit) Mutate(_ float64, rng *rand.Rand) float64 {
	return sampleWeight(rng, m.Scale)
}

// WeightMutationDescriptor pairs a subset selection with a weight mutation.
type WeightMutationDescriptor struct {
	Probability float64
	Selector    SubsetSelector
	Mutator     WeightMutator
}

// WeightMutationScheme chooses one descriptor per weight mutation, by probability.
type WeightMutationScheme struct {
	Descriptors []WeightMutationDescriptor
	WeightScale float64 // Mutated weights are clamped to [-WeightScale, WeightScale]
}

// DefaultWeightMutationScheme returns the standard scheme: small Gaussian perturbations of
// one, two or three weights most of the time, with occasional re-initialisation.
func DefaultWeightMutationScheme(weightScale float64) *WeightMutationScheme {
	return &WeightMutationScheme{
		WeightScale: weightScale,
		Descriptors: []WeightMutationDescriptor{
			{0.5985, CardinalSubsetSelector{1}, GaussianDelta{0.01 * weightScale}},
			{0.2985, CardinalSubsetSelector{2}, GaussianDelta{0.01 * weightScale}},
			{0.0985, CardinalSubsetSelector{3}, GaussianDelta{0.01 * weightScale}},
			{0.015, CardinalSubsetSelector{1}, ReInit{weightScale}},
			{0.015, CardinalSubsetSelector{2}, ReInit{weightScale}},
			{0.015, CardinalSubsetSelector{3}, ReInit{weightScale}},
		},
	}
}

// Validate checks that the descriptor probabilities form a distribution.
func (s *WeightMutationScheme) Validate() error {
	if len(s.Descriptors) == 0 {
		return fmt.Errorf("%w: weight mutation scheme has no descriptors", ErrInvalidConfig)
	}
	total := 0.0
	for i, d := range s.Descriptors {
		if d.Probability < 0 {
			return fmt.Errorf("%w: weight mutation descriptor %d has negative probability", ErrInvalidConfig, i)
		}
		if d.Selector == nil || d.Mutator == nil {
			return fmt.Errorf("%w: weight mutation descriptor %d is incomplete", ErrInvalidConfig, i)
		}
		total += d.Probability
	}
	if total <= 0 {
		return fmt.Errorf("%w: weight mutation probabilities sum to zero", ErrInvalidConfig)
	}
	return nil
}

// Apply returns a mutated copy of genes. It never modifies genes.
func (s *WeightMutationScheme) Apply(genes *ConnectionGenes, rng *rand.Rand) *ConnectionGenes {
	probs := make([]float64, len(s.Descriptors))
	for i, d := range s.Descriptors {
		probs[i] = d.Probability
	}
	d := s.Descriptors[sampleDiscrete(probs, rng)]

	child := genes.Clone()
	for _, idx := range d.Selector.SelectSubset(child.Len(), rng) {
		child.Genes[idx].Weight = clampWeight(d.Mutator.Mutate(child.Genes[idx].Weight, rng), s.WeightScale)
	}
	return child
}

// sampleDiscrete draws an index with probability proportional to probs[i].
// Probabilities need not sum to one. It returns -1 when they sum to zero.
func sampleDiscrete(probs []float64, rng *rand.Rand) int {
	total := 0.0
	for _, p := range probs {
		total += p
	}
	if total <= 0 {
		return -1
	}
	x := rng.Float64() * total
	last := -1
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		last = i
		x -= p
		if x < 0 {
			return i
		}
	}
	return last
}

package neat

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
)

// SpeciesAllocation is the reproduction plan of one species for the next generation.
type SpeciesAllocation struct {
	TargetSize     int // genomes the species contributes to the next generation
	EliteCount     int // fittest members carried over unchanged
	SelectionCount int // fittest members eligible as parents
	AsexualCount   int
	SexualCount    int
}

// OffspringCount returns the number of new genomes the species produces.
func (a SpeciesAllocation) OffspringCount() int {
	return a.AsexualCount + a.SexualCount
}

// Reproduction creates the next generation from a speciated population.
type Reproduction struct {
	Config    *ReproductionConfig
	Asexual   *AsexualReproduction
	Sexual    *SexualReproduction
	Ancestors map[int][]int // Map genome id -> parent ids (for tracking lineage)
	Logger    *slog.Logger
}

// NewReproduction creates a new reproduction manager.
func NewReproduction(config *ReproductionConfig, asexual *AsexualReproduction, sexual *SexualReproduction) *Reproduction {
	return &Reproduction{
		Config:    config,
		Asexual:   asexual,
		Sexual:    sexual,
		Ancestors: make(map[int][]int),
	}
}

// offspringTask describes one genome to create. Parents, the mutation and the ids are
// fixed in task order before any offspring is built.
type offspringTask struct {
	id      int
	rng     *rand.Rand
	parent1 *Genome
	parent2 *Genome // nil for asexual offspring
	kind    MutationKind
	genes   *ConnectionGenes // structural mutation result, nil for weight mutation
}

// Reproduce creates the next generation of popSize genomes. Elites are carried over
// unchanged; every other genome is a new offspring born in generation. In Simplifying mode
// all offspring are asexual and use the simplifying mutation settings.
func (r *Reproduction) Reproduce(ctx context.Context, species []*Species, popSize, generation int, mode ComplexityRegulationMode, ledger *InnovationLedger, rng *rand.Rand) ([]*Genome, error) {
	if len(species) == 0 {
		return nil, fmt.Errorf("%w: no species to reproduce from", ErrInvalidSpeciation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := loggerOrDefault(r.Logger)

	// --- Step 1: Rank members and summarise species fitness ---
	fitnessFn := StatFunctions[strings.ToLower(r.Config.SpeciesFitnessFunc)]
	if fitnessFn == nil {
		fitnessFn = Mean
	}
	ranked := make([][]*Genome, len(species))
	speciesFitness := make([]float64, len(species))
	bestIdx, bestFitness := 0, math.Inf(-1)
	for i, sp := range species {
		ranked[i] = rankByFitness(sp.Members)
		speciesFitness[i] = fitnessFn(sp.GetFitnesses())
		if len(ranked[i]) > 0 && ranked[i][0].Fitness.PrimaryFitness > bestFitness {
			bestIdx, bestFitness = i, ranked[i][0].Fitness.PrimaryFitness
		}
	}

	// --- Step 2: Allocate offspring ---
	sizes := computeTargetSizes(speciesFitness, popSize, bestIdx)
	allocs := make([]SpeciesAllocation, len(species))
	for i := range species {
		allocs[i] = allocateSpecies(len(ranked[i]), sizes[i], i == bestIdx, r.Config, mode, rng)
	}

	// --- Step 3: Carry over elites and plan offspring ---
	asexual := r.Asexual
	if mode == Simplifying {
		op := *r.Asexual
		op.Settings = op.Settings.SimplifyingSettings()
		asexual = &op
	}
	next := make([]*Genome, 0, popSize)
	newAncestors := make(map[int][]int, popSize)
	var tasks []offspringTask
	for i, a := range allocs {
		for _, elite := range ranked[i][:a.EliteCount] {
			next = append(next, elite)
			newAncestors[elite.ID] = []int{elite.ID}
		}
		for j := 0; j < a.OffspringCount(); j++ {
			tasks = append(tasks, offspringTask{rng: rand.New(rand.NewSource(rng.Int63()))})
			task := &tasks[len(tasks)-1]
			selected := ranked[i][:a.SelectionCount]
			if j < a.SexualCount {
				task.parent1, task.parent2 = r.selectMates(i, selected, ranked, allocs, task.rng)
			} else {
				task.parent1 = selected[task.rng.Intn(len(selected))]
				// Structural mutations mint innovation ids, so they run here in task
				// order to keep ids independent of scheduling.
				task.kind, task.genes = asexual.chooseMutation(task.parent1, ledger, task.rng)
			}
			task.id = asexual.Seqs.Genome.Next()
		}
	}

	// --- Step 4: Build offspring concurrently ---
	offspring := make([]*Genome, len(tasks))
	parents := make([][]int, len(tasks))
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(r.parallelism())
	for t, task := range tasks {
		t, task := t, task
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if task.parent2 == nil {
				child, err := asexual.buildOffspring(task.parent1, task.kind, task.genes, task.id, generation, task.rng)
				if err != nil {
					return err
				}
				offspring[t], parents[t] = child, []int{task.parent1.ID}
				return nil
			}
			child, err := r.Sexual.buildOffspring(task.parent1, task.parent2, task.id, generation, task.rng)
			if err != nil {
				return err
			}
			offspring[t], parents[t] = child, []int{task.parent1.ID, task.parent2.ID}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("reproduction failed in generation %d: %w", generation, err)
	}

	for t, child := range offspring {
		next = append(next, child)
		newAncestors[child.ID] = parents[t]
	}
	r.Ancestors = newAncestors // Update ancestor tracking for the new generation

	if len(next) != popSize {
		logger.Warn("new population size differs from target", "size", len(next), "target", popSize)
	}
	logger.Debug("reproduction complete", "generation", generation, "elites", len(next)-len(offspring),
		"offspring", len(offspring), "mode", mode)
	return next, nil
}

// selectMates picks two parents for a sexual offspring of species speciesIdx. The second
// parent comes from another species with probability InterspeciesMatingProportion. The
// fitter parent is returned first and acts as the primary parent.
func (r *Reproduction) selectMates(speciesIdx int, selected []*Genome, ranked [][]*Genome, allocs []SpeciesAllocation, rng *rand.Rand) (*Genome, *Genome) {
	i1 := rng.Intn(len(selected))
	p1 := selected[i1]

	var p2 *Genome
	if len(ranked) > 1 && rng.Float64() < r.Config.InterspeciesMatingProportion {
		other := rng.Intn(len(ranked) - 1)
		if other >= speciesIdx {
			other++
		}
		if len(ranked[other]) > 0 {
			candidates := ranked[other][:max(1, min(allocs[other].SelectionCount, len(ranked[other])))]
			p2 = candidates[rng.Intn(len(candidates))]
		}
	}
	if p2 == nil {
		i2 := rng.Intn(len(selected) - 1)
		if i2 >= i1 {
			i2++
		}
		p2 = selected[i2]
	}

	if p2.Fitness.PrimaryFitness > p1.Fitness.PrimaryFitness {
		return p2, p1
	}
	return p1, p2
}

func (r *Reproduction) parallelism() int {
	if r.Config.Parallelism <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return r.Config.Parallelism
}

// rankByFitness returns a copy of members sorted by descending fitness. Ties keep member order.
func rankByFitness(members []*Genome) []*Genome {
	ranked := make([]*Genome, len(members))
	copy(ranked, members)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness.PrimaryFitness > ranked[j].Fitness.PrimaryFitness
	})
	return ranked
}

// computeTargetSizes shares popSize between species in proportion to their fitness.
// Negative fitness counts as zero; when every species has zero fitness the population is
// shared equally. Fractional shares are resolved by largest remainder. Every species gets
// at least one slot when popSize allows it, and the species holding the best genome always
// does.
func computeTargetSizes(speciesFitness []float64, popSize, bestIdx int) []int {
	n := len(speciesFitness)
	sizes := make([]int, n)
	if n == 0 {
		return sizes
	}

	total := 0.0
	for _, f := range speciesFitness {
		total += math.Max(0, f)
	}
	remainders := make([]float64, n)
	allocated := 0
	for i, f := range speciesFitness {
		var share float64
		if total > 0 {
			share = math.Max(0, f) / total * float64(popSize)
		} else {
			share = float64(popSize) / float64(n)
		}
		sizes[i] = int(math.Floor(share))
		remainders[i] = share - float64(sizes[i])
		allocated += sizes[i]
	}

	// Hand out the slots lost to rounding, largest remainder first.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for i := 0; allocated < popSize; i = (i + 1) % n {
		sizes[order[i]]++
		allocated++
	}

	// ensureSlot moves one slot to idx from the largest species holding more than keep.
	ensureSlot := func(idx, keep int) bool {
		donor := -1
		for i, s := range sizes {
			if i != idx && s > keep && (donor < 0 || s > sizes[donor]) {
				donor = i
			}
		}
		if donor < 0 {
			return false
		}
		sizes[donor]--
		sizes[idx]++
		return true
	}
	if sizes[bestIdx] == 0 {
		ensureSlot(bestIdx, 0)
	}
	if popSize >= n {
		for i := range sizes {
			if sizes[i] == 0 && !ensureSlot(i, 1) {
				break
			}
		}
	}
	return sizes
}

// allocateSpecies splits a species' target size into elites and offspring.
func allocateSpecies(memberCount, targetSize int, holdsBest bool, cfg *ReproductionConfig, mode ComplexityRegulationMode, rng *rand.Rand) SpeciesAllocation {
	a := SpeciesAllocation{TargetSize: targetSize}
	if targetSize == 0 || memberCount == 0 {
		return a
	}

	a.EliteCount = min(stochasticRound(float64(memberCount)*cfg.ElitismProportion, rng), targetSize, memberCount)
	if holdsBest && a.EliteCount == 0 {
		a.EliteCount = 1
	}
	offspring := targetSize - a.EliteCount
	a.SelectionCount = min(max(1, stochasticRound(float64(memberCount)*cfg.SelectionProportion, rng)), memberCount)

	sexualProportion := cfg.OffspringSexualProportion
	if mode == Simplifying || a.SelectionCount < 2 {
		sexualProportion = 0
	}
	a.SexualCount = stochasticRound(float64(offspring)*sexualProportion, rng)
	a.AsexualCount = offspring - a.SexualCount
	return a
}

// stochasticRound rounds x down or up with probability given by its fractional part.
func stochasticRound(x float64, rng *rand.Rand) int {
	whole := math.Floor(x)
	if rng.Float64() < x-whole {
		whole++
	}
	return int(whole)
}

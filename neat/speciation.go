package neat

import (
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxKMeansIterations bounds the k-means loop of the speciation strategies.
const DefaultMaxKMeansIterations = 5

// SpeciationStrategy partitions a population into species.
type SpeciationStrategy interface {
	// SpeciateAll clusters genomes from scratch into at most speciesCount species.
	SpeciateAll(genomes []*Genome, speciesCount int, rng *rand.Rand) ([]*Species, error)
	// SpeciateAdd assigns genomes to an existing partition and re-runs the clustering.
	SpeciateAdd(genomes []*Genome, species []*Species, rng *rand.Rand) ([]*Species, error)
}

// GeneticKMeansSpeciation clusters genomes with k-means over a genetic distance metric,
// using species medoids as centroids. The returned species are never empty.
type GeneticKMeansSpeciation struct {
	Metric        DistanceMetric
	MaxIterations int // <= 0 selects DefaultMaxKMeansIterations
	Parallelism   int // Assignment-step goroutines; <= 0 selects GOMAXPROCS
	Metrics       *Metrics
	Logger        *slog.Logger
}

// NewGeneticKMeansSpeciation creates a strategy with default settings.
func NewGeneticKMeansSpeciation(metric DistanceMetric) *GeneticKMeansSpeciation {
	return &GeneticKMeansSpeciation{Metric: metric, MaxIterations: DefaultMaxKMeansIterations}
}

// SpeciateAll clusters genomes into at most speciesCount species.
func (s *GeneticKMeansSpeciation) SpeciateAll(genomes []*Genome, speciesCount int, rng *rand.Rand) ([]*Species, error) {
	run, err := s.newRun(genomes, speciesCount)
	if err != nil {
		return nil, err
	}
	run.seedSpecies(genomes, speciesCount, rng)
	run.assignAll(genomes, nil)
	run.iterate(nil)
	return run.complete(), nil
}

// SpeciateAdd adds genomes to species and re-runs the clustering over all members.
func (s *GeneticKMeansSpeciation) SpeciateAdd(genomes []*Genome, species []*Species, rng *rand.Rand) ([]*Species, error) {
	run, err := s.resumeRun(genomes, species)
	if err != nil {
		return nil, err
	}
	run.assignAll(genomes, nil)
	run.iterate(nil)
	return run.complete(), nil
}

func (s *GeneticKMeansSpeciation) maxIterations() int {
	if s.MaxIterations <= 0 {
		return DefaultMaxKMeansIterations
	}
	return s.MaxIterations
}

func (s *GeneticKMeansSpeciation) parallelism() int {
	if s.Parallelism <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return s.Parallelism
}

func (s *GeneticKMeansSpeciation) newRun(genomes []*Genome, speciesCount int) (*kmeansRun, error) {
	if len(genomes) == 0 {
		return nil, fmt.Errorf("%w: no genomes to speciate", ErrInvalidSpeciation)
	}
	if speciesCount <= 0 {
		return nil, fmt.Errorf("%w: species count must be positive, got %d", ErrInvalidSpeciation, speciesCount)
	}
	return &kmeansRun{
		strategy: s,
		cache:    NewGenomeDistanceCache(s.Metric),
		assign:   make(map[*Genome]int, len(genomes)),
	}, nil
}

func (s *GeneticKMeansSpeciation) resumeRun(genomes []*Genome, species []*Species) (*kmeansRun, error) {
	if len(species) == 0 {
		return nil, fmt.Errorf("%w: no existing species to add to", ErrInvalidSpeciation)
	}
	run := &kmeansRun{
		strategy: s,
		cache:    NewGenomeDistanceCache(s.Metric),
		assign:   make(map[*Genome]int),
	}
	for _, sp := range species {
		if sp.Centroid == nil {
			if len(sp.Members) == 0 {
				continue
			}
			sp.Centroid, _ = findMedoid(sp.Members, run.cache.Distance)
		}
		run.species = append(run.species, sp)
		for _, g := range sp.Members {
			run.order = append(run.order, g)
			run.assign[g] = len(run.species) - 1
		}
	}
	if len(run.species) == 0 {
		return nil, fmt.Errorf("%w: existing species have no centroids", ErrInvalidSpeciation)
	}
	return run, nil
}

// --------------------------- k-means run ---------------------------

// kmeansRun is the working state of one speciation call.
type kmeansRun struct {
	strategy *GeneticKMeansSpeciation
	cache    *GenomeDistanceCache
	species  []*Species
	order    []*Genome       // every genome, in assignment order
	assign   map[*Genome]int // genome -> species index
	iters    int
}

// seedSpecies picks initial centroids with k-means++: the first uniformly at random, then
// each further centroid with probability proportional to its squared distance from the
// nearest chosen centroid. Seeding stops early once every genome sits on a chosen centroid.
func (r *kmeansRun) seedSpecies(genomes []*Genome, k int, rng *rand.Rand) {
	if k > len(genomes) {
		k = len(genomes)
	}
	first := genomes[rng.Intn(len(genomes))]
	r.species = append(r.species, NewSpecies(0, first, 0))

	nearest := make([]float64, len(genomes))
	for i, g := range genomes {
		nearest[i] = r.cache.Distance(g, first)
	}
	for len(r.species) < k {
		total := 0.0
		for _, d := range nearest {
			total += d * d
		}
		if total == 0 {
			break
		}
		x := rng.Float64() * total
		pick := len(genomes) - 1
		for i, d := range nearest {
			x -= d * d
			if x < 0 && d > 0 {
				pick = i
				break
			}
		}
		for nearest[pick] == 0 {
			pick--
		}
		centroid := genomes[pick]
		r.species = append(r.species, NewSpecies(len(r.species), centroid, 0))
		for i, g := range genomes {
			if d := r.cache.Distance(g, centroid); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
}

// distanceTerm returns the value minimised when choosing a genome's species; the plain
// strategy uses the genetic distance to the centroid.
type distanceTerm func(g *Genome, speciesIdx int) float64

func (r *kmeansRun) baseDistance(g *Genome, speciesIdx int) float64 {
	return r.cache.Distance(g, r.species[speciesIdx].Centroid)
}

// nearestSpecies returns the index minimising term, ties going to the lowest index.
func (r *kmeansRun) nearestSpecies(g *Genome, term distanceTerm) int {
	best, bestDist := 0, term(g, 0)
	for i := 1; i < len(r.species); i++ {
		if d := term(g, i); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// assignAll places new genomes into their nearest species and refreshes the affected centroids.
func (r *kmeansRun) assignAll(genomes []*Genome, term distanceTerm) {
	if term == nil {
		term = r.baseDistance
	}
	targets := r.parallelNearest(genomes, term)
	changed := make([]bool, len(r.species))
	for i, g := range genomes {
		r.order = append(r.order, g)
		r.assign[g] = targets[i]
		changed[targets[i]] = true
	}
	r.rebuildMembers()
	r.recalcCentroids(changed)
}

// parallelNearest runs the assignment step. Centroids are read-only for its duration, so each
// genome's nearest species is computed independently by a bounded set of goroutines.
func (r *kmeansRun) parallelNearest(genomes []*Genome, term distanceTerm) []int {
	out := make([]int, len(genomes))
	workers := r.strategy.parallelism()
	if workers > len(genomes) {
		workers = len(genomes)
	}
	if workers <= 1 {
		for i, g := range genomes {
			out[i] = r.nearestSpecies(g, term)
		}
		return out
	}

	chunk := (len(genomes) + workers - 1) / workers
	var eg errgroup.Group
	eg.SetLimit(workers)
	for start := 0; start < len(genomes); start += chunk {
		start, end := start, min(start+chunk, len(genomes))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = r.nearestSpecies(genomes[i], term)
			}
			return nil
		})
	}
	_ = eg.Wait() // workers never fail
	return out
}

// iterate runs k-means iterations until no genome moves or the iteration budget is spent.
// termFactory, when non-nil, builds the distance term for each iteration from the frozen
// species sizes.
func (r *kmeansRun) iterate(termFactory func() distanceTerm) int {
	maxIters := r.strategy.maxIterations()
	iters := 0
	for ; iters < maxIters; iters++ {
		term := distanceTerm(r.baseDistance)
		if termFactory != nil {
			term = termFactory()
		}
		targets := r.parallelNearest(r.order, term)

		// Barrier passed: apply moves and refresh centroids.
		changed := make([]bool, len(r.species))
		moved := 0
		for i, g := range r.order {
			from := r.assign[g]
			if to := targets[i]; to != from {
				r.assign[g] = to
				changed[from] = true
				changed[to] = true
				moved++
			}
		}
		if moved == 0 {
			break
		}
		r.rebuildMembers()
		r.recalcCentroids(changed)
	}
	r.iters += iters
	return iters
}

// rebuildMembers regenerates member lists from the assignment, in genome order.
func (r *kmeansRun) rebuildMembers() {
	for _, sp := range r.species {
		sp.Members = sp.Members[:0]
	}
	for _, g := range r.order {
		sp := r.species[r.assign[g]]
		sp.Members = append(sp.Members, g)
	}
}

// recalcCentroids recomputes the medoid of every changed species, and of any species whose
// centroid is no longer one of its members.
func (r *kmeansRun) recalcCentroids(changed []bool) {
	for i, sp := range r.species {
		if len(sp.Members) == 0 {
			continue
		}
		if idx, ok := r.assign[sp.Centroid]; changed[i] || !ok || idx != i {
			sp.Centroid, _ = findMedoid(sp.Members, r.cache.Distance)
		}
	}
}

// complete removes empty species and reports the run.
func (r *kmeansRun) complete() []*Species {
	out := make([]*Species, 0, len(r.species))
	for _, sp := range r.species {
		if len(sp.Members) > 0 {
			out = append(out, sp)
		}
	}
	r.strategy.Metrics.observeSpeciation(r.iters, len(out))
	loggerOrDefault(r.strategy.Logger).Debug("speciation complete",
		"species", len(out), "genomes", len(r.order), "iterations", r.iters)
	return out
}

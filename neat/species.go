package neat

import (
	"math"
	"sync"
)

// Species is a cluster of genetically similar genomes.
// The centroid is the medoid member; a species does not own its genomes.
type Species struct {
	ID       int       // Unique identifier for the species.
	Centroid *Genome   // Medoid of the members; kept while the species is empty.
	Members  []*Genome // Genomes currently assigned to this species.

	// Fields maintained by the generation driver.
	Created      int     // Generation number when the species was created.
	LastImproved int     // Last generation where the best fitness improved.
	BestFitness  float64 // Best fitness seen in this species.
}

// NewSpecies creates an empty species seeded with centroid.
func NewSpecies(id int, centroid *Genome, generation int) *Species {
	return &Species{
		ID:           id,
		Centroid:     centroid,
		Created:      generation,
		LastImproved: generation,
		BestFitness:  math.Inf(-1),
	}
}

// Size returns the number of members.
func (s *Species) Size() int {
	return len(s.Members)
}

// GetFitnesses returns a slice containing the fitness values of all members.
func (s *Species) GetFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		fitnesses = append(fitnesses, g.Fitness.PrimaryFitness)
	}
	return fitnesses
}

// MeanFitness returns the mean member fitness, or 0 for an empty species.
func (s *Species) MeanFitness() float64 {
	return Mean(s.GetFitnesses())
}

// Best returns the fittest member, or nil for an empty species.
// Ties go to the earliest member.
func (s *Species) Best() *Genome {
	var best *Genome
	for _, g := range s.Members {
		if best == nil || g.Fitness.PrimaryFitness > best.Fitness.PrimaryFitness {
			best = g
		}
	}
	return best
}

// --------------------------- GenomeDistanceCache ---------------------------

type genomePair struct {
	a, b *Genome
}

// GenomeDistanceCache memoizes distances between genomes. Genomes are immutable, so a
// cached distance stays valid for their lifetime. It is safe for concurrent use.
type GenomeDistanceCache struct {
	Metric DistanceMetric

	mu        sync.Mutex
	distances map[genomePair]float64
	hits      int
	misses    int
}

// NewGenomeDistanceCache creates a new distance cache over metric.
func NewGenomeDistanceCache(metric DistanceMetric) *GenomeDistanceCache {
	return &GenomeDistanceCache{
		Metric:    metric,
		distances: make(map[genomePair]float64),
	}
}

// Distance calculates or retrieves the distance between two genomes.
func (dc *GenomeDistanceCache) Distance(genome1, genome2 *Genome) float64 {
	if genome1 == genome2 {
		return 0
	}
	dc.mu.Lock()
	if d, ok := dc.distances[genomePair{genome1, genome2}]; ok {
		dc.hits++
		dc.mu.Unlock()
		return d
	}
	if d, ok := dc.distances[genomePair{genome2, genome1}]; ok {
		dc.hits++
		dc.mu.Unlock()
		return d
	}
	dc.misses++
	dc.mu.Unlock()

	// Distance not in cache, compute it outside the lock.
	d := dc.Metric.Distance(genome1.Connections, genome2.Connections)
	dc.mu.Lock()
	dc.distances[genomePair{genome1, genome2}] = d
	dc.mu.Unlock()
	return d
}

// Stats returns the number of cache hits and misses so far.
func (dc *GenomeDistanceCache) Stats() (hits, misses int) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.hits, dc.misses
}

// Len returns the number of cached pairs.
func (dc *GenomeDistanceCache) Len() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return len(dc.distances)
}

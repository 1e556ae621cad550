package neat

import (
	"fmt"
	"math"
	"strings"
)

// DistanceMetric measures genetic distance between two gene lists.
// Genes present in both lists are "matched"; genes present in only one are "mismatched",
// and are treated as if the other list held them with weight zero.
type DistanceMetric interface {
	// Distance returns the full distance between a and b.
	Distance(a, b *ConnectionGenes) float64
	// TestDistance reports whether Distance(a, b) < threshold. It stops scanning as soon as
	// the partial distance reaches the threshold.
	TestDistance(a, b *ConnectionGenes, threshold float64) bool
}

// NewDistanceMetric returns the metric registered under name ("manhattan" or "euclidean").
func NewDistanceMetric(name string, matchCoeff, mismatchCoeff, mismatchConstant float64) (DistanceMetric, error) {
	switch strings.ToLower(name) {
	case "manhattan", "":
		return &ManhattanDistanceMetric{MatchCoeff: matchCoeff, MismatchCoeff: mismatchCoeff, MismatchConstant: mismatchConstant}, nil
	case "euclidean":
		return &EuclideanDistanceMetric{MatchCoeff: matchCoeff, MismatchCoeff: mismatchCoeff, MismatchConstant: mismatchConstant}, nil
	}
	return nil, fmt.Errorf("%w: unknown distance metric %q", ErrInvalidConfig, name)
}

// --------------------------- Manhattan ---------------------------

// ManhattanDistanceMetric sums |w1-w2| over matched genes and
// MismatchConstant + MismatchCoeff*|w| over mismatched genes.
type ManhattanDistanceMetric struct {
	MatchCoeff       float64
	MismatchCoeff    float64
	MismatchConstant float64
}

// NewManhattanDistanceMetric returns the metric with coefficients (1, 1, 0).
func NewManhattanDistanceMetric() *ManhattanDistanceMetric {
	return &ManhattanDistanceMetric{MatchCoeff: 1, MismatchCoeff: 1}
}

func (m *ManhattanDistanceMetric) matched(w1, w2 float64) float64 {
	return math.Abs(w1-w2) * m.MatchCoeff
}

func (m *ManhattanDistanceMetric) mismatched(w float64) float64 {
	return m.MismatchConstant + math.Abs(w)*m.MismatchCoeff
}

// Distance returns the Manhattan distance between a and b. Terms are summed in the same
// order as TestDistance so both agree at the threshold.
func (m *ManhattanDistanceMetric) Distance(a, b *ConnectionGenes) float64 {
	distance := 0.0
	mergeGenesReverse(a, b, func(i1, i2 int) bool {
		switch {
		case i1 >= 0 && i2 >= 0:
			distance += m.matched(a.Genes[i1].Weight, b.Genes[i2].Weight)
		case i1 >= 0:
			distance += m.mismatched(a.Genes[i1].Weight)
		default:
			distance += m.mismatched(b.Genes[i2].Weight)
		}
		return true
	})
	return distance
}

// TestDistance reports whether the Manhattan distance is below threshold.
func (m *ManhattanDistanceMetric) TestDistance(a, b *ConnectionGenes, threshold float64) bool {
	ok, _ := m.testDistance(a, b, threshold)
	return ok
}

// testDistance also returns the number of gene positions visited.
func (m *ManhattanDistanceMetric) testDistance(a, b *ConnectionGenes, threshold float64) (bool, int) {
	distance := 0.0
	exceeded := false
	visited := mergeGenesReverse(a, b, func(i1, i2 int) bool {
		switch {
		case i1 >= 0 && i2 >= 0:
			distance += m.matched(a.Genes[i1].Weight, b.Genes[i2].Weight)
		case i1 >= 0:
			distance += m.mismatched(a.Genes[i1].Weight)
		default:
			distance += m.mismatched(b.Genes[i2].Weight)
		}
		if distance >= threshold {
			exceeded = true
			return false
		}
		return true
	})
	if exceeded {
		return false, visited
	}
	return distance < threshold, visited
}

// --------------------------- Euclidean ---------------------------

// EuclideanDistanceMetric takes the square root of the summed squared matched differences
// and squared mismatched weights; MismatchConstant is added linearly per mismatched gene.
type EuclideanDistanceMetric struct {
	MatchCoeff       float64
	MismatchCoeff    float64
	MismatchConstant float64
}

// NewEuclideanDistanceMetric returns the metric with coefficients (1, 1, 0).
func NewEuclideanDistanceMetric() *EuclideanDistanceMetric {
	return &EuclideanDistanceMetric{MatchCoeff: 1, MismatchCoeff: 1}
}

type euclideanAccumulator struct {
	m          *EuclideanDistanceMetric
	sumSquares float64
	constants  float64
}

func (acc *euclideanAccumulator) add(a, b *ConnectionGenes, i1, i2 int) {
	switch {
	case i1 >= 0 && i2 >= 0:
		d := (a.Genes[i1].Weight - b.Genes[i2].Weight) * acc.m.MatchCoeff
		acc.sumSquares += d * d
	case i1 >= 0:
		d := a.Genes[i1].Weight * acc.m.MismatchCoeff
		acc.sumSquares += d * d
		acc.constants += acc.m.MismatchConstant
	default:
		d := b.Genes[i2].Weight * acc.m.MismatchCoeff
		acc.sumSquares += d * d
		acc.constants += acc.m.MismatchConstant
	}
}

func (acc *euclideanAccumulator) value() float64 {
	return math.Sqrt(acc.sumSquares) + acc.constants
}

// Distance returns the Euclidean distance between a and b, summed in TestDistance order.
func (m *EuclideanDistanceMetric) Distance(a, b *ConnectionGenes) float64 {
	acc := euclideanAccumulator{m: m}
	mergeGenesReverse(a, b, func(i1, i2 int) bool {
		acc.add(a, b, i1, i2)
		return true
	})
	return acc.value()
}

// TestDistance reports whether the Euclidean distance is below threshold.
func (m *EuclideanDistanceMetric) TestDistance(a, b *ConnectionGenes, threshold float64) bool {
	ok, _ := m.testDistance(a, b, threshold)
	return ok
}

func (m *EuclideanDistanceMetric) testDistance(a, b *ConnectionGenes, threshold float64) (bool, int) {
	acc := euclideanAccumulator{m: m}
	exceeded := false
	visited := mergeGenesReverse(a, b, func(i1, i2 int) bool {
		acc.add(a, b, i1, i2)
		if acc.value() >= threshold {
			exceeded = true
			return false
		}
		return true
	})
	if exceeded {
		return false, visited
	}
	return acc.value() < threshold, visited
}

// --------------------------- Gene Alignment ---------------------------

// mergeGenes walks a and b in ascending (source, target) order and calls visit with the
// index of the gene in each list, or -1 where a list lacks it. Iteration stops when visit
// returns false. It returns the number of positions visited.
func mergeGenes(a, b *ConnectionGenes, visit func(i1, i2 int) bool) int {
	n1, n2 := a.Len(), b.Len()
	i1, i2, visited := 0, 0, 0
	for i1 < n1 || i2 < n2 {
		var c int
		switch {
		case i1 == n1:
			c = 1
		case i2 == n2:
			c = -1
		default:
			c = a.Genes[i1].Connection().Compare(b.Genes[i2].Connection())
		}
		visited++
		var cont bool
		switch {
		case c < 0:
			cont = visit(i1, -1)
			i1++
		case c > 0:
			cont = visit(-1, i2)
			i2++
		default:
			cont = visit(i1, i2)
			i1++
			i2++
		}
		if !cont {
			break
		}
	}
	return visited
}

// mergeGenesReverse is mergeGenes walking from the highest connection downwards. Mismatched
// genes tend to sit at the high end (most recently added hidden nodes), so threshold tests
// scanning this way exit earlier.
func mergeGenesReverse(a, b *ConnectionGenes, visit func(i1, i2 int) bool) int {
	i1, i2, visited := a.Len()-1, b.Len()-1, 0
	for i1 >= 0 || i2 >= 0 {
		var c int
		switch {
		case i1 < 0:
			c = -1
		case i2 < 0:
			c = 1
		default:
			c = a.Genes[i1].Connection().Compare(b.Genes[i2].Connection())
		}
		visited++
		var cont bool
		switch {
		case c > 0:
			cont = visit(i1, -1)
			i1--
		case c < 0:
			cont = visit(-1, i2)
			i2--
		default:
			cont = visit(i1, i2)
			i1--
			i2--
		}
		if !cont {
			break
		}
	}
	return visited
}

// --------------------------- Medoid ---------------------------

// FindMedoid returns the genome with the minimum summed distance to all other genomes,
// and its index. Ties go to the lowest index. It returns (nil, -1) for an empty slice.
func FindMedoid(metric DistanceMetric, genomes []*Genome) (*Genome, int) {
	return findMedoid(genomes, func(a, b *Genome) float64 {
		return metric.Distance(a.Connections, b.Connections)
	})
}

func findMedoid(genomes []*Genome, distance func(a, b *Genome) float64) (*Genome, int) {
	switch len(genomes) {
	case 0:
		return nil, -1
	case 1, 2:
		return genomes[0], 0
	}

	// Distances are symmetric, so compute each pair once.
	sums := make([]float64, len(genomes))
	for i := 0; i < len(genomes); i++ {
		for j := i + 1; j < len(genomes); j++ {
			d := distance(genomes[i], genomes[j])
			sums[i] += d
			sums[j] += d
		}
	}
	best := 0
	for i := 1; i < len(sums); i++ {
		if sums[i] < sums[best] {
			best = i
		}
	}
	return genomes[best], best
}

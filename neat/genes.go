package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// --------------------------- DirectedConnection ---------------------------

// DirectedConnection identifies a connection by its source and target node ids.
// Connection genes are ordered by source id, then target id.
type DirectedConnection struct {
	SourceID int
	TargetID int
}

// Compare returns -1, 0 or +1 depending on the (source, target) ordering of c and other.
func (c DirectedConnection) Compare(other DirectedConnection) int {
	switch {
	case c.SourceID < other.SourceID:
		return -1
	case c.SourceID > other.SourceID:
		return 1
	case c.TargetID < other.TargetID:
		return -1
	case c.TargetID > other.TargetID:
		return 1
	}
	return 0
}

// Less reports whether c sorts before other.
func (c DirectedConnection) Less(other DirectedConnection) bool {
	return c.Compare(other) < 0
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionGene is a weighted directed connection carrying its innovation id.
type ConnectionGene struct {
	ID       int // innovation id, stable across genomes for the same structural mutation
	SourceID int
	TargetID int
	Weight   float64
}

// Connection returns the (source, target) key of the gene.
func (cg ConnectionGene) Connection() DirectedConnection {
	return DirectedConnection{SourceID: cg.SourceID, TargetID: cg.TargetID}
}

// String returns a string representation of the ConnectionGene.
func (cg ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(ID: %d, %d->%d, Weight: %.3f)", cg.ID, cg.SourceID, cg.TargetID, cg.Weight)
}

// --------------------------- ConnectionGenes ---------------------------

// ConnectionGenes is the gene list of a genome, sorted by (source, target) with no duplicates.
// Values are treated as immutable once they have been wrapped by a Genome; operators work
// on a Clone.
type ConnectionGenes struct {
	Genes []ConnectionGene
}

// NewConnectionGenes wraps genes, sorting them by connection.
func NewConnectionGenes(genes []ConnectionGene) *ConnectionGenes {
	cg := &ConnectionGenes{Genes: genes}
	cg.SortByConnection()
	return cg
}

// Len returns the number of genes.
func (cg *ConnectionGenes) Len() int {
	if cg == nil {
		return 0
	}
	return len(cg.Genes)
}

// Clone returns a deep copy.
func (cg *ConnectionGenes) Clone() *ConnectionGenes {
	genes := make([]ConnectionGene, len(cg.Genes))
	copy(genes, cg.Genes)
	return &ConnectionGenes{Genes: genes}
}

// SortByConnection sorts the genes by (source, target).
func (cg *ConnectionGenes) SortByConnection() {
	sort.Slice(cg.Genes, func(i, j int) bool {
		return cg.Genes[i].Connection().Less(cg.Genes[j].Connection())
	})
}

// IsSorted reports whether genes are strictly increasing by (source, target),
// i.e. sorted and duplicate-free.
func (cg *ConnectionGenes) IsSorted() bool {
	for i := 1; i < len(cg.Genes); i++ {
		if cg.Genes[i-1].Connection().Compare(cg.Genes[i].Connection()) >= 0 {
			return false
		}
	}
	return true
}

// Find returns the index of the gene for conn, or -1.
func (cg *ConnectionGenes) Find(conn DirectedConnection) int {
	genes := cg.Genes
	i := sort.Search(len(genes), func(i int) bool {
		return genes[i].Connection().Compare(conn) >= 0
	})
	if i < len(genes) && genes[i].Connection() == conn {
		return i
	}
	return -1
}

// Contains reports whether a gene exists for conn.
func (cg *ConnectionGenes) Contains(conn DirectedConnection) bool {
	return cg.Find(conn) >= 0
}

// Insert returns a copy of the genes with gene inserted at its sorted position.
// The caller must ensure the connection is not already present.
func (cg *ConnectionGenes) Insert(gene ConnectionGene) *ConnectionGenes {
	conn := gene.Connection()
	idx := sort.Search(len(cg.Genes), func(i int) bool {
		return cg.Genes[i].Connection().Compare(conn) >= 0
	})
	genes := make([]ConnectionGene, 0, len(cg.Genes)+1)
	genes = append(genes, cg.Genes[:idx]...)
	genes = append(genes, gene)
	genes = append(genes, cg.Genes[idx:]...)
	return &ConnectionGenes{Genes: genes}
}

// Remove returns a copy of the genes without the gene at index idx.
func (cg *ConnectionGenes) Remove(idx int) *ConnectionGenes {
	genes := make([]ConnectionGene, 0, len(cg.Genes)-1)
	genes = append(genes, cg.Genes[:idx]...)
	genes = append(genes, cg.Genes[idx+1:]...)
	return &ConnectionGenes{Genes: genes}
}

// IDs returns the innovation ids in ascending order.
func (cg *ConnectionGenes) IDs() []int {
	ids := make([]int, len(cg.Genes))
	for i, g := range cg.Genes {
		ids[i] = g.ID
	}
	sort.Ints(ids)
	return ids
}

// Weights returns a copy of the weights in gene order.
func (cg *ConnectionGenes) Weights() []float64 {
	w := make([]float64, len(cg.Genes))
	for i, g := range cg.Genes {
		w[i] = g.Weight
	}
	return w
}

// Equal reports whether both lists hold the same genes in the same order.
func (cg *ConnectionGenes) Equal(other *ConnectionGenes) bool {
	if cg.Len() != other.Len() {
		return false
	}
	for i := range cg.Genes {
		if cg.Genes[i] != other.Genes[i] {
			return false
		}
	}
	return true
}

// --------------------------- Weight Helpers ---------------------------

// sampleWeight draws a weight uniformly from [-scale, scale].
func sampleWeight(rng *rand.Rand, scale float64) float64 {
	return (rng.Float64()*2 - 1) * scale
}

// clamp restricts a value to a given range [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}

// clampWeight restricts a weight to [-scale, scale]. A non-positive scale disables clamping.
func clampWeight(w, scale float64) float64 {
	if scale <= 0 {
		return w
	}
	return clamp(w, -scale, scale)
}

package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testMeta(t *testing.T, in, out int, acyclic bool) *MetaNeatGenome {
	t.Helper()
	meta, err := NewMetaNeatGenome(in, out, acyclic, "ReLU", 5)
	require.NoError(t, err)
	return meta
}

func gene(id, src, tgt int, w float64) ConnectionGene {
	return ConnectionGene{ID: id, SourceID: src, TargetID: tgt, Weight: w}
}

func genomeOf(t *testing.T, meta *MetaNeatGenome, id int, genes ...ConnectionGene) *Genome {
	t.Helper()
	g, err := NewGenome(meta, id, 0, NewConnectionGenes(genes))
	require.NoError(t, err)
	return g
}

// randomGenes draws count distinct connections between node ids in [0, nodes) that never
// target the first inputs ids. Innovation ids follow (source, target) so that equal
// connections carry equal ids across calls.
func randomGenes(rng *rand.Rand, inputs, nodes, count int) *ConnectionGenes {
	seen := make(map[DirectedConnection]bool)
	var genes []ConnectionGene
	for len(genes) < count {
		src := rng.Intn(nodes)
		tgt := inputs + rng.Intn(nodes-inputs)
		conn := DirectedConnection{SourceID: src, TargetID: tgt}
		if seen[conn] {
			continue
		}
		seen[conn] = true
		genes = append(genes, ConnectionGene{
			ID:       src*nodes + tgt,
			SourceID: src,
			TargetID: tgt,
			Weight:   rng.Float64()*10 - 5,
		})
	}
	return NewConnectionGenes(genes)
}

// randomCyclicGenomes builds n genomes with random structure over a cyclic meta genome.
func randomCyclicGenomes(t *testing.T, rng *rand.Rand, n int) []*Genome {
	t.Helper()
	meta := testMeta(t, 3, 2, false)
	genomes := make([]*Genome, n)
	for i := range genomes {
		g, err := NewGenome(meta, i, 0, randomGenes(rng, 3, 9, 1+rng.Intn(12)))
		require.NoError(t, err)
		genomes[i] = g
	}
	return genomes
}

func speciesMemberIDs(species []*Species) [][]int {
	out := make([][]int, len(species))
	for i, sp := range species {
		for _, g := range sp.Members {
			out[i] = append(out[i], g.ID)
		}
	}
	return out
}

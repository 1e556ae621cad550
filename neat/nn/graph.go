// Package nn decodes genomes into executable networks.
//
// Nodes and connections are addressed by dense integer index. Inputs occupy indexes
// [0, InputCount), outputs follow, and hidden nodes come last in ascending id order.
package nn

import (
	"errors"
	"fmt"
	"sort"

	"github.com/baldhumanity/neat-engine/neat"
)

// ErrUnsupportedGenome is returned when a genome cannot be decoded into the requested
// network kind.
var ErrUnsupportedGenome = errors.New("unsupported genome")

// Connection is a weighted edge between two node indexes.
type Connection struct {
	SrcIdx int
	TgtIdx int
	Weight float64
}

// DirectedGraph is a genome's connectivity with node ids compacted into indexes.
type DirectedGraph struct {
	InputCount     int
	OutputCount    int
	TotalNodeCount int
	Connections    []Connection // Sorted by (SrcIdx, TgtIdx)
	NodeIDs        []int        // Node id by index
}

// BuildDirectedGraph compacts the genome's node ids into indexes.
func BuildDirectedGraph(g *neat.Genome) (*DirectedGraph, error) {
	if g == nil || g.Meta == nil || g.Connections == nil {
		return nil, fmt.Errorf("%w: genome has no meta genome or genes", ErrUnsupportedGenome)
	}
	meta := g.Meta
	ioCount := meta.InputOutputCount()
	total := ioCount + len(g.HiddenNodeIDs)

	nodeIDs := make([]int, 0, total)
	for i := 0; i < ioCount; i++ {
		nodeIDs = append(nodeIDs, i)
	}
	nodeIDs = append(nodeIDs, g.HiddenNodeIDs...)

	indexOf := func(id int) (int, error) {
		if id >= 0 && id < ioCount {
			return id, nil
		}
		i := sort.SearchInts(g.HiddenNodeIDs, id)
		if i < len(g.HiddenNodeIDs) && g.HiddenNodeIDs[i] == id {
			return ioCount + i, nil
		}
		return 0, fmt.Errorf("%w: genome %d node id %d is out of range", ErrUnsupportedGenome, g.ID, id)
	}

	conns := make([]Connection, 0, g.Connections.Len())
	for _, gene := range g.Connections.Genes {
		src, err := indexOf(gene.SourceID)
		if err != nil {
			return nil, err
		}
		tgt, err := indexOf(gene.TargetID)
		if err != nil {
			return nil, err
		}
		if tgt < meta.InputCount {
			return nil, fmt.Errorf("%w: genome %d connection %d->%d targets an input", ErrUnsupportedGenome, g.ID, gene.SourceID, gene.TargetID)
		}
		conns = append(conns, Connection{SrcIdx: src, TgtIdx: tgt, Weight: gene.Weight})
	}
	// Compaction is monotonic in id, so gene order already matches index order.
	return &DirectedGraph{
		InputCount:     meta.InputCount,
		OutputCount:    meta.OutputCount,
		TotalNodeCount: total,
		Connections:    conns,
		NodeIDs:        nodeIDs,
	}, nil
}

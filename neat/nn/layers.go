package nn

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// LayerInfo bounds one layer of an acyclic graph. Both bounds are exclusive and cover the
// layer together with every layer before it.
type LayerInfo struct {
	EndNodeIdx       int
	EndConnectionIdx int
}

// AcyclicGraph is a DirectedGraph whose nodes are ordered by layer and whose connections
// are grouped by the layer of their target.
type AcyclicGraph struct {
	DirectedGraph
	Layers        []LayerInfo
	OutputNodeIdx []int // Index of each output node after reordering
}

// AnalyseDepth returns the layer of every node: inputs and nodes without incoming
// connections are in layer 0, every other node is one past its deepest predecessor.
func AnalyseDepth(dg *DirectedGraph) ([]int, error) {
	g := simple.NewDirectedGraph()
	for i := 0; i < dg.TotalNodeCount; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, c := range dg.Connections {
		if c.SrcIdx == c.TgtIdx {
			return nil, fmt.Errorf("%w: self connection on node %d", ErrUnsupportedGenome, dg.NodeIDs[c.SrcIdx])
		}
		g.SetEdge(g.NewEdge(simple.Node(c.SrcIdx), simple.Node(c.TgtIdx)))
	}
	order, err := topo.Sort(g)
	if err != nil {
		return nil, fmt.Errorf("%w: graph is not acyclic: %v", ErrUnsupportedGenome, err)
	}

	depth := make([]int, dg.TotalNodeCount)
	for _, n := range order {
		src := n.ID()
		succ := g.From(src)
		for succ.Next() {
			tgt := succ.Node().ID()
			if d := depth[src] + 1; d > depth[tgt] {
				depth[tgt] = d
			}
		}
	}
	return depth, nil
}

// BuildAcyclicGraph reorders dg by layer. Inputs keep indexes [0, InputCount).
func BuildAcyclicGraph(dg *DirectedGraph) (*AcyclicGraph, error) {
	depth, err := AnalyseDepth(dg)
	if err != nil {
		return nil, err
	}

	// Stable sort keeps inputs first in layer 0 and id order within a layer.
	order := make([]int, dg.TotalNodeCount)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return depth[order[a]] < depth[order[b]] })
	newIdx := make([]int, dg.TotalNodeCount)
	nodeIDs := make([]int, dg.TotalNodeCount)
	for n, old := range order {
		newIdx[old] = n
		nodeIDs[n] = dg.NodeIDs[old]
	}

	conns := make([]Connection, len(dg.Connections))
	for i, c := range dg.Connections {
		conns[i] = Connection{SrcIdx: newIdx[c.SrcIdx], TgtIdx: newIdx[c.TgtIdx], Weight: c.Weight}
	}
	sort.SliceStable(conns, func(a, b int) bool {
		if conns[a].TgtIdx != conns[b].TgtIdx {
			return conns[a].TgtIdx < conns[b].TgtIdx
		}
		return conns[a].SrcIdx < conns[b].SrcIdx
	})

	layerCount := 1
	for _, d := range depth {
		if d+1 > layerCount {
			layerCount = d + 1
		}
	}
	layers := make([]LayerInfo, layerCount)
	for _, old := range order {
		layers[depth[old]].EndNodeIdx++
	}
	for _, c := range conns {
		layers[depth[order[c.TgtIdx]]].EndConnectionIdx++
	}
	for l := 1; l < layerCount; l++ {
		layers[l].EndNodeIdx += layers[l-1].EndNodeIdx
		layers[l].EndConnectionIdx += layers[l-1].EndConnectionIdx
	}

	outputs := make([]int, dg.OutputCount)
	for i := range outputs {
		outputs[i] = newIdx[dg.InputCount+i]
	}

	return &AcyclicGraph{
		DirectedGraph: DirectedGraph{
			InputCount:     dg.InputCount,
			OutputCount:    dg.OutputCount,
			TotalNodeCount: dg.TotalNodeCount,
			Connections:    conns,
			NodeIDs:        nodeIDs,
		},
		Layers:        layers,
		OutputNodeIdx: outputs,
	}, nil
}

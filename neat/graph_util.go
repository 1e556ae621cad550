package neat

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// connectivityGraph is a gonum view over a gene list, used for the structural queries
// the genome builder and mutation operators need (cycles, reachability).
type connectivityGraph struct {
	g           *simple.DirectedGraph
	hasSelfLoop bool
}

func newConnectivityGraph(genes []ConnectionGene) *connectivityGraph {
	cg := &connectivityGraph{g: simple.NewDirectedGraph()}
	for _, gene := range genes {
		cg.addEdge(gene.SourceID, gene.TargetID)
	}
	return cg
}

func (cg *connectivityGraph) addEdge(src, tgt int) {
	if src == tgt {
		// simple.DirectedGraph does not hold self edges.
		cg.hasSelfLoop = true
		if cg.g.Node(int64(src)) == nil {
			cg.g.AddNode(simple.Node(src))
		}
		return
	}
	cg.g.SetEdge(cg.g.NewEdge(simple.Node(src), simple.Node(tgt)))
}

func (cg *connectivityGraph) removeEdge(src, tgt int) {
	if src == tgt {
		return
	}
	cg.g.RemoveEdge(int64(src), int64(tgt))
}

// isAcyclic reports whether the graph has no directed cycles.
func (cg *connectivityGraph) isAcyclic() bool {
	if cg.hasSelfLoop {
		return false
	}
	_, err := topo.Sort(cg.g)
	return err == nil
}

// pathExists reports whether to is reachable from `from`. A node always reaches itself.
func (cg *connectivityGraph) pathExists(from, to int) bool {
	if from == to {
		return true
	}
	if cg.g.Node(int64(from)) == nil || cg.g.Node(int64(to)) == nil {
		return false
	}
	return topo.PathExistsIn(cg.g, simple.Node(from), simple.Node(to))
}

// wouldCreateCycle reports whether adding src->tgt would close a directed cycle.
func (cg *connectivityGraph) wouldCreateCycle(src, tgt int) bool {
	return cg.pathExists(tgt, src)
}

// reachableOutputs returns, for each output index, whether some input node reaches it.
func (cg *connectivityGraph) reachableOutputs(inputCount, outputCount int) []bool {
	var bf traverse.BreadthFirst
	for id := 0; id < inputCount; id++ {
		if cg.g.Node(int64(id)) != nil {
			bf.Walk(cg.g, simple.Node(id), nil)
		}
	}
	reached := make([]bool, outputCount)
	for i := range reached {
		id := inputCount + i
		if cg.g.Node(int64(id)) != nil {
			reached[i] = bf.Visited(simple.Node(id))
		}
	}
	return reached
}

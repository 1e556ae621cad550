package nn

import "github.com/baldhumanity/neat-engine/neat/activation"

// AcyclicNetwork evaluates a feed-forward graph layer by layer in a single pass.
type AcyclicNetwork struct {
	signals
	fn        activation.Func
	conns     []Connection
	layers    []LayerInfo
	outputIdx []int
}

var _ BlackBox = (*AcyclicNetwork)(nil)

// NewAcyclicNetwork creates a network over graph using fn at every non-input node.
func NewAcyclicNetwork(graph *AcyclicGraph, fn activation.Func) *AcyclicNetwork {
	return &AcyclicNetwork{
		signals:   newSignals(graph.InputCount, graph.OutputCount, graph.TotalNodeCount),
		fn:        fn,
		conns:     graph.Connections,
		layers:    graph.Layers,
		outputIdx: graph.OutputNodeIdx,
	}
}

// Activate evaluates every layer after the input layer. Nodes with no incoming
// connections output 0.
func (n *AcyclicNetwork) Activate() {
	clear(n.pre)
	clear(n.post[n.inputCount:])

	for l := 1; l < len(n.layers); l++ {
		prev, cur := n.layers[l-1], n.layers[l]
		for _, c := range n.conns[prev.EndConnectionIdx:cur.EndConnectionIdx] {
			n.pre[c.TgtIdx] += n.post[c.SrcIdx] * c.Weight
		}
		n.fn.FnRange(n.pre[prev.EndNodeIdx:cur.EndNodeIdx], n.post[prev.EndNodeIdx:cur.EndNodeIdx])
	}
}

func (n *AcyclicNetwork) Output(i int) float64 {
	return n.post[n.outputIdx[wrapIndex(i, n.outputCount)]]
}

func (n *AcyclicNetwork) Outputs() []float64 {
	out := make([]float64, n.outputCount)
	for i, idx := range n.outputIdx {
		out[i] = n.post[idx]
	}
	return out
}

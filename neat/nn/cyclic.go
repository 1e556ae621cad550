package nn

import (
	"math"

	"github.com/baldhumanity/neat-engine/neat/activation"
)

// CyclicNetwork evaluates a recurrent graph. Node signals persist between calls to
// Activate; each timestep updates every node synchronously from the previous timestep.
type CyclicNetwork struct {
	signals
	fn     activation.Func
	conns  []Connection
	cycles int

	metrics *Metrics
}

var _ BlackBox = (*CyclicNetwork)(nil)

// NewCyclicNetwork creates a network over graph that runs cyclesPerActivation timesteps
// per Activate call. Values below 1 mean 1.
func NewCyclicNetwork(graph *DirectedGraph, fn activation.Func, cyclesPerActivation int) *CyclicNetwork {
	if cyclesPerActivation < 1 {
		cyclesPerActivation = 1
	}
	return &CyclicNetwork{
		signals: newSignals(graph.InputCount, graph.OutputCount, graph.TotalNodeCount),
		fn:      fn,
		conns:   graph.Connections,
		cycles:  cyclesPerActivation,
	}
}

// Activate runs the configured number of timesteps.
func (n *CyclicNetwork) Activate() {
	for i := 0; i < n.cycles; i++ {
		n.step()
	}
}

// Relax runs up to maxSteps timesteps, stopping once no node signal changes by more than
// maxDelta in a single timestep. It reports whether that happened within the budget.
func (n *CyclicNetwork) Relax(maxSteps int, maxDelta float64) bool {
	relaxed := false
	for i := 0; i < maxSteps && !relaxed; i++ {
		relaxed = n.step() <= maxDelta
	}
	n.metrics.observeRelax(relaxed)
	return relaxed
}

// step performs one synchronous timestep and returns the largest signal change.
func (n *CyclicNetwork) step() float64 {
	for _, c := range n.conns {
		n.pre[c.TgtIdx] += n.post[c.SrcIdx] * c.Weight
	}

	delta := 0.0
	for j := n.inputCount; j < len(n.pre); j++ {
		v := n.fn.Fn(n.pre[j])
		delta = math.Max(delta, math.Abs(v-n.post[j]))
		n.post[j] = v
		n.pre[j] = 0
	}
	return delta
}

func (n *CyclicNetwork) Output(i int) float64 {
	return n.post[n.inputCount+wrapIndex(i, n.outputCount)]
}

func (n *CyclicNetwork) Outputs() []float64 {
	out := make([]float64, n.outputCount)
	copy(out, n.post[n.inputCount:n.inputCount+n.outputCount])
	return out
}

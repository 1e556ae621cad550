package nn

// BlackBox is an executable network. Implementations hold mutable buffers and are not safe
// for concurrent use; decode one network per goroutine.
type BlackBox interface {
	InputCount() int
	OutputCount() int
	// SetInputs copies signals into the input nodes. Inputs beyond len(signals) keep
	// their previous value; extra signals are ignored.
	SetInputs(signals []float64)
	// Input returns input signal i.
	Input(i int) float64
	// Output returns output i, wrapping modulo OutputCount.
	Output(i int) float64
	// Outputs returns a copy of every output signal.
	Outputs() []float64
	// Activate propagates the current inputs through the network.
	Activate()
	// Reset zeroes every signal, inputs included.
	Reset()
}

// signals holds the node buffers shared by both network kinds.
type signals struct {
	inputCount  int
	outputCount int
	pre         []float64
	post        []float64
}

func newSignals(inputCount, outputCount, nodeCount int) signals {
	return signals{
		inputCount:  inputCount,
		outputCount: outputCount,
		pre:         make([]float64, nodeCount),
		post:        make([]float64, nodeCount),
	}
}

func (s *signals) InputCount() int  { return s.inputCount }
func (s *signals) OutputCount() int { return s.outputCount }

func (s *signals) SetInputs(in []float64) {
	n := min(len(in), s.inputCount)
	copy(s.post[:n], in[:n])
}

func (s *signals) Input(i int) float64 {
	return s.post[i]
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func (s *signals) Reset() {
	clear(s.pre)
	clear(s.post)
}

// Activate is a convenience that sets inputs, activates net once and returns its outputs.
func Activate(net BlackBox, inputs []float64) []float64 {
	net.SetInputs(inputs)
	net.Activate()
	return net.Outputs()
}

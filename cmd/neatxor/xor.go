package main

import (
	"context"
	"fmt"
	"io"

	"github.com/baldhumanity/neat-engine/neat"
	"github.com/baldhumanity/neat-engine/neat/nn"
)

// XOR inputs and expected outputs.
var xorInputs = [][]float64{
	{0.0, 0.0},
	{0.0, 1.0},
	{1.0, 0.0},
	{1.0, 1.0},
}
var xorOutputs = []float64{0.0, 1.0, 1.0, 0.0}

// maxXORFitness is the fitness of a network with zero error.
const maxXORFitness = 16.0

// xorFitness scores a genome as (4 - sum squared error)^2, floored at 0.
func xorFitness(decoder *nn.Decoder) neat.FitnessFunc {
	return func(_ context.Context, g *neat.Genome) (neat.FitnessInfo, error) {
		net, err := decoder.Decode(g)
		if err != nil {
			return neat.FitnessInfo{}, fmt.Errorf("failed to decode genome %d: %w", g.ID, err)
		}

		sse := 0.0
		for i, in := range xorInputs {
			net.Reset()
			out := nn.Activate(net, in)
			d := out[0] - xorOutputs[i]
			sse += d * d
		}
		base := max(0, 4.0-sse)
		return neat.FitnessInfo{PrimaryFitness: base * base, AuxFitnessScores: []float64{sse}}, nil
	}
}

// printTruthTable writes the network's answer for every XOR case.
func printTruthTable(w io.Writer, net nn.BlackBox) {
	fmt.Fprintln(w, " Input      | Expected | Output")
	fmt.Fprintln(w, "-------------------------------")
	for i, in := range xorInputs {
		net.Reset()
		out := nn.Activate(net, in)
		fmt.Fprintf(w, " %v |   %.1f    | %.4f\n", in, xorOutputs[i], out[0])
	}
}

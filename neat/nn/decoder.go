package nn

import (
	"fmt"

	"github.com/baldhumanity/neat-engine/neat"
	"github.com/baldhumanity/neat-engine/neat/activation"
)

// Decoder turns genomes into executable networks. It is safe for concurrent use; the
// networks it returns are not.
type Decoder struct {
	Factory             *activation.Factory
	CyclesPerActivation int      // Timesteps per Activate call of cyclic networks
	Metrics             *Metrics // Optional
}

// NewDecoder creates a decoder that prefers vectorized activation functions.
func NewDecoder() *Decoder {
	return &Decoder{
		Factory:             activation.NewFactory(true),
		CyclesPerActivation: 1,
	}
}

// Decode builds an acyclic or cyclic network according to the genome's meta.
func (d *Decoder) Decode(g *neat.Genome) (BlackBox, error) {
	if g == nil || g.Meta == nil {
		return nil, fmt.Errorf("%w: genome has no meta genome", ErrUnsupportedGenome)
	}
	if g.Meta.IsAcyclic {
		return d.DecodeAcyclic(g)
	}
	return d.DecodeCyclic(g)
}

// DecodeAcyclic builds a feed-forward network. The genome's meta must be acyclic.
func (d *Decoder) DecodeAcyclic(g *neat.Genome) (*AcyclicNetwork, error) {
	if g == nil || g.Meta == nil || !g.Meta.IsAcyclic {
		return nil, fmt.Errorf("%w: acyclic decode requires an acyclic genome", ErrUnsupportedGenome)
	}
	fn, err := d.activationFn(g)
	if err != nil {
		return nil, err
	}
	dg, err := BuildDirectedGraph(g)
	if err != nil {
		return nil, err
	}
	ag, err := BuildAcyclicGraph(dg)
	if err != nil {
		return nil, err
	}
	d.Metrics.observeDecode("acyclic")
	return NewAcyclicNetwork(ag, fn), nil
}

// DecodeCyclic builds a recurrent network. Acyclic genomes are rejected.
func (d *Decoder) DecodeCyclic(g *neat.Genome) (*CyclicNetwork, error) {
	if g == nil || g.Meta == nil || g.Meta.IsAcyclic {
		return nil, fmt.Errorf("%w: cyclic decode requires a cyclic genome", ErrUnsupportedGenome)
	}
	fn, err := d.activationFn(g)
	if err != nil {
		return nil, err
	}
	dg, err := BuildDirectedGraph(g)
	if err != nil {
		return nil, err
	}
	d.Metrics.observeDecode("cyclic")
	net := NewCyclicNetwork(dg, fn, d.CyclesPerActivation)
	net.metrics = d.Metrics
	return net, nil
}

func (d *Decoder) activationFn(g *neat.Genome) (activation.Func, error) {
	factory := d.Factory
	if factory == nil {
		factory = defaultFactory
	}
	fn, err := factory.Get(g.Meta.ActivationFnName)
	if err != nil {
		return nil, fmt.Errorf("%w: genome %d: %v", ErrUnsupportedGenome, g.ID, err)
	}
	return fn, nil
}

var defaultFactory = activation.NewFactory(true)

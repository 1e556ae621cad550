package neat

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
)

// addConnectionAttempts bounds the candidate pairs sampled by an add-connection mutation.
const addConnectionAttempts = 5

// MutationKind identifies the operator that produced an offspring.
type MutationKind int

const (
	MutationWeight MutationKind = iota
	MutationAddNode
	MutationAddConnection
	MutationDeleteConnection
	MutationNone // parent copied unchanged
	MutationCrossover
)

// String returns the label used in logs and metrics.
func (k MutationKind) String() string {
	switch k {
	case MutationWeight:
		return "weight"
	case MutationAddNode:
		return "add_node"
	case MutationAddConnection:
		return "add_connection"
	case MutationDeleteConnection:
		return "delete_connection"
	case MutationNone:
		return "clone"
	case MutationCrossover:
		return "crossover"
	}
	return fmt.Sprintf("MutationKind(%d)", int(k))
}

// AsexualSettings holds the probability of each asexual mutation type.
// Exactly one mutation is applied per offspring.
type AsexualSettings struct {
	ConnectionWeightMutationProbability float64 `ini:"connection_weight_mutation_probability" yaml:"connection_weight_mutation_probability"`
	AddNodeMutationProbability          float64 `ini:"add_node_mutation_probability" yaml:"add_node_mutation_probability"`
	AddConnectionMutationProbability    float64 `ini:"add_connection_mutation_probability" yaml:"add_connection_mutation_probability"`
	DeleteConnectionMutationProbability float64 `ini:"delete_connection_mutation_probability" yaml:"delete_connection_mutation_probability"`
}

// DefaultAsexualSettings returns the standard mutation mix.
func DefaultAsexualSettings() AsexualSettings {
	return AsexualSettings{
		ConnectionWeightMutationProbability: 0.94,
		AddNodeMutationProbability:          0.01,
		AddConnectionMutationProbability:    0.025,
		DeleteConnectionMutationProbability: 0.025,
	}
}

// SimplifyingSettings returns the settings used while the population is being simplified:
// no structure is added and connections are deleted more often.
func (s AsexualSettings) SimplifyingSettings() AsexualSettings {
	return AsexualSettings{
		ConnectionWeightMutationProbability: 0.6,
		DeleteConnectionMutationProbability: 0.4,
	}
}

// Validate checks that every probability is in [0,1] and that they sum to one.
func (s AsexualSettings) Validate() error {
	probs := s.probabilities()
	sum := 0.0
	for kind, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: %s mutation probability must be in [0,1], got %g", ErrInvalidConfig, MutationKind(kind), p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: asexual mutation probabilities must sum to 1, got %g", ErrInvalidConfig, sum)
	}
	return nil
}

// probabilities returns the settings indexed by MutationKind.
func (s AsexualSettings) probabilities() []float64 {
	return []float64{
		MutationWeight:           s.ConnectionWeightMutationProbability,
		MutationAddNode:          s.AddNodeMutationProbability,
		MutationAddConnection:    s.AddConnectionMutationProbability,
		MutationDeleteConnection: s.DeleteConnectionMutationProbability,
	}
}

// AsexualReproduction creates offspring from a single parent by applying one mutation.
// It is safe for concurrent use as long as each goroutine passes its own rng; the ledger
// and sequences are shared.
type AsexualReproduction struct {
	Meta         *MetaNeatGenome
	Settings     AsexualSettings
	WeightScheme *WeightMutationScheme
	Seqs         *IDSequences
	Metrics      *Metrics
	Logger       *slog.Logger
}

// NewAsexualReproduction creates an asexual reproduction operator with the default weight
// mutation scheme.
func NewAsexualReproduction(meta *MetaNeatGenome, settings AsexualSettings, seqs *IDSequences) (*AsexualReproduction, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &AsexualReproduction{
		Meta:         meta,
		Settings:     settings,
		WeightScheme: DefaultWeightMutationScheme(meta.ConnectionWeightScale),
		Seqs:         seqs,
	}, nil
}

// CreateOffspring returns a mutated child of parent born in generation. Mutation types that
// cannot be applied to parent are removed from the distribution and the remaining
// probabilities renormalised. When no type applies the child is a copy of the parent
// with a new id. The parent is never modified.
//
// An error is returned only if the resulting gene list fails genome validation.
func (r *AsexualReproduction) CreateOffspring(parent *Genome, generation int, ledger *InnovationLedger, rng *rand.Rand) (*Genome, error) {
	kind, genes := r.chooseMutation(parent, ledger, rng)
	return r.buildOffspring(parent, kind, genes, r.Seqs.Genome.Next(), generation, rng)
}

// chooseMutation picks the mutation applied to parent and performs it when it changes the
// structure. It is the only step that touches the ledger and the innovation sequence. For
// weight mutation the returned genes are nil and buildOffspring applies the weight scheme
// with the same rng.
func (r *AsexualReproduction) chooseMutation(parent *Genome, ledger *InnovationLedger, rng *rand.Rand) (MutationKind, *ConnectionGenes) {
	probs := r.Settings.probabilities()
	n := parent.Connections.Len()
	if n == 0 {
		probs[MutationWeight] = 0
		probs[MutationAddNode] = 0
	}
	if n < 2 {
		probs[MutationDeleteConnection] = 0
	}

	for {
		idx := sampleDiscrete(probs, rng)
		if idx < 0 {
			break
		}
		kind := MutationKind(idx)
		if kind == MutationWeight {
			return MutationWeight, nil
		}
		if genes, ok := r.mutate(kind, parent, ledger, rng); ok {
			return kind, genes
		}
		probs[kind] = 0
	}

	// Nothing in the distribution applied.
	if n > 0 {
		return MutationWeight, nil
	}
	return MutationNone, parent.Connections.Clone()
}

// buildOffspring completes an offspring planned by chooseMutation. It does not touch
// shared state other than metrics, so offspring can be built concurrently.
func (r *AsexualReproduction) buildOffspring(parent *Genome, kind MutationKind, genes *ConnectionGenes, id, generation int, rng *rand.Rand) (*Genome, error) {
	if genes == nil {
		genes = r.WeightScheme.Apply(parent.Connections, rng)
	}
	child, err := NewGenome(parent.Meta, id, generation, genes)
	if err != nil {
		return nil, fmt.Errorf("failed to create offspring of genome %d: %w", parent.ID, err)
	}
	r.Metrics.observeOffspring(kind.String())
	loggerOrDefault(r.Logger).Log(context.Background(), LevelTrace, "offspring created",
		"kind", kind, "parent", parent.ID, "child", child.ID, "genes", child.Connections.Len())
	return child, nil
}

func (r *AsexualReproduction) mutate(kind MutationKind, parent *Genome, ledger *InnovationLedger, rng *rand.Rand) (*ConnectionGenes, bool) {
	switch kind {
	case MutationAddNode:
		return r.addNode(parent, ledger, rng)
	case MutationAddConnection:
		return r.addConnection(parent, ledger, rng)
	case MutationDeleteConnection:
		return r.deleteConnection(parent, rng)
	}
	return nil, false
}

// addNode splits a random connection src->tgt into src->new and new->tgt. The incoming
// connection gets weight 1 and the outgoing one keeps the original weight, so the
// signal reaching tgt is initially close to unchanged.
func (r *AsexualReproduction) addNode(parent *Genome, ledger *InnovationLedger, rng *rand.Rand) (*ConnectionGenes, bool) {
	n := parent.Connections.Len()
	if n == 0 {
		return nil, false
	}
	idx := rng.Intn(n)
	split := parent.Connections.Genes[idx]

	info, _ := ledger.LookupOrAddNode(split.ID, r.Seqs.Innovation)
	if parent.IsHidden(info.NodeID) {
		// The parent already carries the node from an earlier split of the same
		// connection; the ids cannot be shared again within this genome.
		info = AddedNodeInfo{
			NodeID:    r.Seqs.Innovation.Next(),
			InConnID:  r.Seqs.Innovation.Next(),
			OutConnID: r.Seqs.Innovation.Next(),
		}
	}

	genes := parent.Connections.Remove(idx)
	genes = genes.Insert(ConnectionGene{
		ID:       info.InConnID,
		SourceID: split.SourceID,
		TargetID: info.NodeID,
		Weight:   clampWeight(1.0, r.Meta.ConnectionWeightScale),
	})
	genes = genes.Insert(ConnectionGene{
		ID:       info.OutConnID,
		SourceID: info.NodeID,
		TargetID: split.TargetID,
		Weight:   split.Weight,
	})
	return genes, true
}

// addConnection samples up to addConnectionAttempts (source, target) pairs and adds the
// first one that is new to the parent. Targets are never input nodes. Acyclic genomes
// reject pairs that would close a cycle, self-loops included.
func (r *AsexualReproduction) addConnection(parent *Genome, ledger *InnovationLedger, rng *rand.Rand) (*ConnectionGenes, bool) {
	nodes := parent.nodeIDs()
	inputCount := parent.Meta.InputCount
	if len(nodes) <= inputCount {
		return nil, false
	}

	var graph *connectivityGraph
	if parent.Meta.IsAcyclic {
		graph = newConnectivityGraph(parent.Connections.Genes)
	}

	for attempt := 0; attempt < addConnectionAttempts; attempt++ {
		src := nodes[rng.Intn(len(nodes))]
		tgt := nodes[inputCount+rng.Intn(len(nodes)-inputCount)]
		conn := DirectedConnection{SourceID: src, TargetID: tgt}
		if parent.Connections.Contains(conn) {
			continue
		}
		if graph != nil && graph.wouldCreateCycle(src, tgt) {
			continue
		}
		id, _ := ledger.LookupOrAddConnection(conn, r.Seqs.Innovation)
		return parent.Connections.Insert(ConnectionGene{
			ID:       id,
			SourceID: src,
			TargetID: tgt,
			Weight:   sampleWeight(rng, r.Meta.ConnectionWeightScale),
		}), true
	}
	return nil, false
}

// deleteConnection removes one connection, chosen at random among those whose removal
// leaves every output that was reachable from an input still reachable. Hidden nodes
// left without connections disappear with them.
func (r *AsexualReproduction) deleteConnection(parent *Genome, rng *rand.Rand) (*ConnectionGenes, bool) {
	n := parent.Connections.Len()
	if n < 2 {
		return nil, false
	}
	in, out := parent.Meta.InputCount, parent.Meta.OutputCount
	graph := newConnectivityGraph(parent.Connections.Genes)
	before := graph.reachableOutputs(in, out)

	for _, idx := range rng.Perm(n) {
		gene := parent.Connections.Genes[idx]
		graph.removeEdge(gene.SourceID, gene.TargetID)
		after := graph.reachableOutputs(in, out)
		graph.addEdge(gene.SourceID, gene.TargetID)
		if keepsReachability(before, after) {
			return parent.Connections.Remove(idx), true
		}
	}
	return nil, false
}

// keepsReachability reports whether every output reached before is still reached after.
func keepsReachability(before, after []bool) bool {
	for i := range before {
		if before[i] && !after[i] {
			return false
		}
	}
	return true
}

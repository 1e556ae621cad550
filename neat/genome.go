package neat

import (
	"fmt"
	"sort"
)

// MetaNeatGenome holds the properties shared by every genome of an experiment.
// It is created once and never modified.
type MetaNeatGenome struct {
	InputCount            int
	OutputCount           int
	IsAcyclic             bool    // If true, recurrent connections are disallowed
	ActivationFnName      string  // Activation function applied at every non-input node
	ConnectionWeightScale float64 // Weights are kept within [-scale, scale]
}

// NewMetaNeatGenome creates and validates a meta genome.
func NewMetaNeatGenome(inputCount, outputCount int, isAcyclic bool, activationFnName string, weightScale float64) (*MetaNeatGenome, error) {
	m := &MetaNeatGenome{
		InputCount:            inputCount,
		OutputCount:           outputCount,
		IsAcyclic:             isAcyclic,
		ActivationFnName:      activationFnName,
		ConnectionWeightScale: weightScale,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// InputOutputCount returns the number of input and output nodes. Hidden node ids start here.
func (m *MetaNeatGenome) InputOutputCount() int {
	return m.InputCount + m.OutputCount
}

// Validate checks the meta genome fields.
func (m *MetaNeatGenome) Validate() error {
	if m.InputCount <= 0 {
		return fmt.Errorf("%w: input count must be positive, got %d", ErrInvalidConfig, m.InputCount)
	}
	if m.OutputCount <= 0 {
		return fmt.Errorf("%w: output count must be positive, got %d", ErrInvalidConfig, m.OutputCount)
	}
	if m.ActivationFnName == "" {
		return fmt.Errorf("%w: activation function name must be set", ErrInvalidConfig)
	}
	if m.ConnectionWeightScale <= 0 {
		return fmt.Errorf("%w: connection weight scale must be positive, got %g", ErrInvalidConfig, m.ConnectionWeightScale)
	}
	return nil
}

// FitnessInfo is the evaluation result attached to a genome by the fitness evaluator.
type FitnessInfo struct {
	PrimaryFitness   float64
	AuxFitnessScores []float64
}

// Genome is an immutable graph encoding of a neural network.
// Mutation operators never edit a genome; they build a new one.
type Genome struct {
	ID              int
	BirthGeneration int
	Meta            *MetaNeatGenome
	Connections     *ConnectionGenes
	HiddenNodeIDs   []int // Sorted, derived from Connections
	Fitness         FitnessInfo

	inDegree  map[int]int
	outDegree map[int]int
}

// NewGenome validates genes against meta and wraps them in a genome.
// Validation failures are wrapped in ErrInvalidGenome.
func NewGenome(meta *MetaNeatGenome, id, birthGeneration int, genes *ConnectionGenes) (*Genome, error) {
	if meta == nil {
		return nil, fmt.Errorf("%w: genome %d has no meta genome", ErrInvalidGenome, id)
	}
	if genes == nil {
		genes = &ConnectionGenes{}
	}
	if !genes.IsSorted() {
		return nil, fmt.Errorf("%w: genome %d genes are not sorted or contain duplicates", ErrInvalidGenome, id)
	}

	ioCount := meta.InputOutputCount()
	hidden := make(map[int]struct{})
	inDegree := make(map[int]int)
	outDegree := make(map[int]int)
	for _, g := range genes.Genes {
		if g.SourceID < 0 || g.TargetID < 0 {
			return nil, fmt.Errorf("%w: genome %d connection %d->%d has a negative node id", ErrInvalidGenome, id, g.SourceID, g.TargetID)
		}
		if g.TargetID < meta.InputCount {
			return nil, fmt.Errorf("%w: genome %d connection %d->%d targets an input node", ErrInvalidGenome, id, g.SourceID, g.TargetID)
		}
		if g.SourceID >= ioCount {
			hidden[g.SourceID] = struct{}{}
		}
		if g.TargetID >= ioCount {
			hidden[g.TargetID] = struct{}{}
		}
		outDegree[g.SourceID]++
		inDegree[g.TargetID]++
	}

	if meta.IsAcyclic && !newConnectivityGraph(genes.Genes).isAcyclic() {
		return nil, fmt.Errorf("%w: genome %d contains a cycle", ErrInvalidGenome, id)
	}

	hiddenIDs := make([]int, 0, len(hidden))
	for nid := range hidden {
		hiddenIDs = append(hiddenIDs, nid)
	}
	sort.Ints(hiddenIDs)

	return &Genome{
		ID:              id,
		BirthGeneration: birthGeneration,
		Meta:            meta,
		Connections:     genes,
		HiddenNodeIDs:   hiddenIDs,
		inDegree:        inDegree,
		outDegree:       outDegree,
	}, nil
}

// Complexity returns the gene count.
func (g *Genome) Complexity() float64 {
	return float64(g.Connections.Len())
}

// NodeCount returns the number of input, output and hidden nodes.
func (g *Genome) NodeCount() int {
	return g.Meta.InputOutputCount() + len(g.HiddenNodeIDs)
}

// IsHidden reports whether id is one of the genome's hidden nodes.
func (g *Genome) IsHidden(id int) bool {
	i := sort.SearchInts(g.HiddenNodeIDs, id)
	return i < len(g.HiddenNodeIDs) && g.HiddenNodeIDs[i] == id
}

// InDegree returns the number of connections targeting node id.
func (g *Genome) InDegree(id int) int {
	return g.inDegree[id]
}

// OutDegree returns the number of connections leaving node id.
func (g *Genome) OutDegree(id int) int {
	return g.outDegree[id]
}

// SetFitness records the evaluation result. It is the only write a genome accepts after
// construction and must not race with evaluation of the same genome.
func (g *Genome) SetFitness(primary float64, aux ...float64) {
	g.Fitness = FitnessInfo{PrimaryFitness: primary, AuxFitnessScores: aux}
}

// snapshot returns a copy sharing the genome's structure whose fitness is frozen at its
// current value.
func (g *Genome) snapshot() *Genome {
	cp := *g
	cp.Fitness.AuxFitnessScores = append([]float64(nil), g.Fitness.AuxFitnessScores...)
	return &cp
}

// String returns a short description of the genome.
func (g *Genome) String() string {
	return fmt.Sprintf("Genome(ID: %d, Gen: %d, Conns: %d, Hidden: %d, Fitness: %.4f)",
		g.ID, g.BirthGeneration, g.Connections.Len(), len(g.HiddenNodeIDs), g.Fitness.PrimaryFitness)
}

// nodeIDs returns every node id of the genome: inputs, outputs and hidden nodes.
func (g *Genome) nodeIDs() []int {
	ids := make([]int, 0, g.NodeCount())
	for i := 0; i < g.Meta.InputOutputCount(); i++ {
		ids = append(ids, i)
	}
	return append(ids, g.HiddenNodeIDs...)
}

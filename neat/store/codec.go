package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/baldhumanity/neat-engine/neat"
)

// CurrentCodecVersion is written into every encoded genome.
const CurrentCodecVersion = 1

// ErrVersionMismatch is returned when decoding a record written by another codec version.
var ErrVersionMismatch = errors.New("record version mismatch")

type metaRecord struct {
	InputCount            int     `json:"input_count"`
	OutputCount           int     `json:"output_count"`
	IsAcyclic             bool    `json:"is_acyclic"`
	ActivationFn          string  `json:"activation_fn"`
	ConnectionWeightScale float64 `json:"connection_weight_scale"`
}

type geneRecord struct {
	ID     int     `json:"id"`
	Source int     `json:"src"`
	Target int     `json:"tgt"`
	Weight float64 `json:"w"`
}

type genomeRecord struct {
	CodecVersion    int          `json:"codec_version"`
	ID              int          `json:"id"`
	BirthGeneration int          `json:"birth_generation"`
	Meta            metaRecord   `json:"meta"`
	Genes           []geneRecord `json:"genes"`
	Fitness         float64      `json:"fitness"`
	AuxFitness      []float64    `json:"aux_fitness,omitempty"`
}

// EncodeGenome serialises g, including its meta genome, as JSON.
func EncodeGenome(g *neat.Genome) ([]byte, error) {
	if g == nil || g.Meta == nil {
		return nil, errors.New("cannot encode a genome without meta genome")
	}
	rec := genomeRecord{
		CodecVersion:    CurrentCodecVersion,
		ID:              g.ID,
		BirthGeneration: g.BirthGeneration,
		Meta: metaRecord{
			InputCount:            g.Meta.InputCount,
			OutputCount:           g.Meta.OutputCount,
			IsAcyclic:             g.Meta.IsAcyclic,
			ActivationFn:          g.Meta.ActivationFnName,
			ConnectionWeightScale: g.Meta.ConnectionWeightScale,
		},
		Genes:      make([]geneRecord, 0, g.Connections.Len()),
		Fitness:    g.Fitness.PrimaryFitness,
		AuxFitness: g.Fitness.AuxFitnessScores,
	}
	for _, gene := range g.Connections.Genes {
		rec.Genes = append(rec.Genes, geneRecord{ID: gene.ID, Source: gene.SourceID, Target: gene.TargetID, Weight: gene.Weight})
	}
	return json.Marshal(rec)
}

// DecodeGenome rebuilds a genome from EncodeGenome output. The genome is revalidated.
func DecodeGenome(data []byte) (*neat.Genome, error) {
	var rec genomeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.CodecVersion != CurrentCodecVersion {
		return nil, fmt.Errorf("%w: got codec version %d, want %d", ErrVersionMismatch, rec.CodecVersion, CurrentCodecVersion)
	}
	meta, err := neat.NewMetaNeatGenome(rec.Meta.InputCount, rec.Meta.OutputCount, rec.Meta.IsAcyclic,
		rec.Meta.ActivationFn, rec.Meta.ConnectionWeightScale)
	if err != nil {
		return nil, err
	}
	genes := make([]neat.ConnectionGene, len(rec.Genes))
	for i, gr := range rec.Genes {
		genes[i] = neat.ConnectionGene{ID: gr.ID, SourceID: gr.Source, TargetID: gr.Target, Weight: gr.Weight}
	}
	g, err := neat.NewGenome(meta, rec.ID, rec.BirthGeneration, neat.NewConnectionGenes(genes))
	if err != nil {
		return nil, err
	}
	g.SetFitness(rec.Fitness, rec.AuxFitness...)
	return g, nil
}

func summarize(g *neat.Genome) GenomeSummary {
	return GenomeSummary{
		ID:              g.ID,
		BirthGeneration: g.BirthGeneration,
		Fitness:         g.Fitness.PrimaryFitness,
		Complexity:      g.Connections.Len(),
	}
}

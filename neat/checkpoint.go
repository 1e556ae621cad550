package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
)

// GenomeRecord is the serializable form of a Genome. Derived fields are rebuilt on load.
type GenomeRecord struct {
	ID              int
	BirthGeneration int
	Genes           []ConnectionGene
	Fitness         FitnessInfo
}

// NewGenomeRecord captures g.
func NewGenomeRecord(g *Genome) GenomeRecord {
	return GenomeRecord{
		ID:              g.ID,
		BirthGeneration: g.BirthGeneration,
		Genes:           g.Connections.Clone().Genes,
		Fitness:         g.Fitness,
	}
}

// Genome rebuilds and validates the genome under meta.
func (r GenomeRecord) Genome(meta *MetaNeatGenome) (*Genome, error) {
	genes := make([]ConnectionGene, len(r.Genes))
	copy(genes, r.Genes)
	g, err := NewGenome(meta, r.ID, r.BirthGeneration, &ConnectionGenes{Genes: genes})
	if err != nil {
		return nil, err
	}
	g.Fitness = r.Fitness
	return g, nil
}

// SpeciesRecord is the serializable form of a Species. The centroid is stored in full
// because it need not be a current member.
type SpeciesRecord struct {
	ID           int
	Centroid     GenomeRecord
	MemberIDs    []int
	Created      int
	LastImproved int
	BestFitness  float64
}

// PopulationSaveData is a helper struct to hold only the parts of Population needed for saving.
// We don't save the full Config, as it's supplied again on load.
type PopulationSaveData struct {
	Meta           MetaNeatGenome
	Genomes        []GenomeRecord
	Species        []SpeciesRecord
	Generation     int
	BestGenome     *GenomeRecord
	NextGenomeID   int
	NextInnovation int
	Ancestors      map[int][]int
}

// SaveCheckpoint saves the current state of the Population to a file.
// Uses gzip compression for smaller file size.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	// Use gzip for compression
	gzWriter := gzip.NewWriter(file)

	saveData := PopulationSaveData{
		Meta:           *p.Meta,
		Generation:     p.Generation,
		NextGenomeID:   p.Seqs.Genome.Peek(),
		NextInnovation: p.Seqs.Innovation.Peek(),
		Ancestors:      p.Reproduction.Ancestors,
	}
	for _, g := range p.Genomes {
		saveData.Genomes = append(saveData.Genomes, NewGenomeRecord(g))
	}
	for _, sp := range p.Species {
		rec := SpeciesRecord{
			ID:           sp.ID,
			Centroid:     NewGenomeRecord(sp.Centroid),
			Created:      sp.Created,
			LastImproved: sp.LastImproved,
			BestFitness:  sp.BestFitness,
		}
		for _, g := range sp.Members {
			rec.MemberIDs = append(rec.MemberIDs, g.ID)
		}
		saveData.Species = append(saveData.Species, rec)
	}
	if p.BestGenome != nil {
		best := NewGenomeRecord(p.BestGenome)
		saveData.BestGenome = &best
	}

	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint '%s': %w", filePath, err)
	}

	loggerOrDefault(p.Logger).Info("checkpoint saved", "path", filePath, "generation", p.Generation)
	return nil
}

// LoadCheckpoint loads a Population state from a checkpoint file.
// The configuration must describe the same meta genome as the one the checkpoint was saved with.
func LoadCheckpoint(checkpointPath string, config *Config, rng *rand.Rand, opts ...PopulationOption) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	// Use gzip for decompression
	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	saveData := PopulationSaveData{}
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}

	p, err := newPopulation(config, rng, opts...)
	if err != nil {
		return nil, err
	}
	if *p.Meta != saveData.Meta {
		return nil, fmt.Errorf("%w: checkpoint meta genome %+v does not match config %+v", ErrInvalidConfig, saveData.Meta, *p.Meta)
	}

	byID := make(map[int]*Genome, len(saveData.Genomes))
	for _, rec := range saveData.Genomes {
		g, err := rec.Genome(p.Meta)
		if err != nil {
			return nil, fmt.Errorf("failed to restore genome %d: %w", rec.ID, err)
		}
		p.Genomes = append(p.Genomes, g)
		byID[g.ID] = g
	}
	for _, rec := range saveData.Species {
		centroid, ok := byID[rec.Centroid.ID]
		if !ok {
			if centroid, err = rec.Centroid.Genome(p.Meta); err != nil {
				return nil, fmt.Errorf("failed to restore centroid of species %d: %w", rec.ID, err)
			}
		}
		sp := &Species{
			ID:           rec.ID,
			Centroid:     centroid,
			Created:      rec.Created,
			LastImproved: rec.LastImproved,
			BestFitness:  rec.BestFitness,
		}
		for _, id := range rec.MemberIDs {
			if g, ok := byID[id]; ok {
				sp.Members = append(sp.Members, g)
			}
		}
		p.Species = append(p.Species, sp)
	}
	if saveData.BestGenome != nil {
		if p.BestGenome, err = saveData.BestGenome.Genome(p.Meta); err != nil {
			return nil, fmt.Errorf("failed to restore best genome: %w", err)
		}
	}
	if saveData.Ancestors != nil {
		p.Reproduction.Ancestors = saveData.Ancestors
	}

	p.Generation = saveData.Generation
	p.Seqs.Genome.Reset(saveData.NextGenomeID)
	p.Seqs.Innovation.Reset(saveData.NextInnovation)
	p.Seqs.Generation.Reset(saveData.Generation)
	p.Ledger.Reset(saveData.Generation)

	loggerOrDefault(p.Logger).Info("checkpoint loaded", "path", checkpointPath, "generation", p.Generation)
	return p, nil
}

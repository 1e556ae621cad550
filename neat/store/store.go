// Package store persists genomes of evolution runs.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/baldhumanity/neat-engine/neat"
)

var (
	// ErrNotFound is returned when a run or genome does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotInitialized is returned by stores used before Init or after Close.
	ErrNotInitialized = errors.New("store is not initialized")
)

// GenomeSummary describes a stored genome without decoding its genes.
type GenomeSummary struct {
	ID              int
	BirthGeneration int
	Fitness         float64
	Complexity      int
}

// Store persists genomes keyed by run id and genome id. Saving an existing key replaces it.
type Store interface {
	Init(ctx context.Context) error
	SaveGenome(ctx context.Context, runID string, g *neat.Genome) error
	LoadGenome(ctx context.Context, runID string, id int) (*neat.Genome, error)
	// ListGenomes returns the run's genomes ordered by descending fitness, then id.
	ListGenomes(ctx context.Context, runID string) ([]GenomeSummary, error)
	// ListRuns returns every run id, sorted.
	ListRuns(ctx context.Context) ([]string, error)
	Close() error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

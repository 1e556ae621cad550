package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/baldhumanity/neat-engine/neat"
)

// MemoryStore keeps encoded genomes in memory. Genomes go through the codec so callers
// never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]map[int][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Init prepares the store. Calling it again keeps stored genomes.
func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runs == nil {
		s.runs = make(map[string]map[int][]byte)
	}
	return nil
}

// SaveGenome encodes g and stores it under (runID, g.ID), replacing any previous copy.
func (s *MemoryStore) SaveGenome(_ context.Context, runID string, g *neat.Genome) error {
	payload, err := EncodeGenome(g)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		return ErrNotInitialized
	}
	run, ok := s.runs[runID]
	if !ok {
		run = make(map[int][]byte)
		s.runs[runID] = run
	}
	run[g.ID] = payload
	return nil
}

// LoadGenome decodes the genome stored under (runID, id). A missing genome wraps ErrNotFound.
func (s *MemoryStore) LoadGenome(_ context.Context, runID string, id int) (*neat.Genome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runs == nil {
		return nil, ErrNotInitialized
	}
	payload, ok := s.runs[runID][id]
	if !ok {
		return nil, fmt.Errorf("%w: genome %d in run %s", ErrNotFound, id, runID)
	}
	return DecodeGenome(payload)
}

// ListGenomes returns summaries of the run's genomes, fittest first.
func (s *MemoryStore) ListGenomes(_ context.Context, runID string) ([]GenomeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runs == nil {
		return nil, ErrNotInitialized
	}
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}

	out := make([]GenomeSummary, 0, len(run))
	for _, payload := range run {
		g, err := DecodeGenome(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fitness != out[j].Fitness {
			return out[i].Fitness > out[j].Fitness
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListRuns returns the ids of every run with stored genomes.
func (s *MemoryStore) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runs == nil {
		return nil, ErrNotInitialized
	}
	runs := make([]string, 0, len(s.runs))
	for id := range s.runs {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}

// Close discards every stored genome. Init must be called again before reuse.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = nil
	return nil
}

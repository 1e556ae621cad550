package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/baldhumanity/neat-engine/neat"
)

// SQLiteStore keeps genomes in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store backed by the database file at path. Call Init before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the schema. Calling it again is a no-op.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.db = db
	return nil
}

// SaveGenome encodes g and upserts it under (runID, g.ID).
func (s *SQLiteStore) SaveGenome(ctx context.Context, runID string, g *neat.Genome) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeGenome(g)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO genomes (run_id, genome_id, birth_generation, fitness, complexity, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, genome_id) DO UPDATE SET
			birth_generation = excluded.birth_generation,
			fitness = excluded.fitness,
			complexity = excluded.complexity,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, runID, g.ID, g.BirthGeneration, g.Fitness.PrimaryFitness, g.Connections.Len(), CurrentCodecVersion, payload)
	if err != nil {
		return fmt.Errorf("save genome %d: %w", g.ID, err)
	}
	return nil
}

// LoadGenome decodes the genome stored under (runID, id). A missing genome wraps ErrNotFound.
func (s *SQLiteStore) LoadGenome(ctx context.Context, runID string, id int) (*neat.Genome, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM genomes WHERE run_id = ? AND genome_id = ?`, runID, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: genome %d in run %s", ErrNotFound, id, runID)
		}
		return nil, err
	}

	g, err := DecodeGenome(payload)
	if err != nil {
		return nil, fmt.Errorf("decode genome %d: %w", id, err)
	}
	return g, nil
}

// ListGenomes returns summaries of the run's genomes, fittest first.
func (s *SQLiteStore) ListGenomes(ctx context.Context, runID string) ([]GenomeSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT genome_id, birth_generation, fitness, complexity FROM genomes
		WHERE run_id = ?
		ORDER BY fitness DESC, genome_id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenomeSummary
	for rows.Next() {
		var gs GenomeSummary
		if err := rows.Scan(&gs.ID, &gs.BirthGeneration, &gs.Fitness, &gs.Complexity); err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	return out, nil
}

// ListRuns returns the ids of every run with stored genomes.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT DISTINCT run_id FROM genomes ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Close closes the database. The store can be initialised again afterwards.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS genomes (
			run_id TEXT NOT NULL,
			genome_id INTEGER NOT NULL,
			birth_generation INTEGER NOT NULL,
			fitness REAL NOT NULL,
			complexity INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, genome_id)
		);
		CREATE INDEX IF NOT EXISTS idx_genomes_fitness ON genomes (run_id, fitness DESC);
	`)
	return err
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neat-engine/neat"
	"github.com/baldhumanity/neat-engine/neat/nn"
	"github.com/baldhumanity/neat-engine/neat/store"
)

const testConfig = `
[NEAT]
pop_size = 20
fitness_threshold = 15.9

[Genome]
num_inputs = 2
num_outputs = 1
feed_forward = True
activation = LogisticSteep
initial_connections_proportion = 1.0

[Reproduction]
parallelism = 1

[Speciation]
species_count = 3
`

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "xor.ini")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func executeCmd(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), errOut.String())
	return out.String()
}

// xorGenome wires h = x0 AND NOT x1 and k = x1 AND NOT x0 into y = h OR k.
func xorGenome(t *testing.T) *neat.Genome {
	t.Helper()
	meta, err := neat.NewMetaNeatGenome(2, 1, true, "LogisticSteep", 10)
	require.NoError(t, err)
	genes := neat.NewConnectionGenes([]neat.ConnectionGene{
		{ID: 0, SourceID: 0, TargetID: 3, Weight: 2},
		{ID: 1, SourceID: 1, TargetID: 3, Weight: -2},
		{ID: 2, SourceID: 0, TargetID: 4, Weight: -2},
		{ID: 3, SourceID: 1, TargetID: 4, Weight: 2},
		{ID: 4, SourceID: 3, TargetID: 2, Weight: 2},
		{ID: 5, SourceID: 4, TargetID: 2, Weight: 2},
	})
	g, err := neat.NewGenome(meta, 1, 0, genes)
	require.NoError(t, err)
	return g
}

func TestXORFitness(t *testing.T) {
	eval := xorFitness(nn.NewDecoder())

	good, err := eval(context.Background(), xorGenome(t))
	require.NoError(t, err)
	assert.Greater(t, good.PrimaryFitness, 0.0)
	assert.LessOrEqual(t, good.PrimaryFitness, maxXORFitness)
	require.Len(t, good.AuxFitnessScores, 1)

	// A genome with no connections outputs 0 everywhere: sse = 2, fitness = 4.
	meta, err := neat.NewMetaNeatGenome(2, 1, true, "LogisticSteep", 5)
	require.NoError(t, err)
	empty, err := neat.NewGenome(meta, 2, 0, nil)
	require.NoError(t, err)
	info, err := eval(context.Background(), empty)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, info.PrimaryFitness, 1e-12)
	assert.InDelta(t, 2.0, info.AuxFitnessScores[0], 1e-12)
}

func TestPrintTruthTable(t *testing.T) {
	net, err := nn.NewDecoder().Decode(xorGenome(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	printTruthTable(&buf, net)
	assert.Contains(t, buf.String(), "Expected")
	assert.Contains(t, buf.String(), "[1 1]")
}

func TestRunAndShow(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	db := filepath.Join(dir, "xor.db")
	ckpt := filepath.Join(dir, "xor.gz")
	metrics := filepath.Join(dir, "metrics.prom")

	out := executeCmd(t, "run", "--config", cfg, "--generations", "3", "--seed", "11",
		"--db", db, "--checkpoint", ckpt, "--checkpoint-every", "1", "--metrics-file", metrics,
		"--log-level", "error")
	assert.Contains(t, out, "Evolution Complete")
	assert.Contains(t, out, "Best genome")
	assert.FileExists(t, ckpt)
	assert.FileExists(t, metrics)

	ctx := context.Background()
	st := store.NewSQLiteStore(db)
	require.NoError(t, st.Init(ctx))
	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NoError(t, st.Close())

	listing := executeCmd(t, "show", "--db", db)
	assert.Contains(t, listing, runs[0])

	shown := executeCmd(t, "show", "--db", db, "--run", runs[0])
	assert.Contains(t, shown, "Genome(ID:")
	assert.Contains(t, shown, "Expected")

	// Resuming from the checkpoint continues from the saved generation.
	resumed := executeCmd(t, "run", "--config", cfg, "--generations", "4", "--seed", "11",
		"--db", db, "--checkpoint", ckpt, "--log-level", "error")
	assert.Contains(t, resumed, "Evolution Complete")
}

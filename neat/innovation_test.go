package neat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	s := NewSequence(5)
	assert.Equal(t, 5, s.Peek())
	assert.Equal(t, 5, s.Next())
	assert.Equal(t, 6, s.Next())
	assert.Equal(t, 7, s.Peek())

	s.EnsureAbove(3)
	assert.Equal(t, 7, s.Peek(), "EnsureAbove never moves backwards")
	s.EnsureAbove(20)
	assert.Equal(t, 21, s.Next())

	s.Reset(0)
	assert.Equal(t, 0, s.Next())
}

func TestSequence_ConcurrentNextIsUnique(t *testing.T) {
	s := NewSequence(0)
	const workers, perWorker = 8, 500
	ids := make([][]int, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids[w] = append(ids[w], s.Next())
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, list := range ids {
		for _, id := range list {
			require.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, workers*perWorker, s.Peek())
}

func TestNewIDSequences(t *testing.T) {
	seqs := NewIDSequences(testMeta(t, 3, 2, true))
	assert.Equal(t, 5, seqs.Innovation.Peek(), "innovation ids start after input and output nodes")
	assert.Equal(t, 0, seqs.Genome.Peek())
	assert.Equal(t, 0, seqs.Generation.Peek())
}

func TestInnovationLedger_NodeReuse(t *testing.T) {
	seq := NewSequence(10)
	l := NewInnovationLedger(3, 0)
	assert.Equal(t, 3, l.Generation())

	first, reused := l.LookupOrAddNode(7, seq)
	assert.False(t, reused)
	assert.Equal(t, AddedNodeInfo{NodeID: 10, InConnID: 11, OutConnID: 12}, first)

	again, reused := l.LookupOrAddNode(7, seq)
	assert.True(t, reused)
	assert.Equal(t, first, again)
	assert.Equal(t, 13, seq.Peek(), "a reused split mints nothing")

	other, reused := l.LookupOrAddNode(8, seq)
	assert.False(t, reused)
	assert.Equal(t, 13, other.NodeID)

	info, ok := l.AddedNode(7)
	assert.True(t, ok)
	assert.Equal(t, first, info)
}

func TestInnovationLedger_ConnectionReuse(t *testing.T) {
	seq := NewSequence(100)
	l := NewInnovationLedger(0, 0)
	conn := DirectedConnection{SourceID: 0, TargetID: 4}

	id, reused := l.LookupOrAddConnection(conn, seq)
	assert.False(t, reused)
	assert.Equal(t, 100, id)

	id2, reused := l.LookupOrAddConnection(conn, seq)
	assert.True(t, reused)
	assert.Equal(t, id, id2)

	id3, _ := l.LookupOrAddConnection(DirectedConnection{SourceID: 4, TargetID: 0}, seq)
	assert.NotEqual(t, id, id3, "direction matters")

	got, ok := l.AddedConnection(conn)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestInnovationLedger_CapacityEvictsOldest(t *testing.T) {
	seq := NewSequence(0)
	l := NewInnovationLedger(0, 2)

	a, _ := l.LookupOrAddNode(1, seq)
	l.LookupOrAddNode(2, seq)
	l.LookupOrAddNode(3, seq)
	nodes, _ := l.Len()
	assert.Equal(t, 2, nodes)

	_, ok := l.AddedNode(1)
	assert.False(t, ok, "oldest split should have been evicted")
	fresh, reused := l.LookupOrAddNode(1, seq)
	assert.False(t, reused)
	assert.NotEqual(t, a.NodeID, fresh.NodeID)
}

func TestInnovationLedger_Reset(t *testing.T) {
	seq := NewSequence(0)
	l := NewInnovationLedger(0, 0)
	l.LookupOrAddNode(1, seq)
	l.LookupOrAddConnection(DirectedConnection{SourceID: 0, TargetID: 1}, seq)

	l.Reset(4)
	nodes, conns := l.Len()
	assert.Zero(t, nodes)
	assert.Zero(t, conns)
	assert.Equal(t, 4, l.Generation())
}

func TestInnovationLedger_ConcurrentLookups(t *testing.T) {
	seq := NewSequence(0)
	l := NewInnovationLedger(0, 0)
	results := make([]AddedNodeInfo, 16)

	var wg sync.WaitGroup
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = l.LookupOrAddNode(42, seq)
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, 3, seq.Peek())
}

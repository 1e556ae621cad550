package neat

import "sync/atomic"

// Sequence issues monotonically increasing integer ids.
// It is safe for concurrent use by multiple reproduction workers.
type Sequence struct {
	next atomic.Int64
}

// NewSequence creates a sequence whose first call to Next returns start.
func NewSequence(start int) *Sequence {
	s := &Sequence{}
	s.next.Store(int64(start))
	return s
}

// Next returns the current value and advances the sequence.
func (s *Sequence) Next() int {
	return int(s.next.Add(1) - 1)
}

// Peek returns the value the next call to Next will return.
func (s *Sequence) Peek() int {
	return int(s.next.Load())
}

// Reset moves the sequence to the given value.
func (s *Sequence) Reset(to int) {
	s.next.Store(int64(to))
}

// EnsureAbove advances the sequence so that Next never returns a value <= id.
// Used when genomes loaded from a store or checkpoint already carry ids.
func (s *Sequence) EnsureAbove(id int) {
	for {
		cur := s.next.Load()
		if cur > int64(id) {
			return
		}
		if s.next.CompareAndSwap(cur, int64(id)+1) {
			return
		}
	}
}

// IDSequences groups the sequences shared across one evolutionary run.
type IDSequences struct {
	Genome     *Sequence // genome ids
	Innovation *Sequence // hidden node ids and connection innovation ids
	Generation *Sequence
}

// NewIDSequences creates the sequences for a run with the given meta genome.
// Innovation ids start after the input and output node ids.
func NewIDSequences(meta *MetaNeatGenome) *IDSequences {
	return &IDSequences{
		Genome:     NewSequence(0),
		Innovation: NewSequence(meta.InputOutputCount()),
		Generation: NewSequence(0),
	}
}

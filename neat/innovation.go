package neat

import "sync"

// DefaultLedgerCapacity bounds each buffer of an InnovationLedger.
const DefaultLedgerCapacity = 4096

// AddedNodeInfo records the ids minted when a connection was split by an add-node mutation.
type AddedNodeInfo struct {
	NodeID    int // the new hidden node
	InConnID  int // source -> new node
	OutConnID int // new node -> target
}

// InnovationLedger deduplicates structural mutations within one generation, so that two
// genomes receiving the same structural change end up with the same node and connection ids.
// It is the only mutable state shared between concurrent reproduction workers.
type InnovationLedger struct {
	mu         sync.Mutex
	generation int
	capacity   int

	addedNodes     map[int]AddedNodeInfo // split connection id -> new ids
	addedNodeOrder []int

	addedConns     map[DirectedConnection]int // (source, target) -> connection id
	addedConnOrder []DirectedConnection
}

// NewInnovationLedger creates an empty ledger for the given generation.
// A capacity <= 0 selects DefaultLedgerCapacity.
func NewInnovationLedger(generation, capacity int) *InnovationLedger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	return &InnovationLedger{
		generation: generation,
		capacity:   capacity,
		addedNodes: make(map[int]AddedNodeInfo),
		addedConns: make(map[DirectedConnection]int),
	}
}

// Generation returns the generation the ledger currently serves.
func (l *InnovationLedger) Generation() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Reset discards both buffers and moves the ledger to a new generation.
func (l *InnovationLedger) Reset(generation int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation = generation
	l.addedNodes = make(map[int]AddedNodeInfo)
	l.addedNodeOrder = l.addedNodeOrder[:0]
	l.addedConns = make(map[DirectedConnection]int)
	l.addedConnOrder = l.addedConnOrder[:0]
}

// AddedNode returns the ids recorded for a split of the given connection, if any.
func (l *InnovationLedger) AddedNode(splitConnID int) (AddedNodeInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, ok := l.addedNodes[splitConnID]
	return info, ok
}

// AddedConnection returns the connection id recorded for a new (source, target) pair, if any.
func (l *InnovationLedger) AddedConnection(conn DirectedConnection) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.addedConns[conn]
	return id, ok
}

// LookupOrAddNode resolves the ids for splitting splitConnID, minting and recording
// fresh ids from seq when the split has not been seen this generation.
// The boolean result reports whether the ids were reused.
func (l *InnovationLedger) LookupOrAddNode(splitConnID int, seq *Sequence) (AddedNodeInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if info, ok := l.addedNodes[splitConnID]; ok {
		return info, true
	}
	info := AddedNodeInfo{
		NodeID:    seq.Next(),
		InConnID:  seq.Next(),
		OutConnID: seq.Next(),
	}
	if len(l.addedNodeOrder) >= l.capacity {
		oldest := l.addedNodeOrder[0]
		l.addedNodeOrder = l.addedNodeOrder[1:]
		delete(l.addedNodes, oldest)
	}
	l.addedNodes[splitConnID] = info
	l.addedNodeOrder = append(l.addedNodeOrder, splitConnID)
	return info, false
}

// LookupOrAddConnection resolves the innovation id for a new connection, minting and
// recording a fresh id from seq when the pair has not been seen this generation.
func (l *InnovationLedger) LookupOrAddConnection(conn DirectedConnection, seq *Sequence) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.addedConns[conn]; ok {
		return id, true
	}
	id := seq.Next()
	if len(l.addedConnOrder) >= l.capacity {
		oldest := l.addedConnOrder[0]
		l.addedConnOrder = l.addedConnOrder[1:]
		delete(l.addedConns, oldest)
	}
	l.addedConns[conn] = id
	l.addedConnOrder = append(l.addedConnOrder, conn)
	return id, false
}

// Len returns the number of recorded added-node and added-connection entries.
func (l *InnovationLedger) Len() (nodes, conns int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.addedNodes), len(l.addedConns)
}

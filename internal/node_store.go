package internal

import "sync/atomic"

// NodeFactory creates nodes. It is the only place new nodes come from, so clones made while
// building a version can never alias a node that is already published.
type NodeFactory interface {
	// NewLeaf returns a single element node with no children.
	NewLeaf(value int64, priority uint32) *Node
	// Clone returns a shallow copy of node sharing its children. Clone(nil) is nil.
	Clone(node *Node) *Node
	// Allocated reports how many nodes the factory has handed out.
	Allocated() uint64
}

// MemStore allocates every node individually and leaves reclamation to the garbage collector.
// A node lives as long as any version root can still reach it.
type MemStore struct {
	allocated atomic.Uint64
}

func (m *MemStore) NewLeaf(value int64, priority uint32) *Node {
	m.allocated.Add(1)
	return &Node{
		value:    value,
		sum:      value,
		size:     1,
		priority: priority,
	}
}

func (m *MemStore) Clone(node *Node) *Node {
	if node == nil {
		return nil
	}
	m.allocated.Add(1)
	newNode := *node
	return &newNode
}

func (m *MemStore) Allocated() uint64 {
	return m.allocated.Load()
}

const DefaultArenaChunk = 4096

// Arena hands out nodes from fixed size chunks that are only ever appended to.
// A chunk is reclaimed by the garbage collector once no version reaches any node in it.
//
// Arena is not safe for concurrent allocation; callers serialize writers. Allocated may be
// read concurrently.
type Arena struct {
	chunk     []Node
	chunkSize int
	chunks    int
	allocated atomic.Uint64
}

func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultArenaChunk
	}
	return &Arena{chunkSize: chunkSize}
}

func (a *Arena) alloc() *Node {
	if len(a.chunk) == 0 {
		a.chunk = make([]Node, a.chunkSize)
		a.chunks++
	}
	node := &a.chunk[0]
	a.chunk = a.chunk[1:]
	a.allocated.Add(1)
	return node
}

func (a *Arena) NewLeaf(value int64, priority uint32) *Node {
	node := a.alloc()
	node.value = value
	node.sum = value
	node.size = 1
	node.priority = priority
	return node
}

func (a *Arena) Clone(node *Node) *Node {
	if node == nil {
		return nil
	}
	newNode := a.alloc()
	*newNode = *node
	return newNode
}

func (a *Arena) Allocated() uint64 {
	return a.allocated.Load()
}

// Chunks reports how many chunks have been allocated so far.
func (a *Arena) Chunks() int {
	return a.chunks
}

var (
	_ NodeFactory = (*MemStore)(nil)
	_ NodeFactory = (*Arena)(nil)
)

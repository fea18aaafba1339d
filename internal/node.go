package internal

// Node is one element of a sequence together with the aggregates of the subtree rooted at it.
// A node's position is never stored; it is derived from the sizes of the subtrees to its left.
//
// Nodes reachable from a published root are shared between versions and must never be written
// again. Every change goes through a copy made by a NodeFactory.
type Node struct {
	value    int64
	sum      int64
	size     int
	priority uint32
	// reversed means the children are logically swapped and each child subtree is itself
	// logically reversed, but none of that has been written into the children yet.
	reversed bool
	left     *Node
	right    *Node
}

func (node *Node) Value() int64 {
	return node.value
}

func (node *Node) Priority() uint32 {
	return node.priority
}

func (node *Node) Reversed() bool {
	return node.reversed
}

// Left returns the stored left child. It does not account for a pending reversal on node.
func (node *Node) Left() *Node {
	return node.left
}

// Right returns the stored right child. It does not account for a pending reversal on node.
func (node *Node) Right() *Node {
	return node.right
}

// Size returns the number of elements under node; a nil node is empty.
func (node *Node) Size() int {
	if node == nil {
		return 0
	}
	return node.size
}

// Sum returns the sum of the values under node; a nil node sums to zero.
func (node *Node) Sum() int64 {
	if node == nil {
		return 0
	}
	return node.sum
}

// IMPORTANT: nodes that call this method must be new or copies first
func (node *Node) updateSizeSum() {
	node.size = node.left.Size() + node.right.Size() + 1
	node.sum = node.left.Sum() + node.right.Sum() + node.value
}

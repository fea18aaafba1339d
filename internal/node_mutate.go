package internal

import "fmt"

// pushDown writes a pending reversal on node into fresh copies of its children, swaps them and
// clears the flag. The old children stay untouched for every version that still shares them.
//
// IMPORTANT: nodes called with this method must be new or copies first.
// Code reviewers should use find usages to ensure that all callers follow this rule!
func pushDown(store NodeFactory, node *Node) {
	if !node.reversed {
		return
	}
	left := store.Clone(node.left)
	right := store.Clone(node.right)
	if left != nil {
		left.reversed = !left.reversed
	}
	if right != nil {
		right.reversed = !right.reversed
	}
	node.left, node.right = right, left
	node.reversed = false
}

// mutate returns a copy of node whose direct children are valid without any pending reversal.
func mutate(store NodeFactory, node *Node) *Node {
	newNode := store.Clone(node)
	pushDown(store, newNode)
	return newNode
}

// ToggleReversed returns a copy of node with its lazy reversal flag flipped. Only the root of the
// range is copied; the rest of the subtree is reversed lazily as later operations descend into it.
func ToggleReversed(store NodeFactory, node *Node) *Node {
	if node == nil {
		return nil
	}
	newNode := store.Clone(node)
	newNode.reversed = !newNode.reversed
	return newNode
}

// Split partitions the sequence under node into its first k elements and the rest.
// node and every version sharing it are left unchanged; only nodes on the descent path are copied.
// k must be within [0, node.Size()].
func Split(store NodeFactory, node *Node, k int) (left, right *Node) {
	if k < 0 || k > node.Size() {
		panic(fmt.Sprintf("split index %d out of range [0, %d]", k, node.Size()))
	}
	return splitRecursive(store, node, k)
}

func splitRecursive(store NodeFactory, node *Node, k int) (*Node, *Node) {
	switch {
	case node == nil:
		return nil, nil
	case k == 0:
		return nil, node
	case k == node.size:
		return node, nil
	}

	newNode := mutate(store, node)
	leftSize := newNode.left.Size()
	if leftSize+1 <= k {
		a, b := splitRecursive(store, newNode.right, k-leftSize-1)
		newNode.right = a
		newNode.updateSizeSum()
		return newNode, b
	}

	a, b := splitRecursive(store, newNode.left, k)
	newNode.left = b
	newNode.updateSizeSum()
	return a, newNode
}

// Merge concatenates left and right. Every element under left must precede every element under
// right by position. The root with the higher priority wins; ties go to left.
func Merge(store NodeFactory, left, right *Node) *Node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}

	if left.priority >= right.priority {
		newNode := mutate(store, left)
		newNode.right = Merge(store, newNode.right, right)
		newNode.updateSizeSum()
		return newNode
	}

	newNode := mutate(store, right)
	newNode.left = Merge(store, left, newNode.left)
	newNode.updateSizeSum()
	return newNode
}

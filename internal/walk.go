package internal

// The functions in this file only read nodes. A pending reversal is tracked as a flag carried down
// the descent instead of being pushed into the children, so they are safe to call on any published
// root from any number of goroutines.

// children returns node's children in logical order given the reversal inherited from above, along
// with the reversal that applies to them.
func children(node *Node, flip bool) (first, second *Node, childFlip bool) {
	childFlip = flip != node.reversed
	if childFlip {
		return node.right, node.left, childFlip
	}
	return node.left, node.right, childFlip
}

// Walk calls fn for every value under node in position order. Returning false from fn stops the
// walk; Walk reports whether it ran to completion.
func Walk(node *Node, fn func(value int64) bool) bool {
	return walk(node, false, fn)
}

func walk(node *Node, flip bool, fn func(value int64) bool) bool {
	if node == nil {
		return true
	}
	first, second, childFlip := children(node, flip)
	if !walk(first, childFlip, fn) {
		return false
	}
	if !fn(node.value) {
		return false
	}
	return walk(second, childFlip, fn)
}

// Values returns the sequence under node.
func Values(node *Node) []int64 {
	values := make([]int64, 0, node.Size())
	Walk(node, func(value int64) bool {
		values = append(values, value)
		return true
	})
	return values
}

// PrefixSum returns the sum of the first k elements under node. k is clamped to [0, node.Size()].
func PrefixSum(node *Node, k int) int64 {
	var (
		sum  int64
		flip bool
	)
	for node != nil && k > 0 {
		if k >= node.size {
			return sum + node.sum
		}
		first, second, childFlip := children(node, flip)
		flip = childFlip
		if k <= first.Size() {
			node = first
			continue
		}
		sum += first.Sum() + node.value
		k -= first.Size() + 1
		node = second
	}
	return sum
}

// RangeSum returns the sum of the elements at zero based positions [from, to).
func RangeSum(node *Node, from, to int) int64 {
	return PrefixSum(node, to) - PrefixSum(node, from)
}

// At returns the value at zero based position i. The caller guarantees 0 <= i < node.Size().
func At(node *Node, i int) int64 {
	var flip bool
	for {
		first, second, childFlip := children(node, flip)
		flip = childFlip
		leftSize := first.Size()
		switch {
		case i < leftSize:
			node = first
		case i == leftSize:
			return node.value
		default:
			i -= leftSize + 1
			node = second
		}
	}
}

// Depth returns the height of the tree under node, counting a single node as 1.
func Depth(node *Node) int {
	if node == nil {
		return 0
	}
	return max(Depth(node.left), Depth(node.right)) + 1
}

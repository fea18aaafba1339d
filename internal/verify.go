package internal

import "fmt"

// Verify checks every node reachable from root:
//   - size equals the children's sizes plus one
//   - sum equals the children's sums plus the node's value
//   - no child has a higher priority than its parent
//
// Nodes shared by several paths are checked once.
func Verify(root *Node) error {
	seen := make(map[*Node]struct{})
	var check func(node *Node, depth int) error
	check = func(node *Node, depth int) error {
		if node == nil {
			return nil
		}
		if _, ok := seen[node]; ok {
			return nil
		}
		seen[node] = struct{}{}

		for _, child := range [2]*Node{node.left, node.right} {
			if child != nil && child.priority > node.priority {
				return fmt.Errorf("heap property violated at depth %d: child priority %d > parent priority %d",
					depth, child.priority, node.priority)
			}
		}
		if want := node.left.Size() + node.right.Size() + 1; node.size != want {
			return fmt.Errorf("size mismatch at depth %d: have %d, want %d", depth, node.size, want)
		}
		if want := node.left.Sum() + node.right.Sum() + node.value; node.sum != want {
			return fmt.Errorf("sum mismatch at depth %d: have %d, want %d", depth, node.sum, want)
		}

		if err := check(node.left, depth+1); err != nil {
			return err
		}
		return check(node.right, depth+1)
	}
	return check(root, 0)
}

// CountNodes returns the number of distinct nodes reachable from any of roots. Shared subtrees are
// counted once, which makes the result the memory actually held by that set of versions.
func CountNodes(roots ...*Node) int {
	seen := make(map[*Node]struct{})
	var count func(node *Node)
	count = func(node *Node) {
		if node == nil {
			return
		}
		if _, ok := seen[node]; ok {
			return
		}
		seen[node] = struct{}{}
		count(node.left)
		count(node.right)
	}
	for _, root := range roots {
		count(root)
	}
	return len(seen)
}

package internal

import (
	"fmt"
	"io"

	"github.com/emicklei/dot"
)

// GraphRoot names a root to render, usually one version.
type GraphRoot struct {
	Label string
	Root  *Node
}

// RenderDotGraph writes a DOT digraph of everything reachable from roots. A node shared by several
// roots is emitted once with several incoming edges, so the output shows the DAG the versions form
// rather than one tree per version. Nodes carrying a pending reversal are drawn dashed.
func RenderDotGraph(w io.Writer, roots ...GraphRoot) error {
	graph := dot.NewGraph(dot.Directed)
	ids := make(map[*Node]dot.Node)

	var traverse func(node *Node) dot.Node
	traverse = func(node *Node) dot.Node {
		if n, ok := ids[node]; ok {
			return n
		}
		label := fmt.Sprintf("val:%d sz:%d sum:%d pri:%d", node.value, node.size, node.sum, node.priority)
		n := graph.Node(fmt.Sprintf("n%d", len(ids))).Label(label)
		if node.reversed {
			n.Attr("style", "dashed")
		}
		ids[node] = n

		if node.left != nil {
			n.Edge(traverse(node.left), "l")
		}
		if node.right != nil {
			n.Edge(traverse(node.right), "r")
		}
		return n
	}

	for i, root := range roots {
		v := graph.Node(fmt.Sprintf("root%d", i)).Label(root.Label).Attr("shape", "box")
		if root.Root != nil {
			v.Edge(traverse(root.Root))
		}
	}

	_, err := io.WriteString(w, graph.String())
	return err
}

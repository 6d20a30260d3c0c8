// Package digraphutils provides utilities for directed graphs, represented as
// a mapping from node keys to edges.
package digraphutils

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/refaktor/injgen/textutils"
)

// Reachable returns the nodes reachable from roots, roots included, in
// breadth-first order.
func Reachable[K comparable](roots []K, edges func(K) []K) []K {
	seen := map[K]struct{}{}
	var res []K
	nodes := slices.Clone(roots)
	var newNodes []K
	for len(nodes) > 0 {
		for _, node := range nodes {
			if _, ok := seen[node]; ok {
				continue
			}
			seen[node] = struct{}{}
			res = append(res, node)
			newNodes = append(newNodes, edges(node)...)
		}
		nodes, newNodes = newNodes, nodes[:0]
	}
	return res
}

// DOTCode generates graphviz DOT code to visualize a graph.
// nodes represents all nodes included in the graph; edges to other nodes
// are dropped. name is the name of the digraph, prelude DOT code inserted
// in the beginning, and label returns the label of a node.
func DOTCode[K comparable](nodes []K, edges func(K) []K, name, prelude string, label func(K) string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "digraph %v {\n", strconv.Quote(name))
	if prelude = strings.TrimSpace(prelude); prelude != "" {
		b.WriteString(textutils.IndentString(prelude, "  ", 1))
		b.WriteByte('\n')
	}
	nodeIDs := map[K]int{}
	for id, key := range nodes {
		fmt.Fprintf(&b, "  %v [label=%v]\n", id, strconv.Quote(label(key)))
		nodeIDs[key] = id
	}
	for id, key := range nodes {
		edgs := slices.DeleteFunc(slices.Clone(edges(key)), func(k K) bool {
			_, ok := nodeIDs[k]
			return !ok
		})
		if len(edgs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %v -> {", id)
		for i, edg := range edgs {
			if i != 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%v", nodeIDs[edg])
		}
		b.WriteString("}\n")
	}
	b.WriteString("}\n")
	return b.Bytes()
}

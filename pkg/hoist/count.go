package hoist

import "slices"

// Graph is the children view needed by the traversal.
type Graph interface {
	Children(id string) []string
}

// RefCounts maps node IDs to the number of distinct parents referencing them.
// The root only has an entry if some node references it.
type RefCounts map[string]int

// IDs returns the counted node IDs sorted lexically.
func (c RefCounts) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Count traverses g from root and counts references per node.
//
// Every node reachable from root is expanded once. Children are pushed onto
// the worklist whether or not they were visited, so that every edge is
// observed; the visited check on pop keeps expansion bounded on cycles.
func Count(g Graph, root string) RefCounts {
	counts := make(RefCounts)
	visited := make(map[string]bool)
	stack := []string{root}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		children := distinct(g.Children(id))
		for _, child := range children {
			counts[child]++
		}
		stack = append(stack, children...)
	}
	return counts
}

// distinct removes repeated IDs, keeping first occurrences in order.
func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

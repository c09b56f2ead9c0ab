package hoist

import "slices"

// Set is the set of node IDs placed once under the root module directory.
type Set map[string]struct{}

// Has reports whether id is hoisted.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the hoisted IDs sorted lexically.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Plan returns every node whose reference count is strictly greater than one,
// excluding root.
func Plan(counts RefCounts, root string) Set {
	set := make(Set)
	for id, n := range counts {
		if n > 1 && id != root {
			set[id] = struct{}{}
		}
	}
	return set
}

// Package hoist decides which packages are shared and placed once at the top
// of the module tree.
//
// # Reference Counting
//
// [Count] walks the graph from the root with a LIFO worklist. Each reachable
// node is expanded exactly once; every expansion adds one reference to each
// distinct child it lists. The result is, per node, the number of distinct
// parents that depend on it. Cycles and shared sub-dependencies are bounded
// by the visited set.
//
// # Planning
//
// [Plan] selects every node referenced by more than one parent. The root is
// never selected, even when a cycle leads back to it.
//
//	counts := hoist.Count(accessor, accessor.Root())
//	set := hoist.Plan(counts, accessor.Root())
//	if set.Has(id) {
//	    // place id directly under the root module directory
//	}
package hoist

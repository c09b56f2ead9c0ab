// Package layout assigns every reachable package a destination in the module
// tree and realizes the assignment with links.
//
// # Placement Rules
//
// The walk starts at the root and at every hoisted package, all based at the
// root module directory. Each package is placed at most once:
//
//   - the root itself is never linked; its children sit directly in the root
//     module directory
//   - a hoisted package sits directly in the root module directory
//   - any other package sits in the private module directory of the package
//     that introduced it: <parent dest>/<modules dir name>/<name>
//
// For a graph root -> {A, B}, A -> {C}, B -> {C}, A -> {D}:
//
//	node_modules/A
//	node_modules/B
//	node_modules/C                 (hoisted, two referrers)
//	node_modules/A/node_modules/D  (private to A)
//
// # Name Conflicts
//
// Two distinct package instances with the same name can claim the same
// destination. [ConflictError] aborts the run; [ConflictFirst] keeps the
// first claimant and skips the later one together with its private subtree.
//
// # Materializing
//
// [Walker.Plan] computes the entries without touching the filesystem.
// [Walker.Materialize] walks and links in one pass, dispatching links
// concurrently; a nested entry is linked only after the entry that contains
// it. [Apply] links a previously computed [Layout].
package layout

// Package pkg provides the core libraries for stacklink, a layout engine that
// turns a resolved lockfile into a hoisted node_modules tree of symlinks.
//
// # Overview
//
// A lockfile lists every package of a project and the packages each one
// depends on. An installation table says where each package was unpacked.
// stacklink links every package reachable from the root into the project's
// module directory, hoisting packages needed by more than one dependent to
// the top level and nesting the rest under the package that needs them.
//
// # Architecture
//
// The data flow through stacklink:
//
//	esy.lock/index.json + installation.json
//	         ↓
//	    [lockfile] package (graph + installations, dev dependency filter)
//	         ↓
//	    [hoist] package (reference counts → hoisted set)
//	         ↓
//	    [layout] package (destination per package, concurrent links)
//	         ↓
//	    node_modules/ (symlinks into the installed sources)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/stacklink/pkg/fsops"
//	    "github.com/matzehuels/stacklink/pkg/hoist"
//	    "github.com/matzehuels/stacklink/pkg/layout"
//	    "github.com/matzehuels/stacklink/pkg/lockfile"
//	    "github.com/matzehuels/stacklink/pkg/pkgid"
//	)
//
//	g, _ := lockfile.ReadFile("esy.lock/index.json")
//	inst, _ := lockfile.ReadInstallationsFile("_esy/default/installation.json")
//
//	acc := lockfile.NewAccessor(g, pkgid.NewResolver(nil), lockfile.DevAll)
//	hoisted := hoist.Plan(hoist.Count(acc, g.Root()), g.Root())
//
//	w := layout.NewWalker(acc, inst, layout.Options{ProjectDir: "."})
//	report, err := w.Materialize(context.Background(), hoisted, fsops.NewSymlinkLinker(nil))
//
// Most callers use [pipeline] instead, which adds loading, caching and
// statistics on top of these steps.
//
// # Main Packages
//
// [lockfile] - Lockfile and installation table readers. The Accessor filters
// children of opam packages and applies the devDependency mode.
//
// [pkgid] - Package identifier parsing ("name@version@hash") with a run-scoped
// memoizing resolver. Unparseable ids degrade to their raw form.
//
// [hoist] - Reference counting over the dependency graph and the hoisting
// decision (count > 1, never the root).
//
// [layout] - Destination assignment and link scheduling. Walker.Plan is a dry
// run; Walker.Materialize links as it walks.
//
// [fsops] - The link primitive: mkdir -p plus an idempotent symlink.
//
// [cache] - Layout plan cache with file, Redis, MongoDB and null backends.
//
// [pipeline] - Load → count → plan → link orchestration used by the CLI.
//
// [render/nodelink] - Graphviz rendering of a planned layout.
//
// [config] - stacklink.toml project configuration.
//
// [observability] - Hooks for counting, planning, linking and cache events.
//
// # Testing
//
//	go test ./...                        # All tests
//	go test -tags integration ./pkg/...  # Include the MongoDB cache test
//
// [lockfile]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/lockfile
// [pkgid]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/pkgid
// [hoist]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/hoist
// [layout]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/layout
// [fsops]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/fsops
// [cache]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/pipeline
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/render/nodelink
// [config]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/stacklink/pkg/observability
package pkg

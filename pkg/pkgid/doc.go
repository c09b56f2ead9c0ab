// Package pkgid turns lockfile node identifiers into package descriptors.
//
// # Identifier Format
//
// A node identifier encodes the package name, its resolved version and a
// disambiguating hash, separated by "@":
//
//	lodash@4.17.21@d41d8cd9
//	@esy-ocaml/substs@0.0.1@a1b2c3d4
//	@opam/dune@opam:3.11.1@f00dfeed
//
// The trailing hash is dropped, the remainder is split into name and version.
// A version prefixed with "opam:" marks an external-origin package: a package
// from a secondary package system that is not placed in the module tree.
//
// # Resolution
//
// [Parse] is the pure parsing function. [Resolver] memoizes parse results for
// the lifetime of one run and never fails: an identifier that cannot be
// parsed yields a degraded [Resolution] whose Name is the raw identifier, so
// the layout traversal can still place it best-effort.
//
//	r := pkgid.NewResolver(logger)
//	res := r.Resolve("lodash@4.17.21@d41d8cd9")
//	if res.Degraded() {
//	    // res.Name == res.ID
//	}
package pkgid

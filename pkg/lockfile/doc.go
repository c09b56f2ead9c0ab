// Package lockfile loads resolved dependency graphs and installation tables.
//
// # Lockfile Document
//
// A lockfile is a JSON document naming the root node and every resolved node
// with its ordered runtime and development dependencies:
//
//	{
//	  "root": "app@link-dev:./package.json@7e1a",
//	  "node": {
//	    "app@link-dev:./package.json@7e1a": {
//	      "dependencies": ["lodash@4.17.21@d41d8cd9"],
//	      "devDependencies": []
//	    },
//	    "lodash@4.17.21@d41d8cd9": {"dependencies": [], "devDependencies": []}
//	  }
//	}
//
// Unknown fields are ignored. Dependencies that are not keys of "node" are
// tolerated and treated as leaves.
//
// # Installation Table
//
// The installation table maps node identifiers to the directory that holds the
// already fetched and built package:
//
//	{"lodash@4.17.21@d41d8cd9": "/home/me/.esy/i/lodash-4.17.21-d41d8cd9"}
//
// # Graph Accessor
//
// [Accessor] is the read-only view used by both layout passes: it returns a
// node's children in order and drops external-origin packages on every call.
package lockfile

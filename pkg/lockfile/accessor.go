package lockfile

import (
	"fmt"

	"github.com/matzehuels/stacklink/pkg/pkgid"
)

// DevMode selects which nodes contribute their devDependencies as children.
type DevMode string

const (
	DevAll  DevMode = "all"  // devDependencies followed at every depth
	DevRoot DevMode = "root" // only the root's devDependencies
	DevNone DevMode = "none" // devDependencies ignored
)

// ParseDevMode validates a DevMode string. The empty string means DevAll.
func ParseDevMode(s string) (DevMode, error) {
	switch DevMode(s) {
	case "", DevAll:
		return DevAll, nil
	case DevRoot, DevNone:
		return DevMode(s), nil
	}
	return "", fmt.Errorf("unknown dev mode %q (want all, root or none)", s)
}

// Accessor is the read-only children view over a Graph shared by both layout passes.
type Accessor struct {
	graph    *Graph
	resolver *pkgid.Resolver
	dev      DevMode
}

// NewAccessor creates an Accessor. A zero dev mode means DevAll.
func NewAccessor(g *Graph, r *pkgid.Resolver, dev DevMode) *Accessor {
	if dev == "" {
		dev = DevAll
	}
	return &Accessor{graph: g, resolver: r, dev: dev}
}

// Root returns the graph root.
func (a *Accessor) Root() string { return a.graph.Root() }

// Resolve resolves id through the shared resolver.
func (a *Accessor) Resolve(id string) pkgid.Resolution { return a.resolver.Resolve(id) }

// Children returns dependencies followed by devDependencies of id, in lockfile
// order, without external-origin packages. Unknown ids have no children.
func (a *Accessor) Children(id string) []string {
	n, ok := a.graph.Node(id)
	if !ok {
		return nil
	}

	ids := n.Dependencies
	if a.dev == DevAll || (a.dev == DevRoot && id == a.graph.Root()) {
		ids = append(ids[:len(ids):len(ids)], n.DevDependencies...)
	}

	children := make([]string, 0, len(ids))
	for _, child := range ids {
		if a.resolver.Resolve(child).External {
			continue
		}
		children = append(children, child)
	}
	return children
}

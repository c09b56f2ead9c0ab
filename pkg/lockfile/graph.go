package lockfile

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownRoot is returned by [Graph.Validate] when the root is not a node.
	ErrUnknownRoot = errors.New("root is not a node of the graph")
)

// Node is one resolved package instance with its ordered dependencies.
// Nodes are immutable once added to a Graph.
type Node struct {
	ID              string
	Dependencies    []string
	DevDependencies []string
}

// Graph is a resolved dependency graph with a designated root.
//
// Unlike a DAG, a lockfile graph may contain cycles. Edges may also name
// nodes that were never added; callers treat those as leaves.
// Graph is not safe for concurrent mutation; reads are safe once loaded.
type Graph struct {
	root  string
	nodes map[string]*Node
}

// New creates an empty graph with the given root ID.
func New(root string) *Graph {
	return &Graph{
		root:  root,
		nodes: make(map[string]*Node),
	}
}

// Root returns the root node ID.
func (g *Graph) Root() string { return g.root }

// AddNode adds a node. Returns ErrInvalidNodeID for an empty ID or
// ErrDuplicateNodeID if the ID is already present.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	node := &Node{
		ID:              n.ID,
		Dependencies:    slices.Clone(n.Dependencies),
		DevDependencies: slices.Clone(n.DevDependencies),
	}
	g.nodes[n.ID] = node
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of dependency edges, runtime and development.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, n := range g.nodes {
		count += len(n.Dependencies) + len(n.DevDependencies)
	}
	return count
}

// IDs returns all node IDs sorted lexically.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Validate checks that the root is set and is a node of the graph.
func (g *Graph) Validate() error {
	if g.root == "" {
		return ErrInvalidNodeID
	}
	if _, ok := g.nodes[g.root]; !ok {
		return ErrUnknownRoot
	}
	return nil
}

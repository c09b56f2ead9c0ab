package layout

import (
	"path/filepath"

	"github.com/matzehuels/stacklink/pkg/errors"
	"github.com/matzehuels/stacklink/pkg/hoist"
)

// Walker places the packages of one graph.
type Walker struct {
	graph   Graph
	sources Sources
	opts    Options
}

// NewWalker creates a Walker for g, reading installed locations from sources.
func NewWalker(g Graph, sources Sources, opts Options) *Walker {
	return &Walker{graph: g, sources: sources, opts: opts.WithDefaults()}
}

// pending is one worklist item: a node and the directory it is placed in.
type pending struct {
	id     string
	base   string
	parent int
}

// Walk assigns destinations breadth-first and calls visit once per placed
// package, in placement order. The root is never visited.
//
// Walk stops at the first error from visit, a missing installation
// (MISSING_INSTALLATION), an unusable package name (INVALID_PACKAGE) or, under
// ConflictError, a name collision (NAME_CONFLICT). Under ConflictFirst the
// collisions are returned instead.
func (w *Walker) Walk(hoisted hoist.Set, visit func(Entry) error) ([]Conflict, error) {
	root := w.graph.Root()
	modulesDir := w.opts.ModulesDir()

	queue := []pending{{id: root, base: modulesDir, parent: -1}}
	for _, id := range hoisted.Sorted() {
		queue = append(queue, pending{id: id, base: modulesDir, parent: -1})
	}

	visited := make(map[string]bool)
	claimed := make(map[string]string)
	var skipped []Conflict
	placed := 0

	for head := 0; head < len(queue); head++ {
		item := queue[head]
		if visited[item.id] {
			continue
		}
		visited[item.id] = true

		childBase, childParent := item.base, -1
		if item.id != root {
			res := w.graph.Resolve(item.id)
			if err := errors.ValidatePackageName(res.Name); err != nil {
				return skipped, errors.Wrap(errors.ErrCodeInvalidPackage, err, "cannot place %s", item.id)
			}
			dest := filepath.Join(item.base, res.Name)

			if owner, taken := claimed[dest]; taken {
				c := Conflict{Dest: dest, Kept: owner, Dropped: item.id}
				if w.opts.Conflict != ConflictFirst {
					return skipped, errors.New(errors.ErrCodeNameConflict,
						"%s and %s both need %s", owner, item.id, dest)
				}
				w.opts.Logger.Warn("name conflict, keeping first package", "dest", dest, "kept", owner, "dropped", item.id)
				skipped = append(skipped, c)
				continue
			}

			src, ok := w.sources.Source(item.id)
			if !ok {
				return skipped, errors.New(errors.ErrCodeMissingInstallation,
					"no installation for %s (needed at %s)", item.id, dest)
			}
			claimed[dest] = item.id

			entry := Entry{
				ID:       item.id,
				Name:     res.Name,
				Version:  res.Version,
				Source:   src,
				Dest:     dest,
				Hoisted:  hoisted.Has(item.id),
				Degraded: res.Degraded(),
				Parent:   item.parent,
			}
			if err := visit(entry); err != nil {
				return skipped, err
			}
			childBase, childParent = filepath.Join(dest, w.opts.DirName), placed
			placed++
		}

		for _, child := range w.graph.Children(item.id) {
			queue = append(queue, pending{id: child, base: childBase, parent: childParent})
		}
	}
	return skipped, nil
}

// Plan computes the layout without touching the filesystem.
func (w *Walker) Plan(hoisted hoist.Set) (*Layout, error) {
	l := &Layout{
		Root:       w.graph.Root(),
		ModulesDir: w.opts.ModulesDir(),
		Entries:    []Entry{},
	}
	skipped, err := w.Walk(hoisted, func(e Entry) error {
		l.Entries = append(l.Entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.Skipped = skipped
	return l, nil
}

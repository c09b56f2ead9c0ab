package layout

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stacklink/pkg/pkgid"
)

// DefaultDirName is the module directory name used at every level.
const DefaultDirName = "node_modules"

// ConflictPolicy decides what happens when two packages claim one destination.
type ConflictPolicy string

const (
	ConflictError ConflictPolicy = "error" // abort with NAME_CONFLICT
	ConflictFirst ConflictPolicy = "first" // keep the first claimant, skip later ones
)

// ParseConflictPolicy validates a policy string. The empty string means ConflictError.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case "", ConflictError:
		return ConflictError, nil
	case ConflictFirst:
		return ConflictFirst, nil
	}
	return "", fmt.Errorf("unknown conflict policy %q (want error or first)", s)
}

// Graph is the read-only view of the resolved graph used by the walk.
type Graph interface {
	Root() string
	Children(id string) []string
	Resolve(id string) pkgid.Resolution
}

// Sources looks up the installed location of a package.
type Sources interface {
	Source(id string) (string, bool)
}

// Options configures placement and linking.
type Options struct {
	ProjectDir string         // Directory that receives the root module directory
	DirName    string         // Module directory name (default: node_modules)
	Conflict   ConflictPolicy // Name collision policy (default: error)
	Jobs       int            // Concurrent link operations (<= 0: unlimited)
	Logger     *log.Logger    // Progress logger (default: log.Default())
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.DirName == "" {
		opts.DirName = DefaultDirName
	}
	if opts.Conflict == "" {
		opts.Conflict = ConflictError
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return opts
}

// ModulesDir returns the root module directory.
func (o Options) ModulesDir() string {
	return filepath.Join(o.ProjectDir, o.DirName)
}

// Entry is one placement: the package's files appear at Dest by linking Source.
type Entry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Source   string `json:"source"`
	Dest     string `json:"dest"`
	Hoisted  bool   `json:"hoisted,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
	Refs     int    `json:"refs,omitempty"`

	// Parent is the index of the entry whose private module directory
	// contains Dest, or -1 when Dest is in the root module directory.
	Parent int `json:"parent"`
}

// TopLevel reports whether the entry sits directly in the root module directory.
func (e Entry) TopLevel() bool { return e.Parent < 0 }

// Conflict records a destination claimed by two distinct packages.
type Conflict struct {
	Dest    string `json:"dest"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// Layout is a computed placement plan, in walk order.
type Layout struct {
	Root       string     `json:"root"`
	ModulesDir string     `json:"modules_dir"`
	Entries    []Entry    `json:"entries"`
	Skipped    []Conflict `json:"skipped,omitempty"`
}

// HoistedCount returns the number of hoisted entries.
func (l *Layout) HoistedCount() int {
	n := 0
	for _, e := range l.Entries {
		if e.Hoisted {
			n++
		}
	}
	return n
}

// Links returns the destination to source assignment of the layout.
func (l *Layout) Links() map[string]string {
	m := make(map[string]string, len(l.Entries))
	for _, e := range l.Entries {
		m[e.Dest] = e.Source
	}
	return m
}

// Report summarizes a materialization.
type Report struct {
	Entries  int           // Entries scheduled for linking
	Linked   int           // Link operations that completed successfully
	Placed   []Entry       // Scheduled entries, in placement order
	Skipped  []Conflict    // Destinations dropped under ConflictFirst
	Duration time.Duration // Wall time of the walk plus links
}

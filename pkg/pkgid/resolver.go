package pkgid

import (
	"slices"

	"github.com/charmbracelet/log"
)

// Resolution is the result of resolving a node identifier.
//
// A successful resolution has a nil Err. A degraded resolution carries the
// parse error in Err and a stand-in Package whose Name is the raw identifier.
type Resolution struct {
	Package
	Err error
}

// Degraded reports whether the package is a name-only stand-in.
func (r Resolution) Degraded() bool { return r.Err != nil }

// Resolver resolves node identifiers to packages and memoizes the results.
//
// A Resolver is meant to live for one run; its cache is never invalidated.
// It is not safe for concurrent use.
type Resolver struct {
	cache  map[string]Resolution
	logger *log.Logger
}

// NewResolver creates a Resolver with an empty cache.
// Parse failures are reported as warnings on logger (log.Default() if nil).
func NewResolver(logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		cache:  make(map[string]Resolution),
		logger: logger,
	}
}

// Resolve returns the Resolution for id, parsing it on first use.
// Degraded results are cached too, so each malformed identifier is reported once.
func (r *Resolver) Resolve(id string) Resolution {
	if res, ok := r.cache[id]; ok {
		return res
	}
	pkg, err := Parse(id)
	res := Resolution{Package: pkg, Err: err}
	if err != nil {
		r.logger.Warn("malformed package identifier, using raw id as name", "id", id, "err", err)
		res.Package = Package{ID: id, Name: id}
	}
	r.cache[id] = res
	return res
}

// Len returns the number of cached resolutions.
func (r *Resolver) Len() int { return len(r.cache) }

// Degraded returns the sorted identifiers that could not be parsed.
func (r *Resolver) Degraded() []string {
	var ids []string
	for id, res := range r.cache {
		if res.Degraded() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

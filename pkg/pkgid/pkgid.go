package pkgid

import (
	"regexp"

	"github.com/matzehuels/stacklink/pkg/errors"
)

// externalMarker prefixes versions of packages from the secondary registry.
const externalMarker = "opam:"

var (
	// hashSuffixRe matches the disambiguating "@<hash>" suffix of a node ID.
	hashSuffixRe = regexp.MustCompile(`@[^@]+$`)

	// nameVersionRe splits "name@[opam:]version". Names may be scoped ("@scope/name").
	nameVersionRe = regexp.MustCompile(`^(@?[^@]+)@(` + regexp.QuoteMeta(externalMarker) + `)?(.+)$`)
)

// Package describes one resolved package instance.
type Package struct {
	ID       string // Lockfile node identifier
	Name     string // Package name, used as the directory name in the module tree
	Version  string // Resolved version, without the external marker
	External bool   // Sourced from the secondary registry; never placed in the tree
}

// String returns "name@version", or the name alone when the version is unknown.
func (p Package) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

// Parse parses a node identifier into a Package.
// It returns an error with code MALFORMED_IDENTIFIER when no name/version
// separator remains after removing the hash suffix.
func Parse(id string) (Package, error) {
	sansHash := hashSuffixRe.ReplaceAllString(id, "")
	m := nameVersionRe.FindStringSubmatch(sansHash)
	if m == nil {
		return Package{}, errors.New(errors.ErrCodeMalformedIdentifier,
			"could not parse name and version from %q", sansHash)
	}
	return Package{
		ID:       id,
		Name:     m[1],
		Version:  m[3],
		External: m[2] != "",
	}, nil
}

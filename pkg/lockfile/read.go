package lockfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/matzehuels/stacklink/pkg/errors"
)

// document is the on-disk lockfile shape.
type document struct {
	Root string             `json:"root"`
	Node map[string]nodeDoc `json:"node"`
}

type nodeDoc struct {
	Dependencies    []string `json:"dependencies"`
	DevDependencies []string `json:"devDependencies"`
}

// Read decodes a lockfile document from r and validates it.
// Errors carry the INVALID_LOCKFILE code.
func Read(r io.Reader) (*Graph, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidLockfile, err, "decode lockfile")
	}

	g := New(doc.Root)
	for id, n := range doc.Node {
		err := g.AddNode(Node{
			ID:              id,
			Dependencies:    n.Dependencies,
			DevDependencies: n.DevDependencies,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidLockfile, err, "node %q", id)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidLockfile, err, "root %q", doc.Root)
	}
	return g, nil
}

// ReadFile reads and validates the lockfile at path.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "lockfile %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Installations maps node IDs to the directories holding installed packages.
type Installations map[string]string

// Source returns the installed location of id.
func (m Installations) Source(id string) (string, bool) {
	src, ok := m[id]
	return src, ok
}

// ReadInstallations decodes an installation table from r.
// Entries with an empty path are rejected with INVALID_INSTALLATION.
func ReadInstallations(r io.Reader) (Installations, error) {
	var m Installations
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInstallation, err, "decode installation table")
	}
	if m == nil {
		m = Installations{}
	}
	for id, src := range m {
		if src == "" {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInstallation, "empty source path for %q", id)
		}
	}
	return m, nil
}

// ReadInstallationsFile reads the installation table at path.
// Relative source paths are resolved against the directory of path.
func ReadInstallationsFile(path string) (Installations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "installation table %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseInstallationsFile(path, data)
}

// ParseInstallationsFile decodes data as the contents of the installation
// table at path, resolving relative source paths against its directory.
func ParseInstallationsFile(path string, data []byte) (Installations, error) {
	m, err := ReadInstallations(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	for id, src := range m {
		if !filepath.IsAbs(src) {
			m[id] = filepath.Join(base, src)
		}
	}
	return m, nil
}

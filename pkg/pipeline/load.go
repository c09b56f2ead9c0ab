package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/stacklink/pkg/cache"
	"github.com/matzehuels/stacklink/pkg/errors"
	"github.com/matzehuels/stacklink/pkg/lockfile"
)

// Input is the loaded lockfile and installation table of a run.
type Input struct {
	Graph         *lockfile.Graph
	Installations lockfile.Installations

	// LockHash and InstallHash identify the file contents for the plan cache.
	LockHash    string
	InstallHash string
}

// Load reads and validates the lockfile and the installation table.
func Load(opts Options) (*Input, error) {
	lockData, err := readInput(opts.Lockfile, "lockfile")
	if err != nil {
		return nil, err
	}
	g, err := lockfile.Read(bytes.NewReader(lockData))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Lockfile, err)
	}

	instData, err := readInput(opts.Installation, "installation table")
	if err != nil {
		return nil, err
	}
	inst, err := lockfile.ParseInstallationsFile(opts.Installation, instData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Installation, err)
	}

	return &Input{
		Graph:         g,
		Installations: inst,
		LockHash:      cache.Hash(lockData),
		// Relative sources depend on where the table lives.
		InstallHash: cache.Hash(append([]byte(filepath.Dir(opts.Installation)+"\x00"), instData...)),
	}, nil
}

func readInput(path, what string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s %s", what, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", what, path, err)
	}
	return data, nil
}

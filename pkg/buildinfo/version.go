// Package buildinfo holds the version stamped into stacklink binaries.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/matzehuels/stacklink/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/stacklink/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/stacklink
package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\ngo: %s", Version, Commit, Date, runtime.Version())
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

// UserAgent identifies this build in remote cache client names.
func UserAgent() string {
	return "stacklink/" + Version
}

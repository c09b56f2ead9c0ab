// Package pipeline runs the install: load inputs, count references, plan the
// hoisted layout and link it.
//
// This package is the single entry point used by the CLI commands. It owns
// the layout plan cache and the run id that tags every log line of a run.
//
// # Stages
//
//  1. Load: read the lockfile and the installation table, hash their contents
//  2. Plan: count distinct parents, pick hoisted packages, assign destinations
//  3. Link: create the links of the planned layout
//
// A cached plan replaces stage 2 when the inputs and options are unchanged.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{ProjectDir: "."})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Report.Linked, "links")
package pipeline

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stacklink/pkg/cache"
	"github.com/matzehuels/stacklink/pkg/config"
	"github.com/matzehuels/stacklink/pkg/errors"
	"github.com/matzehuels/stacklink/pkg/fsops"
	"github.com/matzehuels/stacklink/pkg/hoist"
	"github.com/matzehuels/stacklink/pkg/layout"
	"github.com/matzehuels/stacklink/pkg/lockfile"
)

// Options contains all configuration for one run.
type Options struct {
	ProjectDir   string                `json:"project_dir"`
	Lockfile     string                `json:"lockfile"`
	Installation string                `json:"installation"`
	DirName      string                `json:"dir_name,omitempty"`
	Dev          lockfile.DevMode      `json:"dev,omitempty"`
	Conflict     layout.ConflictPolicy `json:"conflict,omitempty"`
	Jobs         int                   `json:"jobs,omitempty"`
	Refresh      bool                  `json:"refresh,omitempty"` // Recompute the plan even on a cache hit
	CacheTTL     time.Duration         `json:"cache_ttl,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger  `json:"-"`
	Linker fsops.Linker `json:"-"` // Default: symlinks on the real filesystem

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// FromConfig builds Options from a loaded project configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		ProjectDir:   cfg.Dir(),
		Lockfile:     cfg.LockfilePath(),
		Installation: cfg.InstallationPath(),
		DirName:      cfg.ModulesDir,
		Dev:          lockfile.DevMode(cfg.Dev),
		Conflict:     layout.ConflictPolicy(cfg.Conflict),
		Jobs:         cfg.Jobs,
		CacheTTL:     cfg.Cache.TTL.Duration,
	}
}

// ValidateAndSetDefaults checks the options and fills in defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.ProjectDir == "" {
		o.ProjectDir = "."
	}
	abs, err := filepath.Abs(o.ProjectDir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "project dir %s", o.ProjectDir)
	}
	o.ProjectDir = abs

	if o.Lockfile == "" {
		o.Lockfile = config.DefaultLockfile
	}
	if o.Installation == "" {
		o.Installation = config.DefaultInstallation
	}
	o.Lockfile = o.resolve(o.Lockfile)
	o.Installation = o.resolve(o.Installation)

	if o.DirName == "" {
		o.DirName = layout.DefaultDirName
	}
	if err := errors.ValidateDirName(o.DirName); err != nil {
		return err
	}
	if o.Dev, err = lockfile.ParseDevMode(string(o.Dev)); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "dev")
	}
	if o.Conflict, err = layout.ParseConflictPolicy(string(o.Conflict)); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "conflict")
	}
	if o.Jobs == 0 {
		o.Jobs = runtime.NumCPU()
	}
	if o.Jobs < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "jobs must not be negative, got %d", o.Jobs)
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = config.DefaultCacheTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Linker == nil {
		o.Linker = fsops.NewSymlinkLinker(nil)
	}
	o.validated = true
	return nil
}

func (o *Options) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.ProjectDir, p)
}

// LayoutOptions returns the placement options for the layout package.
func (o *Options) LayoutOptions(logger *log.Logger) layout.Options {
	return layout.Options{
		ProjectDir: o.ProjectDir,
		DirName:    o.DirName,
		Conflict:   o.Conflict,
		Jobs:       o.Jobs,
		Logger:     logger,
	}
}

// LayoutKeyOpts returns cache key options for the layout plan.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		ProjectDir: o.ProjectDir,
		DirName:    o.DirName,
		Dev:        string(o.Dev),
		Conflict:   string(o.Conflict),
	}
}

// Result contains the outputs of a run.
type Result struct {
	// RunID tags every log line of the run.
	RunID string

	// Layout is the planned placement, computed or loaded from the cache.
	Layout *layout.Layout

	// Counts holds the distinct-parent counts. It is nil on a cache hit.
	Counts hoist.RefCounts

	// Report describes the links created. It is nil for a plan-only run.
	Report *layout.Report

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains run statistics.
type Stats struct {
	NodeCount int
	EdgeCount int
	Reachable int
	Hoisted   int
	Entries   int
	Degraded  int
	LoadTime  time.Duration
	PlanTime  time.Duration
	LinkTime  time.Duration
}

// CacheInfo tracks whether the plan came from the cache.
type CacheInfo struct {
	Key       string
	LayoutHit bool
}

// Summary is a one-line description of a result for logs.
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d packages, %d hoisted", r.Stats.Entries, r.Stats.Hoisted)
	if r.Report != nil {
		s += fmt.Sprintf(", %d linked", r.Report.Linked)
	}
	if n := len(r.Layout.Skipped); n > 0 {
		s += fmt.Sprintf(", %d skipped", n)
	}
	return s
}

// Package cli implements the stacklink command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklink/pkg/buildinfo"
	"github.com/matzehuels/stacklink/pkg/cache"
	"github.com/matzehuels/stacklink/pkg/config"
	"github.com/matzehuels/stacklink/pkg/layout"
	"github.com/matzehuels/stacklink/pkg/lockfile"
	"github.com/matzehuels/stacklink/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "stacklink"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Persistent flags.
	projectDir string
	configPath string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), projectDir: "."}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "stacklink links installed packages into a hoisted node_modules tree",
		Long: `stacklink reads a lockfile and an installation table and builds the
project's module directory from symlinks. Packages needed by more than one
dependent are hoisted to the top level; everything else is nested under the
package that needs it.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.projectDir, "project", "C", ".", "project directory; when set, it wins over the --config file's directory")
	pf.StringVar(&c.configPath, "config", "", "config file (default: <project>/"+config.FileName+")")
	pf.BoolVar(&c.noCache, "no-cache", false, "disable the layout plan cache")

	root.AddCommand(c.installCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads --config, or the project's stacklink.toml when present.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath)
	}
	return config.Find(c.projectDir)
}

// layoutFlags are the per-command overrides of the project configuration.
type layoutFlags struct {
	lockfile     string
	installation string
	modulesDir   string
	dev          string
	conflict     string
	jobs         int
	refresh      bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.lockfile, "lockfile", "", "lockfile path (default: "+config.DefaultLockfile+")")
	fs.StringVar(&f.installation, "installation", "", "installation table path (default: "+config.DefaultInstallation+")")
	fs.StringVar(&f.modulesDir, "modules-dir", "", "module directory name (default: node_modules)")
	fs.StringVar(&f.dev, "dev", "", "follow devDependencies: all, root or none")
	fs.StringVar(&f.conflict, "conflict", "", "name conflict policy: error or first")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "concurrent link operations (default: number of CPUs)")
	fs.BoolVar(&f.refresh, "refresh", false, "recompute the layout even if it is cached")
}

// options builds pipeline options from the config, then applies set flags.
// An explicit -C overrides the config's directory as the project directory;
// paths inside the config stay relative to the config file.
func (f *layoutFlags) options(cmd *cobra.Command, cfg *config.Config, logger *log.Logger) (pipeline.Options, error) {
	opts := pipeline.FromConfig(cfg)
	opts.Logger = logger
	opts.Refresh = f.refresh

	fs := cmd.Flags()
	// With --config elsewhere, the config's directory would otherwise
	// receive the module directory.
	if p := fs.Lookup("project"); p != nil && p.Changed {
		dir, err := filepath.Abs(p.Value.String())
		if err != nil {
			return opts, err
		}
		opts.ProjectDir = dir
	}
	if fs.Changed("lockfile") {
		p, err := filepath.Abs(f.lockfile)
		if err != nil {
			return opts, err
		}
		opts.Lockfile = p
	}
	if fs.Changed("installation") {
		p, err := filepath.Abs(f.installation)
		if err != nil {
			return opts, err
		}
		opts.Installation = p
	}
	if fs.Changed("modules-dir") {
		opts.DirName = f.modulesDir
	}
	if fs.Changed("dev") {
		opts.Dev = lockfile.DevMode(f.dev)
	}
	if fs.Changed("conflict") {
		opts.Conflict = layout.ConflictPolicy(f.conflict)
	}
	if fs.Changed("jobs") {
		opts.Jobs = f.jobs
	}
	return opts, opts.ValidateAndSetDefaults()
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, c.Logger), nil
}

// newCache opens the configured cache backend. Entries are scoped to the
// running version so that a new release never reads an older layout document.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	scope := appName + ":" + buildinfo.Version + ":"

	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:       cfg.Cache.RedisAddr,
			Password:   cfg.Cache.RedisPassword,
			ClientName: buildinfo.UserAgent(),
		})
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return cache.NewScoped(rc, scope), nil
	case config.BackendMongo:
		mc, err := cache.NewMongoCache(ctx, cache.MongoConfig{
			URI:      cfg.Cache.MongoURI,
			Database: cfg.Cache.MongoDatabase,
			AppName:  buildinfo.UserAgent(),
		})
		if err != nil {
			return nil, fmt.Errorf("open mongo cache: %w", err)
		}
		return cache.NewScoped(mc, scope), nil
	}

	dir, err := fileCacheDir(cfg)
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, fmt.Errorf("open file cache: %w", err)
	}
	return cache.NewScoped(fc, scope), nil
}

// =============================================================================
// Paths
// =============================================================================

// fileCacheDir returns cache.dir from the config, or the XDG default.
func fileCacheDir(cfg *config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Path(cfg.Cache.Dir), nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/stacklink/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

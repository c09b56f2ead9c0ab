// Package config loads the project configuration file, stacklink.toml.
//
// Values are layered: built-in defaults, then the file, then command-line
// flags (applied by the caller). Paths in the file are relative to the
// directory that contains it.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stacklink/pkg/errors"
	"github.com/matzehuels/stacklink/pkg/layout"
	"github.com/matzehuels/stacklink/pkg/lockfile"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "stacklink.toml"

// Defaults.
const (
	DefaultLockfile     = "esy.lock/index.json"
	DefaultInstallation = "_esy/default/installation.json"
	DefaultCacheTTL     = 24 * time.Hour
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config is the decoded stacklink.toml.
type Config struct {
	Lockfile     string `toml:"lockfile"`
	Installation string `toml:"installation"`
	ModulesDir   string `toml:"modules_dir"`
	Dev          string `toml:"dev"`
	Conflict     string `toml:"conflict"`
	Jobs         int    `toml:"jobs"`

	Cache CacheConfig `toml:"cache"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// CacheConfig selects and configures the layout plan cache.
type CacheConfig struct {
	Backend       string   `toml:"backend"`
	TTL           Duration `toml:"ttl"`
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	MongoURI      string   `toml:"mongo_uri"`
	MongoDatabase string   `toml:"mongo_database"`
}

// Duration is a time.Duration written as a Go duration string ("24h").
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists, rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Lockfile:     DefaultLockfile,
		Installation: DefaultInstallation,
		ModulesDir:   layout.DefaultDirName,
		Dev:          string(lockfile.DevAll),
		Conflict:     string(layout.ConflictError),
		Jobs:         runtime.NumCPU(),
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     Duration{DefaultCacheTTL},
		},
		dir: dir,
	}
}

// Load reads path on top of the defaults. A missing file is FILE_NOT_FOUND.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "config path %s", path)
	}
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "config file %s not found", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	cfg := Default(filepath.Dir(abs))
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %s", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find loads FileName from dir, falling back to the defaults when it is absent.
func Find(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "project dir %s", dir)
	}
	path := filepath.Join(abs, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(abs), nil
	}
	return Load(path)
}

// Dir returns the directory relative paths are resolved against.
func (c *Config) Dir() string { return c.dir }

// Path resolves p against the configuration directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// LockfilePath returns the absolute lockfile path.
func (c *Config) LockfilePath() string { return c.Path(c.Lockfile) }

// InstallationPath returns the absolute installation table path.
func (c *Config) InstallationPath() string { return c.Path(c.Installation) }

// Validate checks every field, returning INVALID_CONFIG for the first bad one.
func (c *Config) Validate() error {
	if c.Lockfile == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "lockfile must be set")
	}
	if c.Installation == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "installation must be set")
	}
	if err := errors.ValidateDirName(c.ModulesDir); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "modules_dir")
	}
	if _, err := lockfile.ParseDevMode(c.Dev); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "dev")
	}
	if _, err := layout.ParseConflictPolicy(c.Conflict); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "conflict")
	}
	if c.Jobs < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "jobs must not be negative, got %d", c.Jobs)
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}

	if c.Cache.Dir != "" && filepath.Clean(c.Path(c.Cache.Dir)) == filepath.Clean(c.dir) {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.dir must not be the project directory")
	}

	switch c.Cache.Backend {
	case "", BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	case BackendMongo:
		if c.Cache.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.mongo_uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (want file, none, redis or mongo)", c.Cache.Backend)
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklink/pkg/cache"
	"github.com/matzehuels/stacklink/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout plan cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached layout plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			cc, err := c.newCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer cc.Close()

			if err := cache.Clear(ctx, cc); err != nil {
				if errors.Is(err, cache.ErrClearUnsupported) {
					printInfo("Cache is disabled, nothing to clear")
					return nil
				}
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared layout cache")
			backend := c.cacheBackend(cfg)
			printDetail("Backend: %s", backend)
			if backend == config.BackendFile {
				if dir, err := fileCacheDir(cfg); err == nil {
					printDetail("Directory: %s", dir)
				}
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := fileCacheDir(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cacheBackend reports the backend newCache opens for cfg.
func (c *CLI) cacheBackend(cfg *config.Config) string {
	if c.noCache {
		return config.BackendNone
	}
	if cfg.Cache.Backend == "" {
		return config.BackendFile
	}
	return cfg.Cache.Backend
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/memorywall/internal/config"
	"github.com/matzehuels/memorywall/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local layout cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())

	return cmd
}

// fileCache opens the local file cache named by the config, or the default
// cache directory.
func (c *CLI) fileCache() (*cache.FileCache, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Backend != "" && cfg.Cache.Backend != config.CacheFile {
		printWarning("Configured cache backend is %q; showing the local file cache", cfg.Cache.Backend)
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		if dir, err = cacheDir(); err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
	}
	return cache.NewFileCache(dir)
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached tile listings and layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}
			defer fc.Close()

			count, err := fc.Clear()
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}
			defer fc.Close()
			fmt.Fprintln(cmd.OutOrStdout(), fc.Dir())
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number and size of cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}
			defer fc.Close()

			entries, size, err := fc.Stats()
			if err != nil {
				return fmt.Errorf("read cache: %w", err)
			}
			printKeyValue("Directory", fc.Dir())
			printKeyValue("Entries", fmt.Sprintf("%d", entries))
			printKeyValue("Size", formatBytes(size))
			return nil
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

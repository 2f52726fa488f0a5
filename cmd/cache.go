package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/iocache"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	backend, connStr, err := storeSetup("cache-backend", "cache-db-connect")
	if err != nil {
		return err
	}

	// Initialize caching with the loaded config (no progress or run tracking for cache commands)
	if err := iocache.InitStores(rootCtx, iocache.StoreOptions{CacheBackend: backend, CacheConnStr: connStr}); err != nil {
		return errors.Wrap(err, "failed to initialize cache")
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by the batch commands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the page fetch cache",
	Long: `Manage the cache of parsed fixture lists, match logs and season totals.

Every page the enrichment fetches is parsed once and kept here, so a resumed
or repeated batch does not hit the source site again for the same data.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data

Examples:
  # Check cache status
  injuryscope cache status

  # Clear cache before a fresh scrape
  injuryscope cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached page data",
	Long: `Delete all cached page data from the configured backend.

Use this when:
- The source site changed its page layout
- A season is still running and its fixtures moved

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  injuryscope cache clear

  # Clear MySQL cache (set connection string via env variable)
  INJURYSCOPE_CACHE_BACKEND=mysql INJURYSCOPE_CACHE_DB_CONNECT="..." injuryscope cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		iocache.CloseStores()
		dbFile := sqliteFile(cfg.CacheDBConnect, contract.GetCacheDBFilePath())
		if err := iocache.ClearCache(cfg.CacheBackend, dbFile, cfg.CacheDBConnect); err != nil {
			exitFatal("Failed to clear cache", err)
		}
		cmd.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the page fetch cache.

Displays:
- Backend type and connection status
- Total number of cached pages
- Last and oldest cache entry timestamps
- Cache table size

Examples:
  # Check cache status
  injuryscope cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		store := storeManager.GetCacheStore()
		if store == nil {
			exitFatal("Failed to get cache status", errors.New("cache store is not initialized"))
		}
		status, err := store.GetStatus()
		if err != nil {
			exitFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(cmd.OutOrStdout(), status)
	},
}

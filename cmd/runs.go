package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/iocache"
	"github.com/huangsam/injuryscope/schema"
)

// runsSetup loads minimal configuration needed for run history operations.
// An empty run backend means tracking is disabled.
func runsSetup() error {
	backend, connStr, err := storeSetup("run-backend", "run-db-connect")
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no cache or progress for runs commands)
	if err := iocache.InitStores(rootCtx, iocache.StoreOptions{RunBackend: backend, RunConnStr: connStr}); err != nil {
		return errors.Wrap(err, "failed to initialize run store")
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func runsMigrateSetup() error {
	backend, connStr, err := storeSetup("run-backend", "run-db-connect")
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetRunDBFilePath()
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr

	return nil
}

// runsMigrateSetupWrapper wraps runsMigrateSetup to provide PreRunE for migrate command.
func runsMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsMigrateSetup()
}

// runsCmd focused on run history.
//
// Note: Runs subcommands use minimal initialization (runsSetup) instead of
// the full sharedSetup used by the batch commands.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the history of enrich and collect runs",
	Long: `Manage the run history recorded when --run-backend is set.

Every run stores:
- Run metadata (kind, timestamps, configuration, duration)
- Final counts (total, enriched, partial, skipped, failed)
- One outcome per unit with its status and notes

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show run tracking statistics
  export  - Export runs and outcomes to Parquet
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  injuryscope runs status --run-backend sqlite

  # Export for analysis in pandas/DuckDB
  injuryscope runs export --run-backend sqlite --output-file history`,
}

// runsStatusCmd shows run history status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show the number of tracked runs, the most recent run and the row count
of each history table.

Examples:
  injuryscope runs status --run-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		store := storeManager.GetRunStore()
		if store == nil {
			exitFatal("Failed to get run status", errors.New("run tracking is disabled (set --run-backend)"))
		}
		status, err := store.GetStatus()
		if err != nil {
			exitFatal("Failed to get run status", err)
		}
		iocache.PrintRunStatus(cmd.OutOrStdout(), status)
	},
}

// runsExportCmd exports run history to Parquet.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet files",
	Long: `Export all runs and unit outcomes to two Parquet files.

Given --output-file history, this writes:
- history.runs.parquet
- history.outcomes.parquet

Examples:
  injuryscope runs export --run-backend sqlite --output-file history`,
	PreRunE: runsSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := iocache.ExecuteRunsExport(cmd.OutOrStdout(), storeManager.GetRunStore(), cfg.OutputFile); err != nil {
			exitFatal("Failed to export run history", err)
		}
	},
}

// runsClearCmd clears run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all run history",
	Long: `Delete all tracked runs and unit outcomes from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables

Examples:
  injuryscope runs clear --run-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		iocache.CloseStores()
		dbFile := sqliteFile(cfg.RunDBConnect, contract.GetRunDBFilePath())
		if err := iocache.ClearRuns(cfg.RunBackend, dbFile, cfg.RunDBConnect); err != nil {
			exitFatal("Failed to clear run history", err)
		}
		cmd.Println("Run history cleared successfully.")
	},
}

// runsMigrateCmd applies schema migrations to the run history tables.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations",
	Long: `Apply or roll back schema migrations of the run history tables.

By default all pending migrations are applied. Use --target-version to move
to a specific version; 0 rolls back to the initial state.

Examples:
  # Migrate to latest
  injuryscope runs migrate --run-backend sqlite

  # Roll back everything
  injuryscope runs migrate --run-backend postgresql --run-db-connect "..." --target-version 0`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateRuns(cmd.OutOrStdout(), cfg.RunBackend, cfg.RunDBConnect, targetVersion); err != nil {
			exitFatal("Migration failed", err)
		}
	},
}

package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/iocache"
)

// progressSetup loads minimal configuration needed for progress operations.
func progressSetup() error {
	backend, connStr, err := storeSetup("progress-backend", "progress-db-connect")
	if err != nil {
		return err
	}

	if err := iocache.InitStores(rootCtx, iocache.StoreOptions{ProgressBackend: backend, ProgressConnStr: connStr}); err != nil {
		return errors.Wrap(err, "failed to initialize progress store")
	}

	cfg.ProgressBackend = backend
	cfg.ProgressDBConnect = connStr

	return nil
}

// progressSetupWrapper wraps progressSetup to provide PreRunE for progress commands.
func progressSetupWrapper(_ *cobra.Command, _ []string) error {
	return progressSetup()
}

// progressCmd focused on resume markers.
var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Inspect or reset the resume markers of enrich and collect",
	Long: `Manage the markers that record which injuries (enrich) and which
player-seasons (collect) are already done.

The output files stay the source of truth: a marker without a matching row
on disk is ignored when resuming. Clearing the markers is safe.

Supported backends: SQLite (default), MySQL, PostgreSQL, Redis, or None (in-memory)

Subcommands:
  status - Show marker counts per batch
  clear  - Remove every marker

Examples:
  injuryscope progress status
  INJURYSCOPE_PROGRESS_BACKEND=redis INJURYSCOPE_PROGRESS_DB_CONNECT=redis://localhost:6379/0 injuryscope progress status`,
}

// progressStatusCmd shows progress status.
var progressStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display marker counts and connection details",
	PreRunE: progressSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		store := storeManager.GetProgressStore()
		if store == nil {
			exitFatal("Failed to get progress status", errors.New("progress store is not initialized"))
		}
		status, err := store.GetStatus(rootCtx)
		if err != nil {
			exitFatal("Failed to get progress status", err)
		}
		iocache.PrintProgressStatus(cmd.OutOrStdout(), status)
	},
}

// progressClearCmd clears every marker.
var progressClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all resume markers",
	Long: `Delete every resume marker from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the progress table
For Redis: Deletes the marker sets

Examples:
  injuryscope progress clear`,
	PreRunE: progressSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		iocache.CloseStores()
		dbFile := sqliteFile(cfg.ProgressDBConnect, contract.GetProgressDBFilePath())
		if err := iocache.ClearProgress(rootCtx, cfg.ProgressBackend, dbFile, cfg.ProgressDBConnect); err != nil {
			exitFatal("Failed to clear progress", err)
		}
		cmd.Println("Progress cleared successfully.")
	},
}

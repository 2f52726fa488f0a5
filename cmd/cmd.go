// Package cmd defines the command-line interface for injuryscope.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the progress subcommands to the parent progress command
	progressCmd.AddCommand(progressStatusCmd)
	progressCmd.AddCommand(progressClearCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console or json")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write batch metrics in Prometheus text format to this file")
	rootCmd.PersistentFlags().String("injuries", "", "Path to the injuries CSV")
	rootCmd.PersistentFlags().String("enriched-file", contract.DefaultEnrichedFile, "Path to the enriched injuries CSV")
	rootCmd.PersistentFlags().String("team-ids", "", "Path to the team,team_id[,canonical] CSV")
	rootCmd.PersistentFlags().String("base-url", contract.DefaultBaseURL, "Base URL of the source site")
	rootCmd.PersistentFlags().Duration("fetch-delay", contract.DefaultFetchDelay, "Minimum delay between page fetches")
	rootCmd.PersistentFlags().Duration("fetch-timeout", contract.DefaultFetchTimeout, "Timeout of a single page fetch")
	rootCmd.PersistentFlags().Bool("resume", true, "Skip units already processed by a previous run (--resume=false starts over)")
	rootCmd.PersistentFlags().Int("checkpoint-every", contract.DefaultCheckpointEvery, "Save the checkpoint file every N units")
	rootCmd.PersistentFlags().String("checkpoint-file", contract.DefaultCheckpointFile, "Path to the checkpoint file (empty disables it)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Fetch cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("progress-backend", string(schema.SQLiteBackend), "Progress backend: sqlite or mysql or postgresql or redis or none")
	rootCmd.PersistentFlags().String("progress-db-connect", "", "Connection string for the progress store (redis://host:port/db for redis)")
	rootCmd.PersistentFlags().String("run-backend", "", "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("run-db-connect", "", "Database connection string for run tracking")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of enrichCmd to Viper
	enrichCmd.Flags().String("venues", "", "Path to the venue CSV")
	enrichCmd.Flags().Int("window-days", contract.DefaultWindowDays, "Days on each side of the injury to aggregate")
	enrichCmd.Flags().Int("fixture-min-gap-days", contract.DefaultMinGapDays, "Minimum days between fixture and injury")
	enrichCmd.Flags().Int("fixture-max-gap-days", contract.DefaultMaxGapDays, "Maximum days between fixture and injury")
	enrichCmd.Flags().Bool("season-fallback", true, "Use season totals when no match log is available")
	enrichCmd.Flags().String("parquet-file", "", "Also export the enriched file to Parquet")
	if err := viper.BindPFlags(enrichCmd.Flags()); err != nil {
		contract.LogFatal("Error binding enrich flags", err)
	}

	// Bind all flags of validateCmd to Viper
	validateCmd.Flags().String("benchmarks", "", "Path to the recovery benchmark CSV")
	validateCmd.Flags().Float64("benchmark-tolerance-pct", contract.DefaultTolerancePct, "Allowed deviation from the benchmark median in percent")
	if err := viper.BindPFlags(validateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding validate flags", err)
	}

	// Bind all flags of collectCmd to Viper
	collectCmd.Flags().String("seasons", "", "Comma-separated season start years (e.g. 2023,2024)")
	if err := viper.BindPFlags(collectCmd.Flags()); err != nil {
		contract.LogFatal("Error binding collect flags", err)
	}

	// Bind all flags of mergeCmd to Viper
	mergeCmd.Flags().String("update", "", "Path to the update injuries CSV")
	if err := viper.BindPFlags(mergeCmd.Flags()); err != nil {
		contract.LogFatal("Error binding merge flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}

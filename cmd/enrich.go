package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/injuryscope/core"
)

// enrichCmd focused on the enrichment pipeline.
var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Attach fixture, venue and performance context to every injury",
	Long: `Enrich each injury with the fixture it most likely happened in, the stadium
of that fixture, and the player's output in the windows before and after it.

Every input record yields exactly one output row. Lookups that fail leave
their columns blank and add a note; the row status says how far it got:
enriched, partial, skipped or failed.

The output file is append-only. Rows already on disk are not processed again,
so an interrupted batch can be restarted where it stopped. Pass --resume=false
to truncate the output and start over.

Examples:
  # Enrich with the default 30 day windows
  injuryscope enrich --injuries mls_player_injuries.csv --venues venues.csv --team-ids team_ids.csv

  # Start over and export Parquet
  injuryscope enrich --injuries mls_player_injuries.csv --venues venues.csv --team-ids team_ids.csv \
    --resume=false --parquet-file enriched.parquet

  # Narrower fixture window, no season fallback
  injuryscope enrich --fixture-max-gap-days 3 --season-fallback=false ...`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteEnrich(rootCtx, cfg, storeManager); err != nil {
			exitFatal("Enrichment failed", err)
		}
	},
}

// validateCmd focused on the data quality report.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report data quality and compare recovery times to research benchmarks",
	Long: `Compute the validation report of an enriched (or raw) injuries file.

Sections:
  1. Data quality metrics
  2. Recovery time comparison against benchmarks
  3. Injury patterns by position
  4. Seasonal trends
  5. Performance impact

A category is within the expected range when its collected median is within
--benchmark-tolerance-pct of the benchmark median.

Examples:
  injuryscope validate --enriched-file mls_injuries_enriched.csv --benchmarks benchmarks.csv
  injuryscope validate --benchmarks benchmarks.csv --output json --output-file report.json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteValidate(rootCtx, cfg, storeManager); err != nil {
			exitFatal("Validation failed", err)
		}
	},
}

// collectCmd focused on scraping injury histories.
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect injury histories of every MLS squad for the given seasons",
	Long: `Walk the league page, every squad page and every player's injury history
for each season and append the matching injuries to --injuries.

Pages are fetched no faster than --fetch-delay and are never retried. A
player whose page fails is not marked done and is retried on the next run.

Examples:
  injuryscope collect --seasons 2023,2024 --injuries mls_player_injuries.csv
  injuryscope collect --seasons 2024 --resume=false`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCollect(rootCtx, cfg, storeManager); err != nil {
			exitFatal("Collection failed", err)
		}
	},
}

// mergeCmd folds an update file into the injuries file.
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge an update file into the injuries file without duplicates",
	Long: `Append the rows of --update to --injuries, drop duplicates on
(player, season, injury date, injury type, team) keeping the first one,
and sort by season (newest first), team and player.

The injuries file is replaced atomically.

Examples:
  injuryscope merge --injuries mls_player_injuries.csv --update mls_2025_update.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMerge(rootCtx, cfg, storeManager); err != nil {
			exitFatal("Merge failed", err)
		}
	},
}

package schema

import "time"

// EnrichmentSummary is what an enrichment run reports when it finishes.
type EnrichmentSummary struct {
	RunID           string        `json:"run_id"`
	Total           int           `json:"total"`
	Resumed         int           `json:"resumed"`
	Duplicates      int           `json:"duplicates"`
	Processed       int           `json:"processed"`
	Enriched        int           `json:"enriched"`
	Partial         int           `json:"partial"`
	Skipped         int           `json:"skipped"`
	Failed          int           `json:"failed"`
	FixtureMatches  int           `json:"fixture_matches"`
	VenueMatches    int           `json:"venue_matches"`
	HomeGames       int           `json:"home_games"`
	AwayGames       int           `json:"away_games"`
	SeasonFallbacks int           `json:"season_fallbacks"`
	Duration        time.Duration `json:"duration"`
}

// Counts converts the summary into run store counts.
func (s EnrichmentSummary) Counts() RunCounts {
	return RunCounts{
		Total:    s.Processed,
		Enriched: s.Enriched,
		Partial:  s.Partial,
		Skipped:  s.Skipped,
		Failed:   s.Failed,
	}
}

// CollectSummary is what a collection run reports when it finishes.
type CollectSummary struct {
	RunID          string        `json:"run_id"`
	Seasons        []string      `json:"seasons"`
	Teams          int           `json:"teams"`
	Players        int           `json:"players"`
	PlayersResumed int           `json:"players_resumed"`
	PlayerFailures int           `json:"player_failures"`
	Injuries       int           `json:"injuries"`
	FetchFailures  int           `json:"fetch_failures"`
	Duration       time.Duration `json:"duration"`
}

// Counts converts the summary into run store counts. A collected player
// counts as enriched.
func (s CollectSummary) Counts() RunCounts {
	return RunCounts{
		Total:    s.Players,
		Enriched: s.Players - s.PlayerFailures,
		Failed:   s.PlayerFailures,
	}
}

// MergeSummary is what a merge reports.
type MergeSummary struct {
	BaseCount         int `json:"base_count"`
	UpdateCount       int `json:"update_count"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	FinalCount        int `json:"final_count"`
}

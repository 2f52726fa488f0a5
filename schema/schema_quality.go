package schema

// QualityMetrics summarizes completeness of a record set.
type QualityMetrics struct {
	TotalRecords       int      `json:"total_records"`
	UniquePlayers      int      `json:"unique_players"`
	UniqueTeams        int      `json:"unique_teams"`
	Seasons            []string `json:"seasons"`
	MissingInjuryType  int      `json:"missing_injury_type"`
	MissingInjuryDate  int      `json:"missing_injury_date"`
	MissingReturnDate  int      `json:"missing_return_date"`
	MissingDaysOut     int      `json:"missing_days_out"`
	MissingGamesMissed int      `json:"missing_games_missed"`
	MissingPerformance int      `json:"missing_performance"`
	Duplicates         int      `json:"duplicates"`
	CompleteRecords    int      `json:"complete_records"`
	CompletenessScore  float64  `json:"completeness_score"`
}

// BenchmarkComparison compares collected recovery times for one category
// against the external benchmark.
type BenchmarkComparison struct {
	Category            string  `json:"category"`
	CollectedCount      int     `json:"collected_count"`
	CollectedMedian     float64 `json:"collected_median"`
	CollectedMean       float64 `json:"collected_mean"`
	CollectedStd        float64 `json:"collected_std"`
	BenchmarkMedian     float64 `json:"benchmark_median"`
	BenchmarkMean       float64 `json:"benchmark_mean"`
	DiffDays            float64 `json:"diff_days"`
	DiffPct             float64 `json:"diff_pct"`
	WithinExpectedRange bool    `json:"within_expected_range"`
}

// PositionStats is the recovery breakdown for one squad position.
type PositionStats struct {
	Position          string  `json:"position"`
	Count             int     `json:"count"`
	MeanDaysOut       float64 `json:"mean_days_out"`
	MedianDaysOut     float64 `json:"median_days_out"`
	StdDaysOut        float64 `json:"std_days_out"`
	MeanGamesMissed   float64 `json:"mean_games_missed"`
	MedianGamesMissed float64 `json:"median_games_missed"`
}

// SeasonStats is the recovery trend for one season.
type SeasonStats struct {
	Season            string  `json:"season"`
	Count             int     `json:"count"`
	MedianDaysOut     float64 `json:"median_days_out"`
	MedianGamesMissed float64 `json:"median_games_missed"`
}

// PerformanceImpact summarizes before/after performance scores.
type PerformanceImpact struct {
	Records       int     `json:"records"`
	MeanBefore    float64 `json:"mean_before"`
	MeanAfter     float64 `json:"mean_after"`
	MeanChange    float64 `json:"mean_change"`
	MeanChangePct float64 `json:"mean_change_pct"`
	Declined      int     `json:"declined"`
	Improved      int     `json:"improved"`
	Unchanged     int     `json:"unchanged"`
}

// ValidationReport is the full output of the validator.
type ValidationReport struct {
	TolerancePct float64               `json:"tolerance_pct"`
	Metrics      QualityMetrics        `json:"quality_metrics"`
	Comparisons  []BenchmarkComparison `json:"benchmark_comparison"`
	Positions    []PositionStats       `json:"position_breakdown"`
	Seasons      []SeasonStats         `json:"season_trend"`
	Impact       PerformanceImpact     `json:"performance_impact"`
}

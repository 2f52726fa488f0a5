package schema

import "time"

// CacheStatus represents the status of the fetch cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// ProgressStatus represents the status of the progress store.
type ProgressStatus struct {
	Backend    string           `json:"backend"`
	Connected  bool             `json:"connected"`
	TotalUnits int64            `json:"total_units"`
	Namespaces map[string]int64 `json:"namespaces"`
}

// RunStatus represents the status of the run store.
type RunStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     string           `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalUnits    int              `json:"total_units"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// RunCounts are the per-status unit counts stored when a run ends.
type RunCounts struct {
	Total    int `json:"total"`
	Enriched int `json:"enriched"`
	Partial  int `json:"partial"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RunRecord represents a row from the injuryscope_runs table.
type RunRecord struct {
	RunID        string
	Kind         string
	StartTime    time.Time
	EndTime      *time.Time
	DurationMs   *int64
	Counts       RunCounts
	ConfigParams *string
}

// OutcomeRecord represents a row from the injuryscope_run_outcomes table.
type OutcomeRecord struct {
	RunID      string
	UnitKey    string
	Status     string
	Notes      string
	RecordedAt time.Time
}

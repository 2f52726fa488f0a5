// Package parquet exports enriched injury records and run history to Parquet
// files using github.com/parquet-go/parquet-go.
package parquet

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"

	"github.com/huangsam/injuryscope/schema"
)

// Run is one batch run. It maps to the injuryscope_runs table.
type Run struct {
	// RunID is the uuid of the run
	RunID string `parquet:"run_id,snappy"`

	// Kind is the command that produced the run (enrich or collect)
	Kind string `parquet:"kind,snappy,dict"`

	// StartTime is when the run began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	TotalUnits    int32 `parquet:"total_units,snappy"`
	EnrichedUnits int32 `parquet:"enriched_units,snappy"`
	PartialUnits  int32 `parquet:"partial_units,snappy"`
	SkippedUnits  int32 `parquet:"skipped_units,snappy"`
	FailedUnits   int32 `parquet:"failed_units,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Outcome is the result of one unit in a run. It maps to the
// injuryscope_run_outcomes table.
type Outcome struct {
	RunID      string    `parquet:"run_id,snappy,dict"`
	UnitKey    string    `parquet:"unit_key,snappy"`
	Status     string    `parquet:"status,snappy,dict"`
	Notes      string    `parquet:"notes,snappy"`
	RecordedAt time.Time `parquet:"recorded_at,snappy"`
}

// EnrichedRecord is one flattened enriched injury record. Derived fields are
// optional and stay null when their lookup did not resolve.
type EnrichedRecord struct {
	PlayerName  string `parquet:"player_name,snappy"`
	PlayerURL   string `parquet:"player_url,snappy"`
	Position    string `parquet:"position,snappy,dict"`
	Team        string `parquet:"team,snappy,dict"`
	Season      string `parquet:"season,snappy,dict"`
	InjuryType  string `parquet:"injury_type,snappy"`
	InjuryDate  string `parquet:"injury_date,snappy"`
	ReturnDate  string `parquet:"return_date,snappy"`
	DaysOut     *int32 `parquet:"days_out,optional,snappy"`
	GamesMissed *int32 `parquet:"games_missed,optional,snappy"`

	// Fixture
	MatchDate   *string `parquet:"match_date,optional,snappy"`
	HomeTeam    *string `parquet:"home_team,optional,snappy"`
	AwayTeam    *string `parquet:"away_team,optional,snappy"`
	Opponent    *string `parquet:"opponent,optional,snappy"`
	IsHomeGame  *bool   `parquet:"is_home_game,optional"`
	DaysBetween *int32  `parquet:"days_between_match_and_injury,optional,snappy"`

	// Venue
	StadiumName *string `parquet:"stadium_name,optional,snappy"`
	SurfaceType *string `parquet:"surface_type,optional,snappy"`
	City        *string `parquet:"city,optional,snappy"`
	State       *string `parquet:"state,optional,snappy"`
	AltitudeFt  *int32  `parquet:"altitude_ft,optional,snappy"`
	ClimateZone *string `parquet:"climate_zone,optional,snappy"`

	// Performance windows
	BeforeGames            *int32   `parquet:"before_games,optional,snappy"`
	BeforeMinutes          *int32   `parquet:"before_minutes,optional,snappy"`
	BeforeGoals            *int32   `parquet:"before_goals,optional,snappy"`
	BeforeAssists          *int32   `parquet:"before_assists,optional,snappy"`
	BeforePerformanceScore *float64 `parquet:"before_performance_score,optional,snappy"`
	AfterGames             *int32   `parquet:"after_games,optional,snappy"`
	AfterMinutes           *int32   `parquet:"after_minutes,optional,snappy"`
	AfterGoals             *int32   `parquet:"after_goals,optional,snappy"`
	AfterAssists           *int32   `parquet:"after_assists,optional,snappy"`
	AfterPerformanceScore  *float64 `parquet:"after_performance_score,optional,snappy"`

	PerformanceSource string `parquet:"performance_source,snappy,dict"`
	Status            string `parquet:"status,snappy,dict"`
	Notes             string `parquet:"notes,snappy"`
}

// write writes rows to a new Parquet file at outputPath.
func write[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return errors.Wrap(err, "failed to write data to parquet file")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "failed to finalize parquet file")
	}
	return file.Close()
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return write(data, outputPath)
}

// WriteOutcomesParquet writes run outcomes to a Parquet file.
func WriteOutcomesParquet(data []Outcome, outputPath string) error {
	return write(data, outputPath)
}

// WriteEnrichedParquet writes enriched records to a Parquet file.
func WriteEnrichedParquet(records []schema.EnrichedInjuryRecord, outputPath string) error {
	return write(ConvertEnrichedRecords(records), outputPath)
}

// ConvertRunRecords converts store rows to Parquet rows.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	out := make([]Run, len(records))
	for i, r := range records {
		out[i] = Run{
			RunID:         r.RunID,
			Kind:          r.Kind,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.DurationMs,
			TotalUnits:    int32(r.Counts.Total),
			EnrichedUnits: int32(r.Counts.Enriched),
			PartialUnits:  int32(r.Counts.Partial),
			SkippedUnits:  int32(r.Counts.Skipped),
			FailedUnits:   int32(r.Counts.Failed),
			ConfigParams:  r.ConfigParams,
		}
	}
	return out
}

// ConvertOutcomeRecords converts store rows to Parquet rows.
func ConvertOutcomeRecords(records []schema.OutcomeRecord) []Outcome {
	out := make([]Outcome, len(records))
	for i, r := range records {
		out[i] = Outcome{
			RunID:      r.RunID,
			UnitKey:    r.UnitKey,
			Status:     r.Status,
			Notes:      r.Notes,
			RecordedAt: r.RecordedAt,
		}
	}
	return out
}

// ConvertEnrichedRecords flattens enriched records into Parquet rows.
func ConvertEnrichedRecords(records []schema.EnrichedInjuryRecord) []EnrichedRecord {
	out := make([]EnrichedRecord, len(records))
	for i, r := range records {
		row := EnrichedRecord{
			PlayerName:        r.PlayerName,
			PlayerURL:         r.PlayerURL,
			Position:          r.Position,
			Team:              r.Team,
			Season:            r.Season,
			InjuryType:        r.InjuryType,
			InjuryDate:        r.InjuryDate,
			ReturnDate:        r.ReturnDate,
			DaysOut:           int32Ptr(r.DaysOut),
			GamesMissed:       int32Ptr(r.GamesMissed),
			PerformanceSource: string(r.PerformanceSource),
			Status:            string(r.Status),
			Notes:             strings.Join(r.Notes, ";"),
		}
		if f := r.Fixture; f != nil {
			row.MatchDate = ptr(f.Date.Format(time.DateOnly))
			row.HomeTeam = ptr(f.HomeTeam)
			row.AwayTeam = ptr(f.AwayTeam)
			row.Opponent = ptr(f.Opponent)
			row.IsHomeGame = ptr(f.IsHomeForSubjectTeam)
			row.DaysBetween = ptr(int32(f.DaysBetween))
		}
		if v := r.Venue; v != nil {
			row.StadiumName = ptr(v.StadiumName)
			row.SurfaceType = ptr(v.SurfaceType)
			row.City = ptr(v.City)
			row.State = ptr(v.State)
			row.AltitudeFt = ptr(int32(v.AltitudeFt))
			row.ClimateZone = ptr(v.ClimateZone)
		}
		if b := r.Before; b != nil {
			row.BeforeGames = ptr(int32(b.Games))
			row.BeforeMinutes = ptr(int32(b.Minutes))
			row.BeforeGoals = ptr(int32(b.Goals))
			row.BeforeAssists = ptr(int32(b.Assists))
			row.BeforePerformanceScore = ptr(b.PerformanceScore)
		}
		if a := r.After; a != nil {
			row.AfterGames = ptr(int32(a.Games))
			row.AfterMinutes = ptr(int32(a.Minutes))
			row.AfterGoals = ptr(int32(a.Goals))
			row.AfterAssists = ptr(int32(a.Assists))
			row.AfterPerformanceScore = ptr(a.PerformanceScore)
		}
		out[i] = row
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func int32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	return ptr(int32(*v))
}

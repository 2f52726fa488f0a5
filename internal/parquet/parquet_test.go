package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/injuryscope/schema"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err, "Should be able to open output file")
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	return rows[:n]
}

func TestRunStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(Run))
	require.NotNil(t, s)

	for _, colName := range []string{
		"run_id", "kind", "start_time", "end_time", "run_duration_ms",
		"total_units", "enriched_units", "partial_units", "skipped_units", "failed_units",
		"config_params",
	} {
		_, ok := s.Lookup(colName)
		assert.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func TestEnrichedRecordStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(EnrichedRecord))
	require.NotNil(t, s)

	for _, colName := range []string{
		"player_name", "team", "injury_date", "days_out",
		"match_date", "is_home_game", "days_between_match_and_injury",
		"stadium_name", "altitude_ft",
		"before_performance_score", "after_performance_score",
		"performance_source", "status", "notes",
	} {
		_, ok := s.Lookup(colName)
		assert.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func TestWriteRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	duration := end.Sub(start).Milliseconds()
	params := `{"window_days":30}`

	records := []schema.RunRecord{
		{
			RunID:        "a",
			Kind:         string(schema.EnrichRun),
			StartTime:    start,
			EndTime:      &end,
			DurationMs:   &duration,
			Counts:       schema.RunCounts{Total: 10, Enriched: 6, Partial: 3, Skipped: 1},
			ConfigParams: &params,
		},
		{RunID: "b", Kind: string(schema.CollectRun), StartTime: start.Add(time.Hour)},
	}

	require.NoError(t, WriteRunsParquet(ConvertRunRecords(records), outputPath))

	rows := readAll[Run](t, outputPath)
	require.Len(t, rows, 2)

	assert.Equal(t, "a", rows[0].RunID)
	assert.Equal(t, int32(6), rows[0].EnrichedUnits)
	require.NotNil(t, rows[0].EndTime)
	assert.WithinDuration(t, end, *rows[0].EndTime, time.Nanosecond)
	require.NotNil(t, rows[0].RunDurationMs)
	assert.Equal(t, int64(90000), *rows[0].RunDurationMs)
	require.NotNil(t, rows[0].ConfigParams)
	assert.Equal(t, params, *rows[0].ConfigParams)

	// Nullable fields stay null
	assert.Nil(t, rows[1].EndTime)
	assert.Nil(t, rows[1].RunDurationMs)
	assert.Nil(t, rows[1].ConfigParams)
}

func TestWriteOutcomesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "outcomes.parquet")
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	records := []schema.OutcomeRecord{
		{RunID: "a", UnitKey: "k1", Status: "enriched", RecordedAt: now},
		{RunID: "a", UnitKey: "k2", Status: "partial", Notes: "venue_not_found", RecordedAt: now},
	}
	require.NoError(t, WriteOutcomesParquet(ConvertOutcomeRecords(records), outputPath))

	rows := readAll[Outcome](t, outputPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "k2", rows[1].UnitKey)
	assert.Equal(t, "venue_not_found", rows[1].Notes)
}

func TestWriteEnrichedParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "enriched.parquet")
	days := 12

	full := schema.EnrichedInjuryRecord{
		InjuryEvent: schema.InjuryEvent{PlayerName: "A", Team: "Real Salt Lake", InjuryDate: "2023-06-15", DaysOut: &days},
		Fixture: &schema.ResolvedFixture{
			Fixture: schema.Fixture{
				Date:                 time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC),
				HomeTeam:             "Real Salt Lake",
				AwayTeam:             "LA Galaxy",
				IsHomeForSubjectTeam: true,
				Opponent:             "LA Galaxy",
			},
			DaysBetween: 4,
		},
		Venue:             &schema.VenueRecord{StadiumName: "America First Field", AltitudeFt: 4327},
		Before:            &schema.WindowStats{Games: 2, Minutes: 135, PerformanceScore: 1.333},
		After:             &schema.WindowStats{},
		PerformanceSource: schema.SourceMatch,
		Status:            schema.StatusEnriched,
	}
	bare := schema.EnrichedInjuryRecord{
		InjuryEvent: schema.InjuryEvent{PlayerName: "B", Team: "LA Galaxy"},
		Status:      schema.StatusPartial,
		Notes:       []string{"fixture_not_found", "no_performance_data"},
	}

	require.NoError(t, WriteEnrichedParquet([]schema.EnrichedInjuryRecord{full, bare}, outputPath))

	rows := readAll[EnrichedRecord](t, outputPath)
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].MatchDate)
	assert.Equal(t, "2023-06-11", *rows[0].MatchDate)
	require.NotNil(t, rows[0].IsHomeGame)
	assert.True(t, *rows[0].IsHomeGame)
	require.NotNil(t, rows[0].AltitudeFt)
	assert.Equal(t, int32(4327), *rows[0].AltitudeFt)
	require.NotNil(t, rows[0].BeforePerformanceScore)
	assert.InDelta(t, 1.333, *rows[0].BeforePerformanceScore, 1e-9)
	require.NotNil(t, rows[0].DaysOut)
	assert.Equal(t, int32(12), *rows[0].DaysOut)

	assert.Nil(t, rows[1].MatchDate)
	assert.Nil(t, rows[1].StadiumName)
	assert.Nil(t, rows[1].BeforeGames)
	assert.Nil(t, rows[1].DaysOut)
	assert.Equal(t, "fixture_not_found;no_performance_data", rows[1].Notes)
}

func TestWriteRunsParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty_runs.parquet")

	require.NoError(t, WriteRunsParquet([]Run{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteRunsParquet_InvalidPath(t *testing.T) {
	err := WriteRunsParquet([]Run{{RunID: "a"}}, "/nonexistent/directory/output.parquet")
	require.Error(t, err, "Writing to invalid path should produce error")
}

package iocache

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/injuryscope/schema"
)

func TestRunStoreNoneBackend(t *testing.T) {
	store, err := NewRunStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun(schema.EnrichRun, time.Now(), nil)
	require.NoError(t, err)
	assert.Len(t, runID, 36, "none backend still hands out a uuid")

	assert.NoError(t, store.RecordOutcome(runID, "k", schema.StatusEnriched, ""))
	assert.NoError(t, store.EndRun(runID, time.Now(), schema.RunCounts{}))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestRunStoreSQLite(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, tempDB(t, "runs.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first, err := store.BeginRun(schema.EnrichRun, start, map[string]any{"window_days": 30})
	require.NoError(t, err)

	require.NoError(t, store.RecordOutcome(first, "k1", schema.StatusEnriched, ""))
	require.NoError(t, store.RecordOutcome(first, "k2", schema.StatusFailed, "panic"))
	require.NoError(t, store.RecordOutcome(first, "k2", schema.StatusPartial, "venue_not_found"))

	counts := schema.RunCounts{Total: 2, Enriched: 1, Partial: 1}
	require.NoError(t, store.EndRun(first, start.Add(1500*time.Millisecond), counts))

	second, err := store.BeginRun(schema.CollectRun, start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, first, runs[0].RunID)
	assert.Equal(t, "enrich", runs[0].Kind)
	assert.True(t, start.Equal(runs[0].StartTime))
	require.NotNil(t, runs[0].EndTime)
	require.NotNil(t, runs[0].DurationMs)
	assert.Equal(t, int64(1500), *runs[0].DurationMs)
	assert.Equal(t, counts, runs[0].Counts)
	require.NotNil(t, runs[0].ConfigParams)
	assert.JSONEq(t, `{"window_days":30}`, *runs[0].ConfigParams)

	assert.Equal(t, "collect", runs[1].Kind)
	assert.Nil(t, runs[1].EndTime, "Unfinished run has no end time")
	assert.Nil(t, runs[1].DurationMs)

	outcomes, err := store.GetAllOutcomes()
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "k2", outcomes[1].UnitKey)
	assert.Equal(t, "partial", outcomes[1].Status, "Latest outcome wins")
	assert.Equal(t, "venue_not_found", outcomes[1].Notes)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, second, status.LastRunID)
	assert.True(t, start.Equal(status.OldestRunTime))
	assert.Equal(t, 2, status.TotalUnits)
	assert.Equal(t, int64(2), status.TableSizes[outcomesTable])
}

func TestRunStoreEndUnknownRun(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, tempDB(t, "runs.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.Error(t, store.EndRun("missing", time.Now(), schema.RunCounts{}))
}

func TestClearRuns(t *testing.T) {
	path := tempDB(t, "runs.db")
	store, err := NewRunStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearRuns(schema.SQLiteBackend, path, ""))
	assert.NoFileExists(t, path)
}

func TestExecuteRunsExport(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, tempDB(t, "runs.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var out bytes.Buffer
	base := tempDB(t, "export")

	err = ExecuteRunsExport(&out, store, base)
	assert.ErrorContains(t, err, "no run data")

	runID, err := store.BeginRun(schema.EnrichRun, time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(runID, "k", schema.StatusEnriched, ""))

	require.NoError(t, ExecuteRunsExport(&out, store, base))
	assert.FileExists(t, base+".runs.parquet")
	assert.FileExists(t, base+".outcomes.parquet")
	assert.Contains(t, out.String(), "Exported 1 runs")

	assert.Error(t, ExecuteRunsExport(&out, store, ""))
	assert.Error(t, ExecuteRunsExport(&out, nil, base))
}

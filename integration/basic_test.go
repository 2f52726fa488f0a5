//go:build basic

package integration

import (
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

// TestEnrichThenValidate runs a full batch against a site that is down and
// then validates the result. Every input record must still land on disk.
func TestEnrichThenValidate(t *testing.T) {
	ws := newWorkspace(t)
	site := unavailableSite(t)

	out, err := ws.run(t, ws.enrichArgs(site.URL, "--output", "csv", "--metrics-file", ws.path("enrich.prom"))...)
	require.NoError(t, err)
	assert.Contains(t, out, "processed,3")

	rows := readRows(t, ws.path("enriched.csv"))
	require.Len(t, rows, 4) // header plus one row per record

	metrics, err := os.ReadFile(ws.path("enrich.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "injuryscope_units_total")

	out, err = ws.run(t, "validate",
		"--enriched-file", ws.path("enriched.csv"),
		"--benchmarks", ws.path("benchmarks.csv"),
		"--color", "no")
	require.NoError(t, err)
	assert.Contains(t, out, "1. DATA QUALITY METRICS")
	assert.Contains(t, out, "5. PERFORMANCE IMPACT ANALYSIS")

	out, err = ws.run(t, "validate",
		"--enriched-file", ws.path("enriched.csv"),
		"--benchmarks", ws.path("benchmarks.csv"),
		"--output", "json", "--output-file", ws.path("report.json"))
	require.NoError(t, err, out)
	report, err := os.ReadFile(ws.path("report.json"))
	require.NoError(t, err)
	assert.Contains(t, string(report), `"benchmark_comparison"`)
}

// TestEnrichResume checks that a resumed batch appends nothing new.
func TestEnrichResume(t *testing.T) {
	ws := newWorkspace(t)
	site := unavailableSite(t)

	_, err := ws.run(t, ws.enrichArgs(site.URL)...)
	require.NoError(t, err)
	before, err := os.ReadFile(ws.path("enriched.csv"))
	require.NoError(t, err)

	_, err = ws.run(t, ws.enrichArgs(site.URL, "--resume")...)
	require.NoError(t, err)
	after, err := os.ReadFile(ws.path("enriched.csv"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	out, err := ws.run(t, "progress", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress Backend: sqlite")

	_, err = ws.run(t, "progress", "clear")
	require.NoError(t, err)
}

func TestMerge(t *testing.T) {
	ws := newWorkspace(t)
	ws.write(t, "update.csv", updateCSV)

	out, err := ws.run(t, "merge",
		"--injuries", ws.path("injuries.csv"),
		"--update", ws.path("update.csv"),
		"--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "duplicates_removed,1")
	assert.Contains(t, out, "final_count,4")

	rows := readRows(t, ws.path("injuries.csv"))
	require.Len(t, rows, 5)
	assert.Equal(t, "Diego Luna", rows[1][0]) // newest season first
}

func TestCollectAgainstDownSite(t *testing.T) {
	ws := newWorkspace(t)
	site := unavailableSite(t)

	out, err := ws.run(t, "collect",
		"--seasons", "2023",
		"--injuries", ws.path("collected.csv"),
		"--base-url", site.URL,
		"--fetch-delay", "1ms",
		"--checkpoint-file", "",
		"--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "fetch_failures,1")

	_, err = ws.run(t, "collect", "--base-url", site.URL)
	require.Error(t, err)
}

func TestRunTracking(t *testing.T) {
	ws := newWorkspace(t)
	site := unavailableSite(t)

	_, err := ws.run(t, "runs", "migrate", "--run-backend", "sqlite")
	require.NoError(t, err)

	_, err = ws.run(t, ws.enrichArgs(site.URL, "--run-backend", "sqlite")...)
	require.NoError(t, err)

	out, err := ws.run(t, "runs", "status", "--run-backend", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 1")

	_, err = ws.run(t, "runs", "export", "--run-backend", "sqlite", "--output-file", ws.path("history"))
	require.NoError(t, err)
	assert.FileExists(t, ws.path("history.runs.parquet"))
	assert.FileExists(t, ws.path("history.outcomes.parquet"))

	_, err = ws.run(t, "runs", "clear", "--run-backend", "sqlite")
	require.NoError(t, err)
}

func TestCacheCommands(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache Backend: sqlite")

	_, err = ws.run(t, "cache", "clear")
	require.NoError(t, err)

	out, err = ws.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "injuryscope CLI")
}

func TestInvalidConfig(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, ws.enrichArgs("ftp://example.com")...)
	require.Error(t, err)
	assert.Contains(t, out, "base-url")

	out, err = ws.run(t, ws.enrichArgs("http://localhost", "--fixture-min-gap-days", "9")...)
	require.Error(t, err)
	assert.Contains(t, out, "gap")
}

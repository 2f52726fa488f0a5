package outwriter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

func TestCreateFormatters(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
	}{
		{"median days", 1, 17.55, "17.6"},
		{"whole days", 0, 220.4, "220"},
		{"negative deviation", 2, -12.346, "-12.35"},
		{"performance score", 3, 4.0 / 3, "1.333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, createFormatters(tt.precision)(tt.value))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, schema.MergeSummary{BaseCount: 2, UpdateCount: 3, DuplicatesRemoved: 1, FinalCount: 4}))
	assert.Equal(t, `{
  "base_count": 2,
  "update_count": 3,
  "duplicates_removed": 1,
  "final_count": 4
}
`, buf.String())

	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	t.Run("summary rows", func(t *testing.T) {
		rows := mergeRows(schema.MergeSummary{BaseCount: 2, UpdateCount: 3, DuplicatesRemoved: 1, FinalCount: 4})
		records := make([][]string, len(rows))
		for i, r := range rows {
			records[i] = []string{r.key, r.value}
		}

		var buf bytes.Buffer
		require.NoError(t, writeCSVWithHeader(&buf, []string{"metric", "value"}, records))
		assert.Equal(t, "metric,value\nbase_count,2\nupdate_count,3\nduplicates_removed,1\nfinal_count,4\n", buf.String())
	})

	t.Run("category with comma is quoted", func(t *testing.T) {
		report := schema.ValidationReport{Comparisons: []schema.BenchmarkComparison{
			{Category: "Muscle injury, thigh", CollectedCount: 2, CollectedMedian: 21, BenchmarkMedian: 20, DiffDays: 1, DiffPct: 5, WithinExpectedRange: true},
		}}

		var buf bytes.Buffer
		require.NoError(t, writeComparisonCSV(&buf, report, &contract.Config{Precision: 0}))
		assert.Contains(t, buf.String(), "\"Muscle injury, thigh\",2,21,0,0,20,0,1,5,true\n")
	})

	t.Run("header only", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeComparisonCSV(&buf, schema.ValidationReport{}, &contract.Config{}))
		assert.Equal(t, "category,collected_count,collected_median,collected_mean,collected_std,"+
			"benchmark_median,benchmark_mean,diff_days,diff_pct,within_expected_range\n", buf.String())
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, assert.AnError }

func TestWriteCSVWithHeaderError(t *testing.T) {
	err := writeCSVWithHeader(failingWriter{}, []string{"metric", "value"}, [][]string{{"total", "3"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWriteWithFile(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		called := false
		err := writeWithFile("", func(w io.Writer) error {
			called = true
			return nil
		}, "Wrote report")
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("report file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "comparison.csv")
		cfg := &contract.Config{Precision: 2}
		err := writeWithFile(path, func(w io.Writer) error {
			return writeComparisonCSV(w, sampleReport(), cfg)
		}, "Wrote comparison")
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "Hamstring Strain,3,18.00")
	})

	t.Run("writer error is returned", func(t *testing.T) {
		err := writeWithFile(filepath.Join(t.TempDir(), "summary.txt"), func(io.Writer) error {
			return assert.AnError
		}, "Wrote summary")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("missing directory", func(t *testing.T) {
		err := writeWithFile("/nonexistent/dir/summary.json", func(io.Writer) error { return nil }, "Wrote summary")
		require.Error(t, err)
	})
}

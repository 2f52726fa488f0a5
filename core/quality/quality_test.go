package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/injuryscope/schema"
)

func intPtr(v int) *int { return &v }

func rec(player, position, season, injuryType, date string, daysOut, games *int) schema.EnrichedInjuryRecord {
	return schema.EnrichedInjuryRecord{InjuryEvent: schema.InjuryEvent{
		PlayerName:  player,
		Position:    position,
		Team:        "LA Galaxy",
		Season:      season,
		InjuryType:  injuryType,
		InjuryDate:  date,
		ReturnDate:  "Jul 1, 2023",
		DaysOut:     daysOut,
		GamesMissed: games,
	}}
}

func TestComputeMetrics(t *testing.T) {
	records := []schema.EnrichedInjuryRecord{
		rec("A", "Centre-Back", "23/24", "Hamstring injury", "Jun 1, 2023", intPtr(20), intPtr(3)),
		rec("A", "Centre-Back", "23/24", "Hamstring injury", "Jun 1, 2023", intPtr(20), intPtr(3)),
		rec("B", "Winger", "22/23", "", "Mar 1, 2022", nil, nil),
		rec("C", "Winger", "22/23", "Knee injury", "", intPtr(10), intPtr(1)),
	}
	records[3].ReturnDate = ""

	m := ComputeMetrics(records)

	assert.Equal(t, 4, m.TotalRecords)
	assert.Equal(t, 3, m.UniquePlayers)
	assert.Equal(t, 1, m.UniqueTeams)
	assert.Equal(t, []string{"22/23", "23/24"}, m.Seasons)
	assert.Equal(t, 1, m.MissingInjuryType)
	assert.Equal(t, 1, m.MissingInjuryDate)
	assert.Equal(t, 1, m.MissingReturnDate)
	assert.Equal(t, 1, m.MissingDaysOut)
	assert.Equal(t, 1, m.MissingGamesMissed)
	assert.Equal(t, 4, m.MissingPerformance)
	assert.Equal(t, 1, m.Duplicates)
	// max(1, 1+1, 1) = 2 incomplete
	assert.Equal(t, 2, m.CompleteRecords)
	assert.InDelta(t, 50.0, m.CompletenessScore, 1e-9)
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(nil)
	assert.Zero(t, m.TotalRecords)
	assert.Zero(t, m.CompletenessScore)
	assert.Empty(t, m.Seasons)
}

func TestComputeMetricsRounding(t *testing.T) {
	records := []schema.EnrichedInjuryRecord{
		rec("A", "", "", "x", "d1", intPtr(1), nil),
		rec("B", "", "", "x", "d2", intPtr(1), nil),
		rec("C", "", "", "", "d3", intPtr(1), nil),
	}
	m := ComputeMetrics(records)
	assert.InDelta(t, 66.67, m.CompletenessScore, 1e-9)
}

func TestCompareBenchmarks(t *testing.T) {
	records := []schema.EnrichedInjuryRecord{
		rec("A", "", "", "Hamstring strain", "d1", intPtr(20), nil),
		rec("B", "", "", "hamstring injury", "d2", intPtr(24), nil),
		rec("C", "", "", "Groin problems", "d3", intPtr(30), nil),
		rec("D", "", "", "Adductor injury", "d4", intPtr(10), nil),
		rec("E", "", "", "Torn ACL", "d5", intPtr(300), nil),
		rec("F", "", "", "Ankle sprain", "d6", nil, nil),
	}
	benchmarks := []schema.BenchmarkRecord{
		{InjuryType: "Hamstring Strain", TimePeriod: "2001-2015", MedianRecoveryDays: 40, MeanRecoveryDays: 45},
		{InjuryType: "Hamstring Strain", TimePeriod: "2016-2021", MedianRecoveryDays: 20, MeanRecoveryDays: 25},
		{InjuryType: "Hamstring Strain", TimePeriod: "UEFA 2016-2021", MedianRecoveryDays: 24, MeanRecoveryDays: 27},
		{InjuryType: "Adductor Strain", TimePeriod: "2008-2015", MedianRecoveryDays: 10, MeanRecoveryDays: 12},
		{InjuryType: "ACL", TimePeriod: "2010-2020", MedianRecoveryDays: 0, MeanRecoveryDays: 0},
		{InjuryType: "Ankle Sprain", TimePeriod: "2016-2021", MedianRecoveryDays: 14, MeanRecoveryDays: 16},
		{InjuryType: "MCL", TimePeriod: "2016-2021", MedianRecoveryDays: 30, MeanRecoveryDays: 35},
	}

	got := CompareBenchmarks(records, benchmarks, 20)
	require.Len(t, got, 4)

	ham := got[0]
	assert.Equal(t, "Hamstring Strain", ham.Category)
	assert.Equal(t, 2, ham.CollectedCount)
	assert.InDelta(t, 22.0, ham.CollectedMedian, 1e-9)
	// Only the 2016-2021 rows are averaged.
	assert.InDelta(t, 22.0, ham.BenchmarkMedian, 1e-9)
	assert.InDelta(t, 26.0, ham.BenchmarkMean, 1e-9)
	assert.InDelta(t, 0.0, ham.DiffPct, 1e-9)
	assert.True(t, ham.WithinExpectedRange)

	add := got[1]
	assert.Equal(t, "Adductor Strain", add.Category)
	assert.Equal(t, 2, add.CollectedCount)
	assert.InDelta(t, 20.0, add.CollectedMedian, 1e-9)
	assert.InDelta(t, 100.0, add.DiffPct, 1e-9)
	assert.InDelta(t, 10.0, add.DiffDays, 1e-9)
	assert.False(t, add.WithinExpectedRange)

	acl := got[2]
	assert.Equal(t, "ACL", acl.Category)
	assert.Zero(t, acl.DiffPct, "zero benchmark median yields zero diff")
	assert.True(t, acl.WithinExpectedRange)

	ankle := got[3]
	assert.Equal(t, "Ankle Sprain", ankle.Category)
	assert.Equal(t, 1, ankle.CollectedCount)
	assert.Zero(t, ankle.CollectedMedian)
	assert.InDelta(t, -100.0, ankle.DiffPct, 1e-9)
}

func TestCompareBenchmarksSkipsMissingBenchmarks(t *testing.T) {
	records := []schema.EnrichedInjuryRecord{
		rec("A", "", "", "MCL tear", "d1", intPtr(30), nil),
	}
	assert.Empty(t, CompareBenchmarks(records, nil, 20))
}

func TestCompareBenchmarksTolerance(t *testing.T) {
	records := []schema.EnrichedInjuryRecord{
		rec("A", "", "", "hamstring", "d1", intPtr(12), nil),
	}
	benchmarks := []schema.BenchmarkRecord{{InjuryType: "Hamstring Strain", MedianRecoveryDays: 10}}

	assert.False(t, CompareBenchmarks(records, benchmarks, 20)[0].WithinExpectedRange)
	assert.True(t, CompareBenchmarks(records, benchmarks, 25)[0].WithinExpectedRange)
}

func TestInCategory(t *testing.T) {
	assert.True(t, InCategory("Anterior cruciate ligament tear", "ACL"))
	assert.True(t, InCategory("GROIN STRAIN", "Adductor Strain"))
	assert.True(t, InCategory("Medial collateral ligament", "MCL"))
	assert.False(t, InCategory("Hamstring", "ACL"))
	assert.False(t, InCategory("Hamstring", "Unknown"))
	assert.Equal(t, []string{"Hamstring Strain", "Adductor Strain", "ACL", "Ankle Sprain", "MCL"}, Categories())
}

func TestPositionBreakdown(t *testing.T) {
	records := []schema.EnrichedInjuryRecord{
		rec("A", "Winger", "", "x", "d1", intPtr(10), intPtr(1)),
		rec("B", "Winger", "", "x", "d2", intPtr(20), intPtr(3)),
		rec("C", "Goalkeeper", "", "x", "d3", intPtr(5), nil),
		rec("D", "Centre-Back", "", "x", "d4", intPtr(7), intPtr(2)),
		rec("E", "", "", "x", "d5", intPtr(99), intPtr(9)),
	}

	got := PositionBreakdown(records)
	require.Len(t, got, 3)
	assert.Equal(t, "Winger", got[0].Position)
	assert.Equal(t, 2, got[0].Count)
	assert.InDelta(t, 15.0, got[0].MeanDaysOut, 1e-9)
	assert.InDelta(t, 15.0, got[0].MedianDaysOut, 1e-9)
	assert.InDelta(t, 7.1, got[0].StdDaysOut, 1e-9)
	assert.InDelta(t, 2.0, got[0].MeanGamesMissed, 1e-9)
	// Ties on count are ordered by name.
	assert.Equal(t, "Centre-Back", got[1].Position)
	assert.Equal(t, "Goalkeeper", got[2].Position)
	assert.Zero(t, got[2].StdDaysOut)
}

func TestSeasonTrend(t *testing.T) {
	records := []schema.EnrichedInjuryRecord{
		rec("A", "", "23/24", "x", "d1", intPtr(10), intPtr(1)),
		rec("B", "", "21/22", "x", "d2", intPtr(20), intPtr(3)),
		rec("C", "", "23/24", "x", "d3", intPtr(30), intPtr(5)),
		rec("D", "", "23/24", "x", "d4", intPtr(40), intPtr(6)),
	}

	got := SeasonTrend(records)
	require.Len(t, got, 2)
	assert.Equal(t, "21/22", got[0].Season)
	assert.Equal(t, "23/24", got[1].Season)
	assert.Equal(t, 3, got[1].Count)
	assert.InDelta(t, 30.0, got[1].MedianDaysOut, 1e-9)
	assert.InDelta(t, 5.0, got[1].MedianGamesMissed, 1e-9)
}

func TestPerformanceImpact(t *testing.T) {
	withPerf := func(before, after float64, source schema.PerformanceSource) schema.EnrichedInjuryRecord {
		r := rec("A", "", "", "x", "d", nil, nil)
		r.Before = &schema.WindowStats{PerformanceScore: before}
		r.After = &schema.WindowStats{PerformanceScore: after}
		r.PerformanceSource = source
		return r
	}

	records := []schema.EnrichedInjuryRecord{
		withPerf(1.0, 0.5, schema.SourceMatch),
		withPerf(0.5, 1.0, schema.SourceMatch),
		withPerf(0, 0, schema.SourceMatch),
		withPerf(2.0, 0, schema.SourceSeason),
		rec("B", "", "", "x", "d", nil, nil),
	}

	got := PerformanceImpact(records)
	assert.Equal(t, 3, got.Records)
	assert.Equal(t, 1, got.Declined)
	assert.Equal(t, 1, got.Improved)
	assert.Equal(t, 1, got.Unchanged)
	assert.InDelta(t, 0.5, got.MeanBefore, 1e-9)
	assert.InDelta(t, 0.5, got.MeanAfter, 1e-9)
	assert.InDelta(t, 0.0, got.MeanChange, 1e-9)
	// (-50 + 100) / 2 over rows with before > 0
	assert.InDelta(t, 25.0, got.MeanChangePct, 1e-9)
}

func TestBuildReport(t *testing.T) {
	records := []schema.EnrichedInjuryRecord{
		rec("A", "Winger", "23/24", "Hamstring", "Jun 1, 2023", intPtr(21), intPtr(3)),
	}
	benchmarks := []schema.BenchmarkRecord{{InjuryType: "Hamstring Strain", TimePeriod: "2016-2021", MedianRecoveryDays: 21}}

	report := BuildReport(records, benchmarks, 20)
	assert.InDelta(t, 20.0, report.TolerancePct, 1e-9)
	assert.Equal(t, 1, report.Metrics.TotalRecords)
	require.Len(t, report.Comparisons, 1)
	assert.True(t, report.Comparisons[0].WithinExpectedRange)
	require.Len(t, report.Positions, 1)
	require.Len(t, report.Seasons, 1)
	assert.Zero(t, report.Impact.Records)
}

func TestStats(t *testing.T) {
	assert.Zero(t, mean(nil))
	assert.Zero(t, median(nil))
	assert.Zero(t, stddev([]float64{5}))
	assert.InDelta(t, 2.0, median([]float64{3, 1, 2}), 1e-9)
	assert.InDelta(t, 2.5, median([]float64{4, 1, 3, 2}), 1e-9)

	values := []float64{3, 1, 2}
	_ = median(values)
	assert.Equal(t, []float64{3, 1, 2}, values, "median must not reorder its input")
}

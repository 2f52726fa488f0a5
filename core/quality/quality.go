// Package quality checks completeness of injury records and compares their
// recovery times against external benchmarks.
package quality

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/huangsam/injuryscope/schema"
)

// preferredPeriod is the benchmark time period used when available.
const preferredPeriod = "2016-2021"

// categoryRule maps injury_type substrings to a benchmark category.
type categoryRule struct {
	category string
	keywords []string
}

// categories is ordered; comparisons are reported in this order.
var categories = []categoryRule{
	{"Hamstring Strain", []string{"hamstring"}},
	{"Adductor Strain", []string{"adductor", "groin"}},
	{"ACL", []string{"acl", "anterior cruciate"}},
	{"Ankle Sprain", []string{"ankle"}},
	{"MCL", []string{"mcl", "medial collateral"}},
}

// Categories returns the benchmark category names in report order.
func Categories() []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.category
	}
	return out
}

// InCategory reports whether injuryType belongs to category, matching
// keywords as case-insensitive substrings.
func InCategory(injuryType, category string) bool {
	lower := strings.ToLower(injuryType)
	for _, c := range categories {
		if c.category != category {
			continue
		}
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// ComputeMetrics summarizes missing fields, duplicates and completeness.
func ComputeMetrics(records []schema.EnrichedInjuryRecord) schema.QualityMetrics {
	m := schema.QualityMetrics{TotalRecords: len(records)}

	players := make(map[string]struct{})
	teams := make(map[string]struct{})
	seasons := make(map[string]struct{})
	seen := make(map[[3]string]struct{})

	for _, r := range records {
		if strings.TrimSpace(r.InjuryType) == "" {
			m.MissingInjuryType++
		}
		if strings.TrimSpace(r.InjuryDate) == "" {
			m.MissingInjuryDate++
		}
		if strings.TrimSpace(r.ReturnDate) == "" {
			m.MissingReturnDate++
		}
		if r.DaysOut == nil {
			m.MissingDaysOut++
		}
		if r.GamesMissed == nil {
			m.MissingGamesMissed++
		}
		if r.Before == nil {
			m.MissingPerformance++
		}

		key := [3]string{r.PlayerName, r.InjuryDate, r.InjuryType}
		if _, ok := seen[key]; ok {
			m.Duplicates++
		} else {
			seen[key] = struct{}{}
		}

		if r.PlayerName != "" {
			players[r.PlayerName] = struct{}{}
		}
		if r.Team != "" {
			teams[r.Team] = struct{}{}
		}
		if r.Season != "" {
			seasons[r.Season] = struct{}{}
		}
	}

	m.UniquePlayers = len(players)
	m.UniqueTeams = len(teams)
	m.Seasons = make([]string, 0, len(seasons))
	for s := range seasons {
		m.Seasons = append(m.Seasons, s)
	}
	slices.Sort(m.Seasons)

	worst := max(m.MissingInjuryType, m.MissingInjuryDate+m.MissingReturnDate, m.MissingDaysOut)
	m.CompleteRecords = m.TotalRecords - worst
	if m.TotalRecords > 0 {
		m.CompletenessScore = round(float64(m.CompleteRecords)/float64(m.TotalRecords)*100, 2)
	}
	return m
}

// CompareBenchmarks compares collected days out per category with the
// benchmark medians. A category is within range when the absolute percent
// difference of medians is below tolerancePct. Categories lacking either
// collected or benchmark rows are omitted.
func CompareBenchmarks(records []schema.EnrichedInjuryRecord, benchmarks []schema.BenchmarkRecord, tolerancePct float64) []schema.BenchmarkComparison {
	var out []schema.BenchmarkComparison

	for _, c := range categories {
		var count int
		var daysOut []*int
		for _, r := range records {
			if InCategory(r.InjuryType, c.category) {
				count++
				daysOut = append(daysOut, r.DaysOut)
			}
		}
		if count == 0 {
			continue
		}

		bench := benchmarkRows(benchmarks, c.category)
		if len(bench) == 0 {
			continue
		}
		var medians, means []float64
		for _, b := range bench {
			medians = append(medians, b.MedianRecoveryDays)
			means = append(means, b.MeanRecoveryDays)
		}
		benchMedian := mean(medians)
		benchMean := mean(means)

		values := intValues(daysOut)
		collectedMedian := median(values)
		diff := collectedMedian - benchMedian
		var diffPct float64
		if benchMedian > 0 {
			diffPct = diff / benchMedian * 100
		}

		out = append(out, schema.BenchmarkComparison{
			Category:            c.category,
			CollectedCount:      count,
			CollectedMedian:     round(collectedMedian, 1),
			CollectedMean:       round(mean(values), 1),
			CollectedStd:        round(stddev(values), 1),
			BenchmarkMedian:     round(benchMedian, 1),
			BenchmarkMean:       round(benchMean, 1),
			DiffDays:            round(diff, 1),
			DiffPct:             round(diffPct, 1),
			WithinExpectedRange: math.Abs(diffPct) < tolerancePct,
		})
	}
	return out
}

// benchmarkRows returns the rows of category, restricted to the preferred
// time period when any row has it.
func benchmarkRows(benchmarks []schema.BenchmarkRecord, category string) []schema.BenchmarkRecord {
	var all, preferred []schema.BenchmarkRecord
	for _, b := range benchmarks {
		if b.InjuryType != category {
			continue
		}
		all = append(all, b)
		if strings.Contains(b.TimePeriod, preferredPeriod) {
			preferred = append(preferred, b)
		}
	}
	if len(preferred) > 0 {
		return preferred
	}
	return all
}

// PositionBreakdown groups records by position. Records without a position
// are left out. Sorted by count descending, then position.
func PositionBreakdown(records []schema.EnrichedInjuryRecord) []schema.PositionStats {
	groups := make(map[string][]schema.EnrichedInjuryRecord)
	for _, r := range records {
		pos := strings.TrimSpace(r.Position)
		if pos == "" {
			continue
		}
		groups[pos] = append(groups[pos], r)
	}

	out := make([]schema.PositionStats, 0, len(groups))
	for pos, rs := range groups {
		days, games := durations(rs)
		out = append(out, schema.PositionStats{
			Position:          pos,
			Count:             len(rs),
			MeanDaysOut:       round(mean(days), 1),
			MedianDaysOut:     round(median(days), 1),
			StdDaysOut:        round(stddev(days), 1),
			MeanGamesMissed:   round(mean(games), 1),
			MedianGamesMissed: round(median(games), 1),
		})
	}
	slices.SortFunc(out, func(a, b schema.PositionStats) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

// SeasonTrend groups records by season label, sorted ascending.
func SeasonTrend(records []schema.EnrichedInjuryRecord) []schema.SeasonStats {
	groups := make(map[string][]schema.EnrichedInjuryRecord)
	for _, r := range records {
		season := strings.TrimSpace(r.Season)
		if season == "" {
			continue
		}
		groups[season] = append(groups[season], r)
	}

	out := make([]schema.SeasonStats, 0, len(groups))
	for season, rs := range groups {
		days, games := durations(rs)
		out = append(out, schema.SeasonStats{
			Season:            season,
			Count:             len(rs),
			MedianDaysOut:     round(median(days), 1),
			MedianGamesMissed: round(median(games), 1),
		})
	}
	slices.SortFunc(out, func(a, b schema.SeasonStats) int { return cmp.Compare(a.Season, b.Season) })
	return out
}

// PerformanceImpact compares before and after scores over records with
// match-level performance on both sides. Season-level fallbacks carry no
// after window and are left out.
func PerformanceImpact(records []schema.EnrichedInjuryRecord) schema.PerformanceImpact {
	var before, after, change, changePct []float64
	impact := schema.PerformanceImpact{}

	for _, r := range records {
		if !r.HasPerformance() || r.PerformanceSource == schema.SourceSeason {
			continue
		}
		b, a := r.Before.PerformanceScore, r.After.PerformanceScore
		before = append(before, b)
		after = append(after, a)
		change = append(change, a-b)
		if b > 0 {
			changePct = append(changePct, (a-b)/b*100)
		}
		switch {
		case a < b:
			impact.Declined++
		case a > b:
			impact.Improved++
		default:
			impact.Unchanged++
		}
	}

	impact.Records = len(before)
	impact.MeanBefore = round(mean(before), 3)
	impact.MeanAfter = round(mean(after), 3)
	impact.MeanChange = round(mean(change), 3)
	impact.MeanChangePct = round(mean(changePct), 1)
	return impact
}

// BuildReport runs every check over records.
func BuildReport(records []schema.EnrichedInjuryRecord, benchmarks []schema.BenchmarkRecord, tolerancePct float64) schema.ValidationReport {
	return schema.ValidationReport{
		TolerancePct: tolerancePct,
		Metrics:      ComputeMetrics(records),
		Comparisons:  CompareBenchmarks(records, benchmarks, tolerancePct),
		Positions:    PositionBreakdown(records),
		Seasons:      SeasonTrend(records),
		Impact:       PerformanceImpact(records),
	}
}

func durations(records []schema.EnrichedInjuryRecord) (days, games []float64) {
	daysPtrs := make([]*int, 0, len(records))
	gamesPtrs := make([]*int, 0, len(records))
	for _, r := range records {
		daysPtrs = append(daysPtrs, r.DaysOut)
		gamesPtrs = append(gamesPtrs, r.GamesMissed)
	}
	return intValues(daysPtrs), intValues(gamesPtrs)
}

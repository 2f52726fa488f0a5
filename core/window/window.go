// Package window aggregates per-match observations into before and after
// windows around an anchor date.
package window

import (
	"math"
	"time"

	"github.com/huangsam/injuryscope/schema"
)

// FallbackWindowDays is the nominal window of the season-level fallback.
const FallbackWindowDays = 90

// Aggregate splits obs into the windows [anchor-windowDays, anchor) and
// (anchor, anchor+windowDays]. An observation on the anchor date belongs to
// neither window. Empty input yields zero-valued stats.
func Aggregate(obs []schema.MatchObservation, anchor time.Time, windowDays int) (before, after schema.WindowStats) {
	anchor = calendarDay(anchor)
	start := anchor.AddDate(0, 0, -windowDays)
	end := anchor.AddDate(0, 0, windowDays)

	for _, o := range obs {
		d := calendarDay(o.Date)
		switch {
		case !d.Before(start) && d.Before(anchor):
			add(&before, o)
		case d.After(anchor) && !d.After(end):
			add(&after, o)
		}
	}

	before.PerformanceScore = PerformanceScore(before.Goals, before.Assists, before.Minutes)
	after.PerformanceScore = PerformanceScore(after.Goals, after.Assists, after.Minutes)
	return before, after
}

// SeasonFallback converts season totals into window stats. Before carries
// the season sums; after is zero because a season total cannot be split
// around the anchor.
func SeasonFallback(totals schema.SeasonTotals) (before, after schema.WindowStats) {
	before = schema.WindowStats{
		Games:   totals.Games,
		Minutes: totals.Minutes,
		Goals:   totals.Goals,
		Assists: totals.Assists,
	}
	before.PerformanceScore = PerformanceScore(totals.Goals, totals.Assists, totals.Minutes)
	return before, schema.WindowStats{}
}

// FallbackSeason returns the season whose totals stand in for the match log
// of an injury on date: the prior year for injuries before July.
func FallbackSeason(date time.Time) int {
	if date.Month() < time.July {
		return date.Year() - 1
	}
	return date.Year()
}

// PerformanceScore is goal contributions per 90 minutes rounded to three
// decimals, or 0 when no minutes were played.
func PerformanceScore(goals, assists, minutes int) float64 {
	if minutes <= 0 {
		return 0
	}
	return Round(float64(goals+assists)*90/float64(minutes), 3)
}

// Round rounds v to the given number of decimals, half away from zero.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func add(s *schema.WindowStats, o schema.MatchObservation) {
	s.Games++
	if o.Started {
		s.GamesStarted++
	}
	s.Minutes += o.Minutes
	s.Goals += o.Goals
	s.Assists += o.Assists
	s.YellowCards += o.YellowCards
	s.RedCards += o.RedCards
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

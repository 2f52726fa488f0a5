package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjuryEventKey(t *testing.T) {
	daysOut, longer := 25, 30
	e := InjuryEvent{
		PlayerName: "Damir Kreilach",
		Team:       "Real Salt Lake",
		Season:     "23/24",
		InjuryType: "Hamstring strain",
		InjuryDate: "Jun 15, 2023",
		DaysOut:    &daysOut,
	}
	assert.Equal(t, "Real Salt Lake|Damir Kreilach|23/24|Jun 15, 2023|Hamstring strain", e.Key())

	// Recovery fields are not part of the identity.
	other := e
	other.DaysOut = &longer
	assert.Equal(t, e.Key(), other.Key())
}

func TestAddNote(t *testing.T) {
	var r EnrichedInjuryRecord
	r.AddNote("venue_unmatched")
	r.AddNote("fixture_not_found")
	r.AddNote("venue_unmatched")
	r.AddNote("match_log_unavailable")
	assert.Equal(t, []string{"fixture_not_found", "match_log_unavailable", "venue_unmatched"}, r.Notes)
}

func TestHasPerformance(t *testing.T) {
	var r EnrichedInjuryRecord
	assert.False(t, r.HasPerformance())
	r.Before = &WindowStats{}
	assert.False(t, r.HasPerformance())
	r.After = &WindowStats{}
	assert.True(t, r.HasPerformance())
}

func TestSummaryCounts(t *testing.T) {
	enrich := EnrichmentSummary{Total: 10, Duplicates: 1, Resumed: 2, Processed: 7, Enriched: 4, Partial: 1, Skipped: 1, Failed: 1}
	assert.Equal(t, RunCounts{Total: 7, Enriched: 4, Partial: 1, Skipped: 1, Failed: 1}, enrich.Counts())

	collect := CollectSummary{Players: 5, PlayerFailures: 2}
	assert.Equal(t, RunCounts{Total: 5, Enriched: 3, Failed: 2}, collect.Counts())
}

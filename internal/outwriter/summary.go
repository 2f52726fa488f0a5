package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// summaryRow is one labelled value of a batch summary.
type summaryRow struct {
	key   string // snake_case key used by CSV
	label string // table label
	value string
}

// WriteEnrichmentSummary prints the enrichment summary in the configured format.
func WriteEnrichmentSummary(summary schema.EnrichmentSummary, cfg *contract.Config) error {
	return writeSummary(cfg, summary, enrichmentRows(summary, cfg), "Enrichment", "Wrote enrichment summary")
}

// WriteCollectSummary prints the collection summary in the configured format.
func WriteCollectSummary(summary schema.CollectSummary, cfg *contract.Config) error {
	return writeSummary(cfg, summary, collectRows(summary), "Collection", "Wrote collection summary")
}

// WriteMergeSummary prints the merge summary in the configured format.
func WriteMergeSummary(summary schema.MergeSummary, cfg *contract.Config) error {
	return writeSummary(cfg, summary, mergeRows(summary), "Merge", "Wrote merge summary")
}

func writeSummary(cfg *contract.Config, data any, rows []summaryRow, title, successMsg string) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		switch cfg.Output {
		case schema.JSONOut:
			return writeJSON(w, data)
		case schema.CSVOut:
			records := make([][]string, len(rows))
			for i, r := range rows {
				records[i] = []string{r.key, r.value}
			}
			return writeCSVWithHeader(w, []string{"metric", "value"}, records)
		default:
			return writeSummaryTable(w, title, rows)
		}
	}, successMsg)
}

func writeSummaryTable(w io.Writer, title string, rows []summaryRow) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{title, "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r.label, r.value})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func enrichmentRows(s schema.EnrichmentSummary, cfg *contract.Config) []summaryRow {
	status := func(st schema.RecordStatus) string {
		if cfg.UseColors {
			return contract.GetColorStatus(st)
		}
		return string(st)
	}
	return []summaryRow{
		{"run_id", "Run ID", s.RunID},
		{"total", "Input records", strconv.Itoa(s.Total)},
		{"resumed", "Resumed (already done)", strconv.Itoa(s.Resumed)},
		{"duplicates", "Duplicate keys", strconv.Itoa(s.Duplicates)},
		{"processed", "Processed", strconv.Itoa(s.Processed)},
		{"enriched", status(schema.StatusEnriched), strconv.Itoa(s.Enriched)},
		{"partial", status(schema.StatusPartial), strconv.Itoa(s.Partial)},
		{"skipped", status(schema.StatusSkipped), strconv.Itoa(s.Skipped)},
		{"failed", status(schema.StatusFailed), strconv.Itoa(s.Failed)},
		{"fixture_matches", "Fixture matches", ratio(s.FixtureMatches, s.Processed)},
		{"home_games", "Home games", strconv.Itoa(s.HomeGames)},
		{"away_games", "Away games", strconv.Itoa(s.AwayGames)},
		{"venue_matches", "Venue matches", ratio(s.VenueMatches, s.FixtureMatches)},
		{"season_fallbacks", "Season fallbacks", strconv.Itoa(s.SeasonFallbacks)},
		{"duration", "Duration", s.Duration.Round(time.Millisecond).String()},
	}
}

func collectRows(s schema.CollectSummary) []summaryRow {
	return []summaryRow{
		{"run_id", "Run ID", s.RunID},
		{"seasons", "Seasons", strings.Join(s.Seasons, ",")},
		{"teams", "Teams", strconv.Itoa(s.Teams)},
		{"players", "Players fetched", strconv.Itoa(s.Players)},
		{"players_resumed", "Players resumed", strconv.Itoa(s.PlayersResumed)},
		{"player_failures", "Player failures", strconv.Itoa(s.PlayerFailures)},
		{"injuries", "Injuries written", strconv.Itoa(s.Injuries)},
		{"fetch_failures", "Fetch failures", strconv.Itoa(s.FetchFailures)},
		{"duration", "Duration", s.Duration.Round(time.Millisecond).String()},
	}
}

func mergeRows(s schema.MergeSummary) []summaryRow {
	return []summaryRow{
		{"base_count", "Base records", strconv.Itoa(s.BaseCount)},
		{"update_count", "Update records", strconv.Itoa(s.UpdateCount)},
		{"duplicates_removed", "Duplicates removed", strconv.Itoa(s.DuplicatesRemoved)},
		{"final_count", "Final records", strconv.Itoa(s.FinalCount)},
	}
}

// ratio formats n of total with a percentage.
func ratio(n, total int) string {
	if total == 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%d (%.1f%%)", n, float64(n)*100/float64(total))
}

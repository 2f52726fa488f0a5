package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func intPtr(n int) *int { return &n }

func TestParseInjuries(t *testing.T) {
	input := "\ufeffplayer_name,position,team,season,injury_type,injury_date,return_date,days_out,games_missed,player_url,data_collection_date\n" +
		"Damir Kreilach,Attacking Midfield,Real Salt Lake,23/24,Hamstring injury,\"Jun 15, 2023\",\"Jul 1, 2023\",16.0,3,/kreilach/profil/spieler/1,2024-01-01\n" +
		"Pablo Ruiz,Central Midfield,Real Salt Lake,23/24,Knock,-,,,nan,,2024-01-01\n"

	events, err := ParseInjuries(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "Damir Kreilach", first.PlayerName)
	assert.Equal(t, "Jun 15, 2023", first.InjuryDate)
	assert.Equal(t, "/kreilach/profil/spieler/1", first.PlayerURL)
	require.NotNil(t, first.DaysOut)
	assert.Equal(t, 16, *first.DaysOut)
	require.NotNil(t, first.GamesMissed)
	assert.Equal(t, 3, *first.GamesMissed)

	second := events[1]
	assert.Equal(t, "-", second.InjuryDate)
	assert.Nil(t, second.DaysOut)
	assert.Nil(t, second.GamesMissed)
}

func TestParseInjuries_MissingColumn(t *testing.T) {
	_, err := ParseInjuries(strings.NewReader("player_name,season\nA,23/24\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team")
}

func TestParseInjuries_Empty(t *testing.T) {
	events, err := ParseInjuries(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReadInjuries_MissingFile(t *testing.T) {
	_, err := ReadInjuries(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, contract.IsFatal(err))
}

func TestValidateInjury(t *testing.T) {
	require.NoError(t, ValidateInjury(schema.InjuryEvent{PlayerName: "A", Team: "B"}))

	err := ValidateInjury(schema.InjuryEvent{PlayerName: "A"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrParseFailure))
	assert.False(t, contract.IsFatal(err))
}

func TestWriteInjuries(t *testing.T) {
	var buf bytes.Buffer
	events := []schema.InjuryEvent{
		{PlayerName: "A, Jr.", Team: "LA Galaxy", Season: "23/24", InjuryDate: "Jun 1, 2023", DaysOut: intPtr(10)},
		{PlayerName: "B", Team: "LA Galaxy"},
	}
	require.NoError(t, WriteInjuries(&buf, events))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(InjuryHeader, ","), lines[0])
	assert.Equal(t, `"A, Jr.",,,LA Galaxy,23/24,,"Jun 1, 2023",,10,`, lines[1])

	back, err := ParseInjuries(&buf)
	require.NoError(t, err)
	assert.Equal(t, events, back)
}

func TestReadVenues(t *testing.T) {
	path := writeFile(t, "venues.csv",
		"team,stadium_name,surface_type,city,state,altitude_ft,climate_zone,start_year,end_year\n"+
			"Real Salt Lake,America First Field,Grass,Sandy,UT,4327,Semi-arid,2008,2030\n"+
			"LA Galaxy,Dignity Health Sports Park,Grass,Carson,CA,,Mediterranean,2003,2030\n")

	venues, err := ReadVenues(path)
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, 4327, venues[0].AltitudeFt)
	assert.Equal(t, 2008, venues[0].StartYear)
	assert.Equal(t, 0, venues[1].AltitudeFt)
}

func TestReadVenues_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad year", "team,stadium_name,start_year,end_year\nA,S,soon,2030\n"},
		{"end before start", "team,stadium_name,start_year,end_year\nA,S,2020,2010\n"},
		{"missing stadium", "team,stadium_name,start_year,end_year\nA,,2010,2020\n"},
		{"missing column", "team,start_year,end_year\nA,2010,2020\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadVenues(writeFile(t, "venues.csv", tt.body))
			require.Error(t, err)
			assert.True(t, contract.IsFatal(err))
		})
	}
}

func TestReadBenchmarks(t *testing.T) {
	path := writeFile(t, "benchmarks.csv",
		"injury_type,time_period,median_recovery_days,mean_recovery_days\n"+
			"Hamstring Strain,2016-2021,12,15.5\n"+
			"ACL,2016-2021,247,\n")

	rows, err := ReadBenchmarks(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, 15.5, rows[0].MeanRecoveryDays, 1e-9)
	assert.InDelta(t, 247, rows[1].MedianRecoveryDays, 1e-9)
	assert.Zero(t, rows[1].MeanRecoveryDays)

	_, err = ReadBenchmarks(writeFile(t, "bad.csv", "injury_type,median_recovery_days\nACL,long\n"))
	assert.True(t, contract.IsFatal(err))
}

func TestReadTeamIDs(t *testing.T) {
	path := writeFile(t, "teams.csv",
		"team,team_id,canonical\n"+
			"Real Salt Lake,6643,\n"+
			"RSL,6643,Real Salt Lake\n")

	ids, err := ReadTeamIDs(path)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "Real Salt Lake", ids[0].Canonical)
	assert.Equal(t, "Real Salt Lake", ids[1].Canonical)

	_, err = ReadTeamIDs(writeFile(t, "bad.csv", "team,team_id\nRSL,\n"))
	assert.True(t, contract.IsFatal(err))
}

func sampleEnriched() []schema.EnrichedInjuryRecord {
	full := schema.EnrichedInjuryRecord{
		InjuryEvent: schema.InjuryEvent{
			PlayerName: "A", Team: "Real Salt Lake", Season: "23/24",
			InjuryType: "Hamstring injury", InjuryDate: "2023-06-15", DaysOut: intPtr(16), GamesMissed: intPtr(3),
		},
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
		Venue: &schema.VenueRecord{
			Team: "Real Salt Lake", StadiumName: "America First Field", SurfaceType: "Grass",
			City: "Sandy", State: "UT", AltitudeFt: 4327, ClimateZone: "Semi-arid",
		},
		Before:            &schema.WindowStats{Games: 2, GamesStarted: 1, Minutes: 135, Goals: 1, PerformanceScore: 1.333},
		After:             &schema.WindowStats{Games: 1, Minutes: 20, YellowCards: 1},
		PerformanceSource: schema.SourceMatch,
		Status:            schema.StatusEnriched,
	}
	bare := schema.EnrichedInjuryRecord{
		InjuryEvent: schema.InjuryEvent{PlayerName: "B", Team: "LA Galaxy", InjuryDate: "-"},
		Status:      schema.StatusSkipped,
		Notes:       []string{"invalid_injury_date"},
	}
	return []schema.EnrichedInjuryRecord{full, bare}
}

func TestEnrichedHeader(t *testing.T) {
	assert.Len(t, EnrichedHeader, len(InjuryHeader)+12+2*len(windowColumns)+3)
	assert.Equal(t, "player_name", EnrichedHeader[0])
	assert.Equal(t, "match_date", EnrichedHeader[len(InjuryHeader)])
	assert.Contains(t, EnrichedHeader, "before_performance_score")
	assert.Contains(t, EnrichedHeader, "after_red_cards")
	assert.Equal(t, "notes", EnrichedHeader[len(EnrichedHeader)-1])

	for _, rec := range sampleEnriched() {
		assert.Len(t, EnrichedFields(rec), len(EnrichedHeader))
	}
}

func TestEnrichedWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")
	w, err := OpenEnrichedWriter(path, true)
	require.NoError(t, err)

	records := sampleEnriched()
	for _, rec := range records {
		require.NoError(t, w.Append(rec))
	}
	assert.Equal(t, 2, w.Rows())
	require.NoError(t, w.Close())

	back, err := ReadEnriched(path)
	require.NoError(t, err)
	assert.Equal(t, records, back)
}

func TestEnrichedWriter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")
	records := sampleEnriched()

	w, err := OpenEnrichedWriter(path, true)
	require.NoError(t, err)
	require.NoError(t, w.Append(records[0]))
	require.NoError(t, w.Close())

	// Reopening without truncate keeps the existing rows and writes no second header
	w, err = OpenEnrichedWriter(path, false)
	require.NoError(t, err)
	require.NoError(t, w.Append(records[1]))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "player_name,"))

	keys, err := ReadEnrichedKeys(path)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, records[0].Key())
	assert.Contains(t, keys, records[1].Key())
}

func TestEnrichedWriter_RepairsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")
	records := sampleEnriched()

	w, err := OpenEnrichedWriter(path, true)
	require.NoError(t, err)
	require.NoError(t, w.Append(records[0]))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("B,,,LA Gal")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w, err = OpenEnrichedWriter(path, false)
	require.NoError(t, err)
	require.NoError(t, w.Append(records[1]))
	require.NoError(t, w.Close())

	back, err := ReadEnriched(path)
	require.NoError(t, err)
	assert.Equal(t, records, back)
}

func TestEnrichedWriter_HeaderMismatch(t *testing.T) {
	path := writeFile(t, "enriched.csv", "something,else\n1,2\n")
	_, err := OpenEnrichedWriter(path, false)
	require.Error(t, err)
	assert.True(t, contract.IsFatal(err))

	// Truncating replaces the file regardless
	w, err := OpenEnrichedWriter(path, true)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestReadEnrichedKeys_MissingFile(t *testing.T) {
	keys, err := ReadEnrichedKeys(filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestParseEnriched_ForeignColumns(t *testing.T) {
	// Files produced elsewhere may lack derived columns entirely
	input := "player_name,team,season,injury_type,days_out,before_games,before_performance_score,after_games,after_performance_score,data_collection_date\n" +
		"A,Real Salt Lake,23/24,ACL,200,3,1.5,0,0,2024-01-01\n" +
		"B,LA Galaxy,23/24,Knock,,,,,,2024-01-01\n"

	records, err := ParseEnriched(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NotNil(t, records[0].Before)
	assert.Equal(t, 3, records[0].Before.Games)
	assert.InDelta(t, 1.5, records[0].Before.PerformanceScore, 1e-9)
	require.NotNil(t, records[0].After)
	assert.True(t, records[0].HasPerformance())
	assert.Nil(t, records[0].Fixture)
	assert.Nil(t, records[0].Venue)

	assert.False(t, records[1].HasPerformance())
	assert.Nil(t, records[1].DaysOut)
}

func TestInjuryWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "injuries.csv")
	w, err := OpenInjuryWriter(path, false)
	require.NoError(t, err)

	event := schema.InjuryEvent{PlayerName: "A", Team: "LA Galaxy", Season: "2023", DaysOut: intPtr(4)}
	require.NoError(t, w.Append(event))
	require.NoError(t, w.Close())

	events, err := ReadInjuries(path)
	require.NoError(t, err)
	assert.Equal(t, []schema.InjuryEvent{event}, events)
}

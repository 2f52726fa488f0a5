package tabular

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/injuryscope/core/dates"
	"github.com/huangsam/injuryscope/schema"
)

// windowColumns are the per-window statistics, each written once with a
// before_ and once with an after_ prefix.
var windowColumns = []string{
	"games",
	"games_started",
	"minutes",
	"goals",
	"assists",
	"yellow_cards",
	"red_cards",
	"performance_score",
}

// EnrichedHeader is the column order of the enriched output file.
var EnrichedHeader = buildEnrichedHeader()

func buildEnrichedHeader() []string {
	header := append([]string{}, InjuryHeader...)
	header = append(header,
		"match_date",
		"home_team",
		"away_team",
		"opponent",
		"is_home_game",
		"days_between_match_and_injury",
		"stadium_name",
		"surface_type",
		"city",
		"state",
		"altitude_ft",
		"climate_zone",
	)
	for _, prefix := range []string{"before_", "after_"} {
		for _, col := range windowColumns {
			header = append(header, prefix+col)
		}
	}
	return append(header, "performance_source", "status", "notes")
}

// EnrichedFields flattens rec in EnrichedHeader order. Unresolved lookups
// leave their columns blank.
func EnrichedFields(rec schema.EnrichedInjuryRecord) []string {
	fields := injuryFields(rec.InjuryEvent)

	fixture := make([]string, 6)
	if f := rec.Fixture; f != nil {
		fixture = []string{
			dates.Format(f.Date),                       // match_date
			f.HomeTeam,                                 // home_team
			f.AwayTeam,                                 // away_team
			f.Opponent,                                 // opponent
			strconv.FormatBool(f.IsHomeForSubjectTeam), // is_home_game
			strconv.Itoa(f.DaysBetween),                // days_between_match_and_injury
		}
	}
	fields = append(fields, fixture...)

	venue := make([]string, 6)
	if v := rec.Venue; v != nil {
		venue = []string{
			v.StadiumName,              // stadium_name
			v.SurfaceType,              // surface_type
			v.City,                     // city
			v.State,                    // state
			strconv.Itoa(v.AltitudeFt), // altitude_ft
			v.ClimateZone,              // climate_zone
		}
	}
	fields = append(fields, venue...)

	fields = append(fields, windowFields(rec.Before)...)
	fields = append(fields, windowFields(rec.After)...)

	return append(fields,
		string(rec.PerformanceSource),
		string(rec.Status),
		strings.Join(rec.Notes, ";"),
	)
}

func windowFields(w *schema.WindowStats) []string {
	if w == nil {
		return make([]string, len(windowColumns))
	}
	return []string{
		strconv.Itoa(w.Games),
		strconv.Itoa(w.GamesStarted),
		strconv.Itoa(w.Minutes),
		strconv.Itoa(w.Goals),
		strconv.Itoa(w.Assists),
		strconv.Itoa(w.YellowCards),
		strconv.Itoa(w.RedCards),
		strconv.FormatFloat(w.PerformanceScore, 'f', -1, 64),
	}
}

// ReadEnriched loads an enriched output file. A missing file is FatalConfig.
func ReadEnriched(path string) ([]schema.EnrichedInjuryRecord, error) {
	rows, err := readFile(path, "player_name", "team")
	if err != nil {
		return nil, err
	}
	return enrichedFromRows(rows), nil
}

// ParseEnriched reads enriched records from r.
func ParseEnriched(r io.Reader) ([]schema.EnrichedInjuryRecord, error) {
	rows, err := readRows(r, "player_name", "team")
	if err != nil {
		return nil, err
	}
	return enrichedFromRows(rows), nil
}

// ReadEnrichedKeys returns the identity keys already present in an enriched
// output file. A missing file has no keys.
func ReadEnrichedKeys(path string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return keys, nil
	}
	records, err := ReadEnriched(path)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		keys[rec.Key()] = struct{}{}
	}
	return keys, nil
}

func enrichedFromRows(rows []row) []schema.EnrichedInjuryRecord {
	out := make([]schema.EnrichedInjuryRecord, 0, len(rows))
	for _, r := range rows {
		rec := schema.EnrichedInjuryRecord{
			InjuryEvent:       injuryFromRow(r),
			PerformanceSource: schema.PerformanceSource(r.get("performance_source")),
			Status:            schema.RecordStatus(r.get("status")),
		}
		if notes := r.get("notes"); notes != "" {
			for _, n := range strings.Split(notes, ";") {
				rec.AddNote(strings.TrimSpace(n))
			}
		}
		rec.Fixture = fixtureFromRow(r)
		rec.Venue = venueFromRow(r)
		rec.Before = windowFromRow(r, "before_")
		rec.After = windowFromRow(r, "after_")
		out = append(out, rec)
	}
	return out
}

func fixtureFromRow(r row) *schema.ResolvedFixture {
	date, err := time.Parse(dates.ISOLayout, r.get("match_date"))
	if err != nil {
		return nil
	}
	home, _ := strconv.ParseBool(r.get("is_home_game"))
	f := &schema.ResolvedFixture{
		Fixture: schema.Fixture{
			Date:                 date,
			HomeTeam:             r.get("home_team"),
			AwayTeam:             r.get("away_team"),
			IsHomeForSubjectTeam: home,
			Opponent:             r.get("opponent"),
		},
	}
	if n := r.optInt("days_between_match_and_injury"); n != nil {
		f.DaysBetween = *n
	}
	return f
}

func venueFromRow(r row) *schema.VenueRecord {
	name := r.get("stadium_name")
	if name == "" {
		return nil
	}
	v := &schema.VenueRecord{
		Team:        r.get("home_team"),
		StadiumName: name,
		SurfaceType: r.get("surface_type"),
		City:        r.get("city"),
		State:       r.get("state"),
		ClimateZone: r.get("climate_zone"),
	}
	if n := r.optInt("altitude_ft"); n != nil {
		v.AltitudeFt = *n
	}
	return v
}

func windowFromRow(r row, prefix string) *schema.WindowStats {
	if r.get(prefix+"games") == "" {
		return nil
	}
	count := func(col string) int {
		if n := r.optInt(prefix + col); n != nil {
			return *n
		}
		return 0
	}
	w := &schema.WindowStats{
		Games:        count("games"),
		GamesStarted: count("games_started"),
		Minutes:      count("minutes"),
		Goals:        count("goals"),
		Assists:      count("assists"),
		YellowCards:  count("yellow_cards"),
		RedCards:     count("red_cards"),
	}
	if score, err := strconv.ParseFloat(r.get(prefix+"performance_score"), 64); err == nil {
		w.PerformanceScore = score
	}
	return w
}

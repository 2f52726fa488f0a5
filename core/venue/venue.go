// Package venue joins fixtures to the home team's stadium for a year.
package venue

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Table indexes venue records by team. For any team and year at most one
// record is valid.
type Table struct {
	byTeam map[string][]schema.VenueRecord
	teams  contract.TeamLookup
	size   int
}

// NewTable validates records and builds the index. Invalid rows and
// overlapping validity intervals for one team are FatalConfig. teams may be
// nil, in which case team names are keyed as given.
func NewTable(records []schema.VenueRecord, teams contract.TeamLookup) (*Table, error) {
	t := &Table{byTeam: make(map[string][]schema.VenueRecord), teams: teams}

	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, contract.FatalConfig(err, "venue row %d (%s)", i+1, rec.Team)
		}
		key := t.key(rec.Team)
		t.byTeam[key] = append(t.byTeam[key], rec)
		t.size++
	}

	for _, recs := range t.byTeam {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].StartYear < recs[j].StartYear })
		for i := 1; i < len(recs); i++ {
			prev, cur := recs[i-1], recs[i]
			if cur.StartYear <= prev.EndYear {
				return nil, contract.FatalConfigf(
					"overlapping venues for %s: %s (%d-%d) and %s (%d-%d)",
					cur.Team, prev.StadiumName, prev.StartYear, prev.EndYear,
					cur.StadiumName, cur.StartYear, cur.EndYear,
				)
			}
		}
	}
	return t, nil
}

// Lookup returns the venue of homeTeam valid in year. The caller passes the
// fixture's home team, never the injured player's team.
func (t *Table) Lookup(homeTeam string, year int) (schema.VenueRecord, bool) {
	if t == nil {
		return schema.VenueRecord{}, false
	}
	for _, rec := range t.byTeam[t.key(homeTeam)] {
		if rec.StartYear <= year && year <= rec.EndYear {
			return rec, true
		}
	}
	return schema.VenueRecord{}, false
}

// Len returns the number of venue records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

func (t *Table) key(team string) string {
	if t.teams != nil {
		team = t.teams.Canonical(team)
	}
	return strings.ToLower(strings.TrimSpace(team))
}

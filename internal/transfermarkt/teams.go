package transfermarkt

import (
	"strings"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/tabular"
	"github.com/huangsam/injuryscope/schema"
)

// TeamTable maps team names and aliases to site ids and canonical names.
type TeamTable struct {
	byName map[string]schema.TeamID
}

var _ contract.TeamLookup = &TeamTable{} // Compile-time check

// NewTeamTable indexes rows. A name listed twice with different ids is
// FatalConfig.
func NewTeamTable(rows []schema.TeamID) (*TeamTable, error) {
	t := &TeamTable{byName: make(map[string]schema.TeamID, len(rows))}
	for _, row := range rows {
		if row.Canonical == "" {
			row.Canonical = row.Team
		}
		for _, name := range []string{row.Team, row.Canonical} {
			key := normalizeTeam(name)
			if prev, ok := t.byName[key]; ok && prev.ID != row.ID {
				return nil, contract.FatalConfigf("team %q maps to both %s and %s", name, prev.ID, row.ID)
			}
			if _, ok := t.byName[key]; !ok || key == normalizeTeam(row.Team) {
				t.byName[key] = row
			}
		}
	}
	return t, nil
}

// LoadTeamTable reads a team,team_id[,canonical] file.
func LoadTeamTable(path string) (*TeamTable, error) {
	rows, err := tabular.ReadTeamIDs(path)
	if err != nil {
		return nil, err
	}
	return NewTeamTable(rows)
}

// ID returns the site id of a team name or alias.
func (t *TeamTable) ID(team string) (string, bool) {
	if t == nil {
		return "", false
	}
	row, ok := t.byName[normalizeTeam(team)]
	return row.ID, ok
}

// Canonical returns the canonical name of team, or team unchanged when it is
// not listed.
func (t *TeamTable) Canonical(team string) string {
	if t == nil {
		return team
	}
	if row, ok := t.byName[normalizeTeam(team)]; ok {
		return row.Canonical
	}
	return team
}

// Len returns the number of distinct names known.
func (t *TeamTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byName)
}

func normalizeTeam(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Package fixture matches injuries to the most recent preceding fixture and
// owns the season rules that decide which fixture lists to consult.
package fixture

import (
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/injuryscope/core/dates"
	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// Policy bounds the calendar-day gap between a fixture and an injury.
type Policy struct {
	MinGapDays int
	MaxGapDays int
}

// DefaultPolicy accepts fixtures on the injury day up to a week before it.
var DefaultPolicy = Policy{MinGapDays: contract.DefaultMinGapDays, MaxGapDays: contract.DefaultMaxGapDays}

// Validate checks 0 <= MinGapDays <= MaxGapDays.
func (p Policy) Validate() error {
	if p.MinGapDays < 0 {
		return contract.FatalConfigf("fixture min gap cannot be negative (received %d)", p.MinGapDays)
	}
	if p.MaxGapDays < p.MinGapDays {
		return contract.FatalConfigf("fixture max gap %d is less than min gap %d", p.MaxGapDays, p.MinGapDays)
	}
	return nil
}

// Resolver resolves fixtures with a policy and a team-name lookup.
type Resolver struct {
	policy Policy
	teams  contract.TeamLookup
}

// NewResolver creates a Resolver. teams may be nil, in which case team names
// are compared as given.
func NewResolver(policy Policy, teams contract.TeamLookup) (*Resolver, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{policy: policy, teams: teams}, nil
}

// Policy returns the resolver's gap policy.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Resolve picks the fixture closest before injuryDate whose gap is within the
// policy. Fixtures after the injury are never candidates. Among equal gaps
// the first fixture in input order wins.
func (r *Resolver) Resolve(team string, injuryDate time.Time, fixtures []schema.Fixture) (schema.ResolvedFixture, bool) {
	best := -1
	bestGap := 0
	for i, f := range fixtures {
		if f.Date.IsZero() {
			continue
		}
		gap := dates.DaysBetween(f.Date, injuryDate)
		if gap < r.policy.MinGapDays || gap > r.policy.MaxGapDays {
			continue
		}
		if best < 0 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best < 0 {
		return schema.ResolvedFixture{}, false
	}

	f := fixtures[best]
	f.IsHomeForSubjectTeam = r.sameTeam(f.HomeTeam, team)
	if f.IsHomeForSubjectTeam {
		f.Opponent = f.AwayTeam
	} else {
		f.Opponent = f.HomeTeam
	}
	return schema.ResolvedFixture{Fixture: f, DaysBetween: bestGap}, true
}

func (r *Resolver) sameTeam(a, b string) bool {
	if r.teams != nil {
		a, b = r.teams.Canonical(a), r.teams.Canonical(b)
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Resolve is a convenience wrapper that compares team names as given.
func Resolve(team string, injuryDate time.Time, fixtures []schema.Fixture, policy Policy) (schema.ResolvedFixture, bool) {
	return (&Resolver{policy: policy}).Resolve(team, injuryDate, fixtures)
}

// SeasonCandidates returns the seasons whose fixture lists and match logs may
// hold matches near date: the nominal year plus the adjacent year on the side
// the month leans toward.
func SeasonCandidates(date time.Time) []string {
	y := date.Year()
	if date.Month() <= time.June {
		return []string{strconv.Itoa(y - 1), strconv.Itoa(y)}
	}
	return []string{strconv.Itoa(y), strconv.Itoa(y + 1)}
}

// Merge concatenates fixture lists in order and drops fixtures already seen
// on the same date with the same home team. The first one listed is kept.
func Merge(lists ...[]schema.Fixture) []schema.Fixture {
	var merged []schema.Fixture
	seen := make(map[string]struct{})
	for _, fixtures := range lists {
		for _, f := range fixtures {
			key := dates.Format(f.Date) + "|" + strings.ToLower(strings.TrimSpace(f.HomeTeam))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, f)
		}
	}
	return merged
}

// SeasonLabelYear converts a scraped season label into its start year.
// "23/24" yields "2023" and "2023" is returned as is.
func SeasonLabelYear(label string) (string, bool) {
	label = strings.TrimSpace(label)
	if len(label) == 4 {
		if _, err := strconv.Atoi(label); err == nil {
			return label, true
		}
		return "", false
	}
	first, _, found := strings.Cut(label, "/")
	if !found || len(first) != 2 {
		return "", false
	}
	n, err := strconv.Atoi(first)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(2000 + n), true
}

// MatchesSeason reports whether a scraped season label belongs to season.
func MatchesSeason(label, season string) bool {
	year, ok := SeasonLabelYear(label)
	return ok && year == season
}

package fixture

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/injuryscope/schema"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// aliasLookup maps lowercase aliases to canonical names.
type aliasLookup map[string]string

func (a aliasLookup) ID(team string) (string, bool) {
	_, ok := a[strings.ToLower(team)]
	return "", ok
}

func (a aliasLookup) Canonical(team string) string {
	if c, ok := a[strings.ToLower(team)]; ok {
		return c
	}
	return team
}

func TestResolveRealSaltLakeExample(t *testing.T) {
	fixtures := []schema.Fixture{
		{Date: day(2023, time.June, 11), HomeTeam: "Real Salt Lake", AwayTeam: "Austin FC"},
		{Date: day(2023, time.June, 20), HomeTeam: "Seattle Sounders FC", AwayTeam: "Real Salt Lake"},
	}

	got, ok := Resolve("Real Salt Lake", day(2023, time.June, 15), fixtures, DefaultPolicy)
	require.True(t, ok)
	assert.True(t, got.Date.Equal(day(2023, time.June, 11)))
	assert.Equal(t, 4, got.DaysBetween)
	assert.True(t, got.IsHomeForSubjectTeam)
	assert.Equal(t, "Austin FC", got.Opponent)
}

func TestResolvePrefersSmallestGap(t *testing.T) {
	injury := day(2023, time.June, 15)
	fixtures := []schema.Fixture{
		{Date: injury.AddDate(0, 0, -5), HomeTeam: "A", AwayTeam: "B"},
		{Date: injury.AddDate(0, 0, -3), HomeTeam: "C", AwayTeam: "A"},
	}

	got, ok := Resolve("A", injury, fixtures, DefaultPolicy)
	require.True(t, ok)
	assert.Equal(t, 3, got.DaysBetween)
	assert.False(t, got.IsHomeForSubjectTeam)
	assert.Equal(t, "C", got.Opponent)
}

func TestResolveTieKeepsFirst(t *testing.T) {
	injury := day(2023, time.June, 15)
	fixtures := []schema.Fixture{
		{Date: injury.AddDate(0, 0, -2), HomeTeam: "First", AwayTeam: "A"},
		{Date: injury.AddDate(0, 0, -2), HomeTeam: "Second", AwayTeam: "A"},
	}

	got, ok := Resolve("A", injury, fixtures, DefaultPolicy)
	require.True(t, ok)
	assert.Equal(t, "First", got.HomeTeam)
}

func TestResolveExclusions(t *testing.T) {
	injury := day(2023, time.June, 15)
	tests := []struct {
		name     string
		fixtures []schema.Fixture
		ok       bool
		gap      int
	}{
		{"no fixtures", nil, false, 0},
		{"only future fixtures", []schema.Fixture{{Date: injury.AddDate(0, 0, 1)}}, false, 0},
		{"eight days before", []schema.Fixture{{Date: injury.AddDate(0, 0, -8)}}, false, 0},
		{"exactly seven days before", []schema.Fixture{{Date: injury.AddDate(0, 0, -7)}}, true, 7},
		{"same day", []schema.Fixture{{Date: injury}}, true, 0},
		{"zero date skipped", []schema.Fixture{{}}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve("A", injury, tt.fixtures, DefaultPolicy)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.gap, got.DaysBetween)
				assert.False(t, got.Date.After(injury))
			}
		})
	}
}

func TestResolveCustomPolicy(t *testing.T) {
	injury := day(2023, time.June, 15)
	fixtures := []schema.Fixture{
		{Date: injury},
		{Date: injury.AddDate(0, 0, -10)},
	}

	r, err := NewResolver(Policy{MinGapDays: 1, MaxGapDays: 14}, nil)
	require.NoError(t, err)

	got, ok := r.Resolve("A", injury, fixtures)
	require.True(t, ok)
	assert.Equal(t, 10, got.DaysBetween)
}

func TestResolverUsesAliases(t *testing.T) {
	teams := aliasLookup{"rsl": "Real Salt Lake", "real salt lake": "Real Salt Lake"}
	r, err := NewResolver(DefaultPolicy, teams)
	require.NoError(t, err)

	got, ok := r.Resolve("Real Salt Lake", day(2023, time.June, 15), []schema.Fixture{
		{Date: day(2023, time.June, 14), HomeTeam: "RSL", AwayTeam: "LA Galaxy"},
	})
	require.True(t, ok)
	assert.True(t, got.IsHomeForSubjectTeam)
	assert.Equal(t, "LA Galaxy", got.Opponent)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy.Validate())
	assert.Error(t, Policy{MinGapDays: -1, MaxGapDays: 7}.Validate())
	assert.Error(t, Policy{MinGapDays: 5, MaxGapDays: 4}.Validate())

	_, err := NewResolver(Policy{MinGapDays: 3, MaxGapDays: 1}, nil)
	assert.Error(t, err)
}

func TestSeasonCandidates(t *testing.T) {
	assert.Equal(t, []string{"2022", "2023"}, SeasonCandidates(day(2023, time.June, 30)))
	assert.Equal(t, []string{"2022", "2023"}, SeasonCandidates(day(2023, time.January, 1)))
	assert.Equal(t, []string{"2023", "2024"}, SeasonCandidates(day(2023, time.July, 1)))
	assert.Equal(t, []string{"2023", "2024"}, SeasonCandidates(day(2023, time.December, 31)))
}

func TestMerge(t *testing.T) {
	playoff := schema.Fixture{Date: day(2022, time.November, 5), HomeTeam: "Real Salt Lake", AwayTeam: "LA Galaxy"}
	opener := schema.Fixture{Date: day(2023, time.February, 25), HomeTeam: "Real Salt Lake", AwayTeam: "Austin FC"}
	// The next season's page lists the playoff match again with other casing
	relisted := schema.Fixture{Date: day(2022, time.November, 5), HomeTeam: "real salt lake ", AwayTeam: "Austin FC"}
	away := schema.Fixture{Date: day(2022, time.November, 5), HomeTeam: "LA Galaxy", AwayTeam: "Real Salt Lake"}

	merged := Merge([]schema.Fixture{playoff}, nil, []schema.Fixture{relisted, opener, away})
	assert.Equal(t, []schema.Fixture{playoff, opener, away}, merged)
	assert.Empty(t, Merge())
}

func TestSeasonLabelYear(t *testing.T) {
	tests := []struct {
		label    string
		expected string
		ok       bool
	}{
		{"23/24", "2023", true},
		{"09/10", "2009", true},
		{"2023", "2023", true},
		{" 2021 ", "2021", true},
		{"abcd", "", false},
		{"2023/24", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := SeasonLabelYear(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}

	assert.True(t, MatchesSeason("23/24", "2023"))
	assert.False(t, MatchesSeason("22/23", "2023"))
}

// Package schema has models and enums shared by all parts of injuryscope.
package schema

import (
	"sort"
	"strings"
	"time"
)

// InjuryEvent is one scraped injury row. Its fields are never mutated by enrichment.
type InjuryEvent struct {
	PlayerName  string `json:"player_name" validate:"required"` // Display name of the player
	PlayerURL   string `json:"player_url"`                      // Profile page of the player
	Position    string `json:"position"`                        // Squad position label
	Team        string `json:"team" validate:"required"`        // Team the player belonged to
	Season      string `json:"season"`                          // Season label as scraped (e.g. 23/24)
	InjuryType  string `json:"injury_type"`                     // Free text injury description
	InjuryDate  string `json:"injury_date"`                     // Raw injury date string
	ReturnDate  string `json:"return_date"`                     // Raw return date string
	DaysOut     *int   `json:"days_out"`                        // Days missed, nil when unknown
	GamesMissed *int   `json:"games_missed"`                    // Games missed, nil when unknown
}

// Key returns the composite identity of the event. It is the progress-marker key
// for enrichment and the duplicate key when merging update files.
func (e InjuryEvent) Key() string {
	return strings.Join([]string{e.Team, e.PlayerName, e.Season, e.InjuryDate, e.InjuryType}, "|")
}

// MatchObservation is one player's line for one competitive match.
type MatchObservation struct {
	Date        time.Time
	Started     bool
	Minutes     int
	Goals       int
	Assists     int
	YellowCards int
	RedCards    int
}

// SeasonTotals is the season-level summary used when match logs are unavailable.
type SeasonTotals struct {
	Games   int
	Minutes int
	Goals   int
	Assists int
}

// Fixture is one scheduled match from the point of view of a subject team.
type Fixture struct {
	Date                 time.Time
	HomeTeam             string
	AwayTeam             string
	IsHomeForSubjectTeam bool
	Opponent             string
}

// ResolvedFixture is the fixture matched to an injury.
type ResolvedFixture struct {
	Fixture
	DaysBetween int // Calendar days from match to injury
}

// VenueRecord describes a team's home venue over a validity interval of years.
type VenueRecord struct {
	Team        string `json:"team" validate:"required"`
	StadiumName string `json:"stadium_name" validate:"required"`
	SurfaceType string `json:"surface_type"`
	City        string `json:"city"`
	State       string `json:"state"`
	AltitudeFt  int    `json:"altitude_ft" validate:"gte=0"`
	ClimateZone string `json:"climate_zone"`
	StartYear   int    `json:"start_year" validate:"required,gt=0"`
	EndYear     int    `json:"end_year" validate:"required,gtefield=StartYear"`
}

// BenchmarkRecord is an external recovery-time reference row.
type BenchmarkRecord struct {
	InjuryType         string  `json:"injury_type" validate:"required"`
	TimePeriod         string  `json:"time_period"`
	MedianRecoveryDays float64 `json:"median_recovery_days" validate:"gte=0"`
	MeanRecoveryDays   float64 `json:"mean_recovery_days" validate:"gte=0"`
}

// TeamID maps a team name (or alias) to the site identifier and canonical name.
type TeamID struct {
	Team      string `validate:"required"`
	ID        string `validate:"required"`
	Canonical string
}

// TeamRef is a team listed on a league page.
type TeamRef struct {
	Name string
	URL  string
}

// PlayerRef is a player listed on a squad page.
type PlayerRef struct {
	Name     string
	URL      string
	Position string
}

// WindowStats aggregates match observations on one side of an anchor date.
type WindowStats struct {
	Games            int     `json:"games"`
	GamesStarted     int     `json:"games_started"`
	Minutes          int     `json:"minutes"`
	Goals            int     `json:"goals"`
	Assists          int     `json:"assists"`
	YellowCards      int     `json:"yellow_cards"`
	RedCards         int     `json:"red_cards"`
	PerformanceScore float64 `json:"performance_score"`
}

// EnrichedInjuryRecord is an InjuryEvent plus everything derived for it.
// Derived pointers are nil when the corresponding lookup did not resolve.
type EnrichedInjuryRecord struct {
	InjuryEvent
	Fixture           *ResolvedFixture  `json:"fixture,omitempty"`
	Venue             *VenueRecord      `json:"venue,omitempty"`
	Before            *WindowStats      `json:"before,omitempty"`
	After             *WindowStats      `json:"after,omitempty"`
	PerformanceSource PerformanceSource `json:"performance_source,omitempty"`
	Status            RecordStatus      `json:"status"`
	Notes             []string          `json:"notes,omitempty"`
}

// AddNote records a field-level outcome. Notes stay sorted and unique so that
// output is independent of the order lookups happen in.
func (r *EnrichedInjuryRecord) AddNote(note string) {
	i := sort.SearchStrings(r.Notes, note)
	if i < len(r.Notes) && r.Notes[i] == note {
		return
	}
	r.Notes = append(r.Notes, "")
	copy(r.Notes[i+1:], r.Notes[i:])
	r.Notes[i] = note
}

// HasPerformance reports whether both windows are present.
func (r EnrichedInjuryRecord) HasPerformance() bool {
	return r.Before != nil && r.After != nil
}

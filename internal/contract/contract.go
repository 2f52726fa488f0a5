// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/injuryscope/schema"
)

// PageFetcher retrieves the structured rows the enrichment pipeline needs.
// Implementations never retry; a failure is returned as ErrFetchFailure and
// the caller treats it as an empty result.
type PageFetcher interface {
	// FetchFixtures returns every fixture of a team in a season.
	FetchFixtures(ctx context.Context, team, season string) ([]schema.Fixture, error)

	// FetchMatchLog returns a player's per-match observations in a season.
	FetchMatchLog(ctx context.Context, playerURL, season string) ([]schema.MatchObservation, error)

	// FetchSeasonTotals returns a player's season-level totals.
	FetchSeasonTotals(ctx context.Context, playerURL, season string) (schema.SeasonTotals, error)
}

// RosterFetcher retrieves the pages used to collect injury records.
type RosterFetcher interface {
	FetchTeams(ctx context.Context, season string) ([]schema.TeamRef, error)
	FetchSquad(ctx context.Context, team schema.TeamRef, season string) ([]schema.PlayerRef, error)
	FetchInjuries(ctx context.Context, player schema.PlayerRef, team string) ([]schema.InjuryEvent, error)
}

// TeamLookup resolves team names and aliases to site identifiers.
type TeamLookup interface {
	// ID returns the site identifier for a team name or alias.
	ID(team string) (string, bool)

	// Canonical returns the canonical name for a team name or alias,
	// or the input unchanged when it is unknown.
	Canonical(team string) string
}

// StoreManager defines the interface for managing persistent stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetCacheStore() CacheStore
	GetProgressStore() ProgressStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for the fetch cache.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// ProgressStore is the monotonically growing "already processed" set.
// Mark is idempotent; a unit is identified by namespace and key.
type ProgressStore interface {
	Has(ctx context.Context, namespace, key string) (bool, error)
	Mark(ctx context.Context, namespace, key string) error
	Keys(ctx context.Context, namespace string) ([]string, error)
	Clear(ctx context.Context, namespace string) error
	GetStatus(ctx context.Context) (schema.ProgressStatus, error)
	Close() error
}

// RunStore tracks batch runs and the outcome of every unit they processed.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(kind schema.RunKind, startTime time.Time, configParams map[string]any) (string, error)

	// RecordOutcome stores the outcome of one unit of work
	RecordOutcome(runID, unitKey string, status schema.RecordStatus, notes string) error

	// EndRun updates the run with completion data
	EndRun(runID string, endTime time.Time, counts schema.RunCounts) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// GetAllRuns returns every run ordered by start time
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllOutcomes returns every recorded outcome ordered by run and unit
	GetAllOutcomes() ([]schema.OutcomeRecord, error)

	// Close closes the underlying connection
	Close() error
}

// EnrichedSink is the append-only writer for enriched records.
type EnrichedSink interface {
	Append(record schema.EnrichedInjuryRecord) error
}

// InjurySink is the append-only writer for collected injury events.
type InjurySink interface {
	Append(event schema.InjuryEvent) error
}

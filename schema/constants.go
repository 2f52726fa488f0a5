package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the backend for a persistent store.
	DatabaseBackend string

	// RecordStatus represents the outcome of processing one unit of work.
	RecordStatus string

	// PerformanceSource represents where the before/after stats came from.
	PerformanceSource string

	// RunKind represents the batch command that produced a run.
	RunKind string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis" // progress store only
	NoneBackend       DatabaseBackend = "none"
)

// All record statuses.
const (
	StatusEnriched RecordStatus = "enriched" // fixture, venue and performance all resolved
	StatusPartial  RecordStatus = "partial"  // some derived fields unset
	StatusSkipped  RecordStatus = "skipped"  // unusable source record
	StatusFailed   RecordStatus = "failed"   // recovered panic

	StatusCollected   RecordStatus = "collected"    // player injury page fetched
	StatusFetchFailed RecordStatus = "fetch_failed" // player injury page unavailable
)

// All performance sources.
const (
	SourceNone   PerformanceSource = ""
	SourceMatch  PerformanceSource = "match"
	SourceSeason PerformanceSource = "season"
)

// All run kinds.
const (
	EnrichRun  RunKind = "enrich"
	CollectRun RunKind = "collect"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists the backends valid for SQL-shaped stores.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidProgressBackends lists the backends valid for the progress store.
var ValidProgressBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

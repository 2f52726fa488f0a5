package iocache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// Table names for run tracking.
const (
	runsTable     = "injuryscope_runs"
	outcomesTable = "injuryscope_run_outcomes"
)

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &RunStoreImpl{backend: backend}, nil
	}

	db, err := openSQL(backend, connStr, GetRunDBFilePath())
	if err != nil {
		return nil, errors.Wrap(err, "run store")
	}

	if err := createRunTables(db, backend); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create run tables")
	}

	return &RunStoreImpl{db: db, backend: backend}, nil
}

// createRunTables creates the run tracking tables.
func createRunTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{runsTable, getCreateRunsQuery(backend)},
		{outcomesTable, getCreateOutcomesQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return errors.Wrapf(err, "failed to create table %s", table.name)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for injuryscope_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) PRIMARY KEY,
				kind VARCHAR(16) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms BIGINT,
				total_units INT NOT NULL DEFAULT 0,
				enriched_units INT NOT NULL DEFAULT 0,
				partial_units INT NOT NULL DEFAULT 0,
				skipped_units INT NOT NULL DEFAULT 0,
				failed_units INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) PRIMARY KEY,
				kind TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms BIGINT,
				total_units INT NOT NULL DEFAULT 0,
				enriched_units INT NOT NULL DEFAULT 0,
				partial_units INT NOT NULL DEFAULT 0,
				skipped_units INT NOT NULL DEFAULT 0,
				failed_units INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_units INTEGER NOT NULL DEFAULT 0,
				enriched_units INTEGER NOT NULL DEFAULT 0,
				partial_units INTEGER NOT NULL DEFAULT 0,
				skipped_units INTEGER NOT NULL DEFAULT 0,
				failed_units INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateOutcomesQuery returns the CREATE TABLE query for injuryscope_run_outcomes.
func getCreateOutcomesQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(outcomesTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) NOT NULL,
				unit_key VARCHAR(512) NOT NULL,
				status VARCHAR(16) NOT NULL,
				notes TEXT,
				recorded_at DATETIME(6) NOT NULL,
				PRIMARY KEY (run_id, unit_key)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) NOT NULL,
				unit_key TEXT NOT NULL,
				status TEXT NOT NULL,
				notes TEXT,
				recorded_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (run_id, unit_key)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT NOT NULL,
				unit_key TEXT NOT NULL,
				status TEXT NOT NULL,
				notes TEXT,
				recorded_at TEXT NOT NULL,
				PRIMARY KEY (run_id, unit_key)
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(kind schema.RunKind, startTime time.Time, configParams map[string]any) (string, error) {
	runID := uuid.NewString()

	// Skip for NoneBackend; the ID still identifies the run in logs
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return runID, nil
	}

	configJSON, err := sonic.Marshal(configParams)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal config params")
	}

	query := fmt.Sprintf(`INSERT INTO %s (run_id, kind, start_time, config_params) VALUES (%s, %s, %s, %s)`,
		append([]any{quoteTableName(runsTable, rs.backend)}, placeholders(rs.backend, 4)...)...)
	if _, err := rs.db.Exec(query, runID, string(kind), formatTime(startTime, rs.backend), string(configJSON)); err != nil {
		return "", errors.Wrap(err, "failed to insert run")
	}
	return runID, nil
}

// RecordOutcome stores the outcome of one unit. Recording the same unit
// twice in a run keeps the latest outcome.
func (rs *RunStoreImpl) RecordOutcome(runID, unitKey string, status schema.RecordStatus, notes string) error {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil
	}

	now := formatTime(time.Now(), rs.backend)
	if _, err := rs.db.Exec(rs.getOutcomeUpsertQuery(), runID, unitKey, string(status), notes, now); err != nil {
		return errors.Wrap(err, "failed to insert run outcome")
	}
	return nil
}

// getOutcomeUpsertQuery returns the UPSERT query for run outcomes.
func (rs *RunStoreImpl) getOutcomeUpsertQuery() string {
	quotedTableName := quoteTableName(outcomesTable, rs.backend)
	switch rs.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (run_id, unit_key, status, notes, recorded_at) VALUES (?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE status = new.status, notes = new.notes, recorded_at = new.recorded_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (run_id, unit_key, status, notes, recorded_at) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (run_id, unit_key) DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, recorded_at = EXCLUDED.recorded_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (run_id, unit_key, status, notes, recorded_at) VALUES (?, ?, ?, ?, ?)`, quotedTableName)
	}
}

// EndRun updates the run with completion data.
func (rs *RunStoreImpl) EndRun(runID string, endTime time.Time, counts schema.RunCounts) error {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, rs.backend)

	// First, get the start_time to calculate duration
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, placeholders(rs.backend, 1)[0])
	start := newTimeScanner(rs.backend)
	if err := rs.db.QueryRow(query, runID).Scan(start.dest()); err != nil {
		return errors.Wrapf(err, "failed to get start_time for run %s", runID)
	}
	startTime, err := start.value()
	if err != nil {
		return err
	}
	if startTime == nil {
		return errors.Newf("run %s has no start_time", runID)
	}
	durationMs := endTime.Sub(*startTime).Milliseconds()

	updateQuery := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_units = %s, enriched_units = %s,
		partial_units = %s, skipped_units = %s, failed_units = %s WHERE run_id = %s`,
		append([]any{quotedTableName}, placeholders(rs.backend, 8)...)...)
	_, err = rs.db.Exec(updateQuery, formatTime(endTime, rs.backend), durationMs,
		counts.Total, counts.Enriched, counts.Partial, counts.Skipped, counts.Failed, runID)
	if err != nil {
		return errors.Wrap(err, "failed to update run")
	}
	return nil
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if rs.backend == schema.NoneBackend || rs.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, rs.backend)
	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns)).Scan(&status.TotalRuns); err != nil {
		return status, errors.Wrap(err, "failed to get total runs")
	}

	if status.TotalRuns > 0 {
		// Get last run info
		last := newTimeScanner(rs.backend)
		lastRunQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY start_time DESC LIMIT 1", quotedRuns)
		if err := rs.db.QueryRow(lastRunQuery).Scan(&status.LastRunID, last.dest()); err != nil {
			return status, errors.Wrap(err, "failed to get last run info")
		}
		if t, err := last.value(); err != nil {
			return status, err
		} else if t != nil {
			status.LastRunTime = *t
		}

		// Get oldest run time
		oldest := newTimeScanner(rs.backend)
		oldestRunQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY start_time ASC LIMIT 1", quotedRuns)
		if err := rs.db.QueryRow(oldestRunQuery).Scan(oldest.dest()); err != nil {
			return status, errors.Wrap(err, "failed to get oldest run time")
		}
		if t, err := oldest.value(); err != nil {
			return status, err
		} else if t != nil {
			status.OldestRunTime = *t
		}

		unitsQuery := fmt.Sprintf("SELECT COALESCE(SUM(total_units), 0) FROM %s", quotedRuns)
		if err := rs.db.QueryRow(unitsQuery).Scan(&status.TotalUnits); err != nil {
			return status, errors.Wrap(err, "failed to get total units")
		}
	}

	for _, table := range []string{runsTable, outcomesTable} {
		var count int64
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend))
		if err := rs.db.QueryRow(countQuery).Scan(&count); err != nil {
			return status, errors.Wrapf(err, "failed to get count for table %s", table)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, kind, start_time, end_time, run_duration_ms, total_units, enriched_units,
		partial_units, skipped_units, failed_units, config_params FROM %s ORDER BY start_time, run_id`,
		quoteTableName(runsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		start := newTimeScanner(rs.backend)
		end := newTimeScanner(rs.backend)
		var duration sql.NullInt64
		var params sql.NullString

		if err := rows.Scan(&record.RunID, &record.Kind, start.dest(), end.dest(), &duration,
			&record.Counts.Total, &record.Counts.Enriched, &record.Counts.Partial,
			&record.Counts.Skipped, &record.Counts.Failed, &params); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}

		startTime, err := start.value()
		if err != nil {
			return nil, err
		}
		if startTime != nil {
			record.StartTime = *startTime
		}
		if record.EndTime, err = end.value(); err != nil {
			return nil, err
		}
		if duration.Valid {
			record.DurationMs = &duration.Int64
		}
		if params.Valid {
			record.ConfigParams = &params.String
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating runs")
	}
	return results, nil
}

// GetAllOutcomes retrieves all unit outcomes from the store.
func (rs *RunStoreImpl) GetAllOutcomes() ([]schema.OutcomeRecord, error) {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, unit_key, status, notes, recorded_at FROM %s ORDER BY run_id, unit_key`,
		quoteTableName(outcomesTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query run outcomes")
	}
	defer func() { _ = rows.Close() }()

	var results []schema.OutcomeRecord
	for rows.Next() {
		var record schema.OutcomeRecord
		var notes sql.NullString
		recorded := newTimeScanner(rs.backend)

		if err := rows.Scan(&record.RunID, &record.UnitKey, &record.Status, &notes, recorded.dest()); err != nil {
			return nil, errors.Wrap(err, "failed to scan run outcome")
		}
		record.Notes = notes.String
		t, err := recorded.value()
		if err != nil {
			return nil, err
		}
		if t != nil {
			record.RecordedAt = *t
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating run outcomes")
	}
	return results, nil
}

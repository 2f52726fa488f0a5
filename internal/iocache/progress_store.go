package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// progressTable is the name of the table for progress markers.
const progressTable = "injuryscope_progress"

// SQLProgressStore keeps progress markers in a SQL table keyed by
// (namespace, unit_key).
type SQLProgressStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.ProgressStore = &SQLProgressStore{} // Compile-time check

// NewProgressStore returns the progress store for backend. The none backend
// yields an in-memory store that lives for the process only.
func NewProgressStore(ctx context.Context, backend schema.DatabaseBackend, connStr string) (contract.ProgressStore, error) {
	switch backend {
	case schema.NoneBackend:
		return NewMemoryProgressStore(), nil
	case schema.RedisBackend:
		return NewRedisProgressStore(ctx, connStr)
	}

	db, err := openSQL(backend, connStr, GetProgressDBFilePath())
	if err != nil {
		return nil, errors.Wrap(err, "progress store")
	}
	if _, err := db.ExecContext(ctx, getCreateProgressTableQuery(backend)); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to create table %s", progressTable)
	}
	return &SQLProgressStore{db: db, backend: backend}, nil
}

// getCreateProgressTableQuery returns the CREATE TABLE query for the given backend.
func getCreateProgressTableQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(progressTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				namespace VARCHAR(64) NOT NULL,
				unit_key VARCHAR(512) NOT NULL,
				PRIMARY KEY (namespace, unit_key)
			);
		`, quotedTableName)

	default: // SQLite and PostgreSQL
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				namespace TEXT NOT NULL,
				unit_key TEXT NOT NULL,
				PRIMARY KEY (namespace, unit_key)
			);
		`, quotedTableName)
	}
}

// Has reports whether key was marked in namespace.
func (s *SQLProgressStore) Has(ctx context.Context, namespace, key string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE namespace = %s AND unit_key = %s`,
		append([]any{quoteTableName(progressTable, s.backend)}, placeholders(s.backend, 2)...)...)
	var one int
	err := s.db.QueryRowContext(ctx, query, namespace, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to query progress marker")
	}
	return true, nil
}

// Mark records key in namespace. Marking an existing key is a no-op.
func (s *SQLProgressStore) Mark(ctx context.Context, namespace, key string) error {
	if _, err := s.db.ExecContext(ctx, s.getInsertIgnoreQuery(), namespace, key); err != nil {
		return errors.Wrap(err, "failed to insert progress marker")
	}
	return nil
}

// getInsertIgnoreQuery returns the insert-or-ignore query for the backend.
func (s *SQLProgressStore) getInsertIgnoreQuery() string {
	quotedTableName := quoteTableName(progressTable, s.backend)
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT IGNORE INTO %s (namespace, unit_key) VALUES (?, ?)`, quotedTableName)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (namespace, unit_key) VALUES ($1, $2) ON CONFLICT DO NOTHING`, quotedTableName)
	default: // SQLite
		return fmt.Sprintf(`INSERT OR IGNORE INTO %s (namespace, unit_key) VALUES (?, ?)`, quotedTableName)
	}
}

// Keys returns the sorted keys marked in namespace.
func (s *SQLProgressStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	query := fmt.Sprintf(`SELECT unit_key FROM %s WHERE namespace = %s ORDER BY unit_key`,
		quoteTableName(progressTable, s.backend), placeholders(s.backend, 1)[0])
	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query progress markers")
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "failed to scan progress marker")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating progress markers")
	}
	return keys, nil
}

// Clear removes every marker in namespace.
func (s *SQLProgressStore) Clear(ctx context.Context, namespace string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE namespace = %s`,
		quoteTableName(progressTable, s.backend), placeholders(s.backend, 1)[0])
	if _, err := s.db.ExecContext(ctx, query, namespace); err != nil {
		return errors.Wrapf(err, "failed to clear progress namespace %s", namespace)
	}
	return nil
}

// GetStatus returns marker counts per namespace.
func (s *SQLProgressStore) GetStatus(ctx context.Context) (schema.ProgressStatus, error) {
	status := schema.ProgressStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		Namespaces: make(map[string]int64),
	}

	query := fmt.Sprintf(`SELECT namespace, COUNT(*) FROM %s GROUP BY namespace`, quoteTableName(progressTable, s.backend))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return status, errors.Wrap(err, "failed to count progress markers")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ns string
		var count int64
		if err := rows.Scan(&ns, &count); err != nil {
			return status, errors.Wrap(err, "failed to scan progress count")
		}
		status.Namespaces[ns] = count
		status.TotalUnits += count
	}
	return status, rows.Err()
}

// Close closes the underlying DB connection.
func (s *SQLProgressStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// MemoryProgressStore is a process-local progress store.
type MemoryProgressStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

var _ contract.ProgressStore = &MemoryProgressStore{} // Compile-time check

// NewMemoryProgressStore creates an empty in-memory store.
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{sets: make(map[string]map[string]struct{})}
}

// Has reports whether key was marked in namespace.
func (m *MemoryProgressStore) Has(_ context.Context, namespace, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sets[namespace][key]
	return ok, nil
}

// Mark records key in namespace.
func (m *MemoryProgressStore) Mark(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[namespace]
	if !ok {
		set = make(map[string]struct{})
		m.sets[namespace] = set
	}
	set[key] = struct{}{}
	return nil
}

// Keys returns the sorted keys marked in namespace.
func (m *MemoryProgressStore) Keys(_ context.Context, namespace string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.sets[namespace]))
	for k := range m.sets[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every marker in namespace.
func (m *MemoryProgressStore) Clear(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, namespace)
	return nil
}

// GetStatus returns marker counts per namespace.
func (m *MemoryProgressStore) GetStatus(_ context.Context) (schema.ProgressStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := schema.ProgressStatus{
		Backend:    string(schema.NoneBackend),
		Connected:  true,
		Namespaces: make(map[string]int64, len(m.sets)),
	}
	for ns, set := range m.sets {
		status.Namespaces[ns] = int64(len(set))
		status.TotalUnits += int64(len(set))
	}
	return status, nil
}

// Close is a no-op.
func (m *MemoryProgressStore) Close() error { return nil }

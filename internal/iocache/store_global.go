package iocache

import (
	"context"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// fetchCacheTable is the name of the table for fetch caching.
const fetchCacheTable = "injuryscope_fetch_cache"

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// GetProgressDBFilePath returns the path to the SQLite DB file for progress markers.
func GetProgressDBFilePath() string {
	return contract.GetProgressDBFilePath()
}

// GetRunDBFilePath returns the path to the SQLite DB file for run tracking.
func GetRunDBFilePath() string {
	return contract.GetRunDBFilePath()
}

// StoreOptions selects the backend and connection of every store. An empty
// backend leaves that store uninitialized.
type StoreOptions struct {
	CacheBackend    schema.DatabaseBackend
	CacheConnStr    string
	ProgressBackend schema.DatabaseBackend
	ProgressConnStr string
	RunBackend      schema.DatabaseBackend
	RunConnStr      string
}

// InitStores initializes the global store manager exactly once.
func InitStores(ctx context.Context, opts StoreOptions) error {
	var initErr error

	initOnce.Do(func() {
		mgr, err := openStores(ctx, opts)
		if err != nil {
			initErr = err
			return
		}
		Manager.Lock()
		defer Manager.Unlock()
		Manager.cache = mgr.cache
		Manager.progress = mgr.progress
		Manager.runs = mgr.runs
	})

	// After once.Do, initErr will contain any error from the initialization block.
	return initErr
}

// openStores opens every configured store, closing the ones already opened
// when a later one fails.
func openStores(ctx context.Context, opts StoreOptions) (*StoreManager, error) {
	mgr := &StoreManager{}
	var err error

	if opts.CacheBackend != "" {
		mgr.cache, err = NewCacheStore(fetchCacheTable, opts.CacheBackend, opts.CacheConnStr)
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialize fetch caching")
		}
	}

	if opts.ProgressBackend != "" {
		mgr.progress, err = NewProgressStore(ctx, opts.ProgressBackend, opts.ProgressConnStr)
		if err != nil {
			closeManager(mgr)
			return nil, errors.Wrap(err, "failed to initialize progress store")
		}
	}

	if opts.RunBackend != "" {
		mgr.runs, err = NewRunStore(opts.RunBackend, opts.RunConnStr)
		if err != nil {
			closeManager(mgr)
			return nil, errors.Wrap(err, "failed to initialize run store")
		}
	}
	return mgr, nil
}

func closeManager(mgr *StoreManager) {
	if mgr.cache != nil {
		_ = mgr.cache.Close()
	}
	if mgr.progress != nil {
		_ = mgr.progress.Close()
	}
	if mgr.runs != nil {
		_ = mgr.runs.Close()
	}
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		closeManager(Manager)
	})
}

// ClearCache clears the fetch cache for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For NoneBackend, it does nothing.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, fetchCacheTable)
}

// ClearRuns clears run history for the specified backend.
func ClearRuns(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, runsTable, outcomesTable)
}

// ClearProgress removes every progress marker for the specified backend.
// Redis progress sets are deleted key by key.
func ClearProgress(ctx context.Context, backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	if backend == schema.RedisBackend {
		return clearRedisProgress(ctx, connStr)
	}
	return clearBackend(backend, dbFilePath, connStr, progressTable)
}

func clearBackend(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return errors.New("dbFilePath cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to remove SQLite database file %s", dbFilePath)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropTables(backend, connStr, tables...)

	case schema.NoneBackend:
		return nil

	default:
		return errors.Newf("unsupported backend for clearing: %s", backend)
	}
}

package iocache

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetCacheStore implements the StoreManager interface.
func (m *MockStoreManager) GetCacheStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetProgressStore implements the StoreManager interface.
func (m *MockStoreManager) GetProgressStore() contract.ProgressStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ProgressStore)
	return store
}

// GetRunStore implements the StoreManager interface.
func (m *MockStoreManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// MockProgressStore is a mock implementation of ProgressStore for testing.
type MockProgressStore struct {
	mock.Mock
}

var _ contract.ProgressStore = &MockProgressStore{} // Compile-time check

// Has implements the ProgressStore interface.
func (m *MockProgressStore) Has(ctx context.Context, namespace, key string) (bool, error) {
	args := m.Called(ctx, namespace, key)
	return args.Bool(0), args.Error(1)
}

// Mark implements the ProgressStore interface.
func (m *MockProgressStore) Mark(ctx context.Context, namespace, key string) error {
	args := m.Called(ctx, namespace, key)
	return args.Error(0)
}

// Keys implements the ProgressStore interface.
func (m *MockProgressStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	args := m.Called(ctx, namespace)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

// Clear implements the ProgressStore interface.
func (m *MockProgressStore) Clear(ctx context.Context, namespace string) error {
	args := m.Called(ctx, namespace)
	return args.Error(0)
}

// GetStatus implements the ProgressStore interface.
func (m *MockProgressStore) GetStatus(ctx context.Context) (schema.ProgressStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.ProgressStatus), args.Error(1)
}

// Close implements the ProgressStore interface.
func (m *MockProgressStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(kind schema.RunKind, startTime time.Time, configParams map[string]any) (string, error) {
	args := m.Called(kind, startTime, configParams)
	return args.String(0), args.Error(1)
}

// RecordOutcome implements the RunStore interface.
func (m *MockRunStore) RecordOutcome(runID, unitKey string, status schema.RecordStatus, notes string) error {
	args := m.Called(runID, unitKey, status, notes)
	return args.Error(0)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(runID string, endTime time.Time, counts schema.RunCounts) error {
	args := m.Called(runID, endTime, counts)
	return args.Error(0)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.RunStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.RunStatus), args.Error(1)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllOutcomes implements the RunStore interface.
func (m *MockRunStore) GetAllOutcomes() ([]schema.OutcomeRecord, error) {
	args := m.Called()
	outcomes, _ := args.Get(0).([]schema.OutcomeRecord)
	return outcomes, args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPageFetcher is a mock implementation of PageFetcher for testing.
type MockPageFetcher struct {
	mock.Mock
}

var _ contract.PageFetcher = &MockPageFetcher{} // Compile-time check

// FetchFixtures implements the PageFetcher interface.
func (m *MockPageFetcher) FetchFixtures(ctx context.Context, team, season string) ([]schema.Fixture, error) {
	args := m.Called(ctx, team, season)
	fixtures, _ := args.Get(0).([]schema.Fixture)
	return fixtures, args.Error(1)
}

// FetchMatchLog implements the PageFetcher interface.
func (m *MockPageFetcher) FetchMatchLog(ctx context.Context, playerURL, season string) ([]schema.MatchObservation, error) {
	args := m.Called(ctx, playerURL, season)
	obs, _ := args.Get(0).([]schema.MatchObservation)
	return obs, args.Error(1)
}

// FetchSeasonTotals implements the PageFetcher interface.
func (m *MockPageFetcher) FetchSeasonTotals(ctx context.Context, playerURL, season string) (schema.SeasonTotals, error) {
	args := m.Called(ctx, playerURL, season)
	totals, _ := args.Get(0).(schema.SeasonTotals)
	return totals, args.Error(1)
}

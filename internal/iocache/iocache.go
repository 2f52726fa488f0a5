package iocache

import (
	"sync"

	"github.com/huangsam/injuryscope/internal/contract"
)

// StoreManager manages the fetch cache, progress and run stores.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	cache        contract.CacheStore
	progress     contract.ProgressStore
	runs         contract.RunStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetCacheStore returns the fetch CacheStore.
func (mgr *StoreManager) GetCacheStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.cache
}

// GetProgressStore returns the ProgressStore.
func (mgr *StoreManager) GetProgressStore() contract.ProgressStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.progress
}

// GetRunStore returns the RunStore.
func (mgr *StoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}

package syncer

import (
	"container/list"
	"sync"
	"time"

	"github.com/tweetvault/tweetvault/api/types"
)

// Default values
const (
	defaultMaxRuns   = 100
	defaultMaxRunAge = time.Hour
	cleanupInterval  = time.Minute
)

type runEntry struct {
	uuid      string
	run       types.SyncRun
	timestamp time.Time
	element   *list.Element // pointer to the element in the list
}

// RunCache keeps recent sync-run records for the API, evicting by size and
// age. Oldest entries sit at the front of the order list.
type RunCache struct {
	lock    sync.Mutex
	entries map[string]*runEntry
	order   *list.List
	maxSize int
	maxAge  time.Duration
}

// NewRunCache creates a RunCache with the given maxSize and maxAge.
func NewRunCache(maxSize int, maxAge time.Duration) *RunCache {
	if maxSize <= 0 {
		maxSize = defaultMaxRuns
	}
	if maxAge <= 0 {
		maxAge = defaultMaxRunAge
	}
	rc := &RunCache{
		entries: make(map[string]*runEntry),
		order:   list.New(),
		maxSize: maxSize,
		maxAge:  maxAge,
	}
	go rc.periodicCleanup()
	return rc
}

// Set stores or refreshes a run record.
func (rc *RunCache) Set(uuid string, run types.SyncRun) {
	rc.lock.Lock()
	defer rc.lock.Unlock()
	if entry, exists := rc.entries[uuid]; exists {
		entry.run = run
		entry.timestamp = time.Now()
		rc.order.MoveToBack(entry.element)
		return
	}
	entry := &runEntry{
		uuid:      uuid,
		run:       run,
		timestamp: time.Now(),
	}
	entry.element = rc.order.PushBack(entry)
	rc.entries[uuid] = entry
	for len(rc.entries) > rc.maxSize {
		oldest := rc.order.Front()
		if oldest == nil {
			break
		}
		oldestEntry := oldest.Value.(*runEntry)
		delete(rc.entries, oldestEntry.uuid)
		rc.order.Remove(oldest)
	}
}

// Get returns a run record, expiring it when it has aged out.
func (rc *RunCache) Get(uuid string) (types.SyncRun, bool) {
	rc.lock.Lock()
	defer rc.lock.Unlock()
	entry, exists := rc.entries[uuid]
	if !exists {
		return types.SyncRun{}, false
	}
	if rc.maxAge > 0 && time.Since(entry.timestamp) > rc.maxAge {
		rc.order.Remove(entry.element)
		delete(rc.entries, uuid)
		return types.SyncRun{}, false
	}
	return entry.run, true
}

// Len returns the number of cached runs.
func (rc *RunCache) Len() int {
	rc.lock.Lock()
	defer rc.lock.Unlock()
	return len(rc.entries)
}

func (rc *RunCache) periodicCleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		rc.lock.Lock()
		now := time.Now()
		for e := rc.order.Front(); e != nil; {
			next := e.Next()
			entry := e.Value.(*runEntry)
			if now.Sub(entry.timestamp) > rc.maxAge {
				rc.order.Remove(e)
				delete(rc.entries, entry.uuid)
			}
			e = next
		}
		rc.lock.Unlock()
	}
}

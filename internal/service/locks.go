package service

import (
	"sync"

	"github.com/google/uuid"
)

// keyedLocks hands out one mutex per auction id so that bids on the same
// auction serialize while bids on different auctions proceed in parallel.
// A global lock here would cap throughput to one bid system-wide.
//
// Locks are never evicted: an entry is one mutex per auction ever bid on in
// this process, which stays small relative to auction row data.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lockFor returns the mutex owning the given key, creating it on first use.
func (k *keyedLocks) lockFor(key uuid.UUID) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

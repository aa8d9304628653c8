package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// LockContentionError means another aggregation holds the same (user, day).
// Callers retry with backoff, bounded.
type LockContentionError struct {
	UserID string
	Day    string
}

func (e *LockContentionError) Error() string {
	return fmt.Sprintf("aggregation for %s/%s already in progress", e.UserID, e.Day)
}

// dayLocks serializes aggregation per (user, day). Two concurrent
// recomputations of the same day would race on the same derived row; a
// keyed try-lock keeps the serialization scoped to one day instead of a
// global lock.
type dayLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newDayLocks() *dayLocks {
	return &dayLocks{held: make(map[string]struct{})}
}

func (d *dayLocks) tryLock(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.held[key]; ok {
		return false
	}
	d.held[key] = struct{}{}
	return true
}

func (d *dayLocks) unlock(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.held, key)
}

const (
	lockAttempts = 5
	lockBackoff  = 50 * time.Millisecond
)

// withLock runs fn holding the (user, day) lock, retrying acquisition with
// exponential backoff. After the attempt budget it gives up with
// LockContentionError.
func (d *dayLocks) withLock(userID, day string, fn func() error) error {
	key := userID + "/" + day
	backoff := lockBackoff
	for attempt := 0; attempt < lockAttempts; attempt++ {
		if d.tryLock(key) {
			defer d.unlock(key)
			return fn()
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return &LockContentionError{UserID: userID, Day: day}
}

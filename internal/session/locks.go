package session

import "sync"

// UserLocks serializes read-modify-write sequences against a user's records.
// The store gives no isolation between a get and the following put, so every
// multi-record mutation for a user must run under that user's lock. The same
// instance is shared with the anti-quest service.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given user, creating it on first use, and
// returns the unlock function.
func (u *UserLocks) Lock(userID string) func() {
	u.mu.Lock()
	m, ok := u.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		u.locks[userID] = m
	}
	u.mu.Unlock()

	m.Lock()
	return m.Unlock
}

package coown

import "github.com/moby/locker"

// Locks serializes work by key: one account's capital edits, or one deal's
// income recomputation. The zero value is ready to use.
type Locks struct {
	keys locker.Locker
}

// Lock blocks until key is free and returns the function releasing it.
func (l *Locks) Lock(key string) (unlock func()) {
	l.keys.Lock(key)
	// key is held, Unlock cannot fail.
	return func() { _ = l.keys.Unlock(key) }
}

// AccountKey is the lock key of an account's capital ledger.
func AccountKey(id AccountID) string { return "account/" + string(id) }

// DealKey is the lock key of a deal's income.
func DealKey(id DealID) string { return "deal/" + string(id) }

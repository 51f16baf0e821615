package sync

import (
	"sort"
	base "sync"
)

const vnodesPerStripe = 200

// StripedLock maps an unbounded key space onto a fixed set of RWMutexes, so
// unrelated keys rarely contend while memory stays bounded.
type StripedLock struct {
	locks []base.RWMutex
	ring  *ring
}

func NewStripedLock(stripes uint) *StripedLock {
	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
		ring:  newRing(stripes, vnodesPerStripe),
	}
}

// Get returns the lock guarding key.
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.ring.bucket(key)]
}

// LockAll acquires the stripes covering every key, taking a write lock on a
// stripe when any writable key maps to it and a read lock otherwise. Stripes
// are always acquired in ascending order, so concurrent callers with
// overlapping key sets cannot deadlock. The returned function releases every
// acquired stripe.
func (l *StripedLock) LockAll(writable, readonly [][]byte) (unlock func()) {
	modes := make(map[int]bool)
	for _, key := range writable {
		modes[l.ring.bucket(key)] = true
	}
	for _, key := range readonly {
		stripe := l.ring.bucket(key)
		if _, ok := modes[stripe]; !ok {
			modes[stripe] = false
		}
	}

	stripes := make([]int, 0, len(modes))
	for stripe := range modes {
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)

	for _, stripe := range stripes {
		if modes[stripe] {
			l.locks[stripe].Lock()
		} else {
			l.locks[stripe].RLock()
		}
	}

	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			stripe := stripes[i]
			if modes[stripe] {
				l.locks[stripe].Unlock()
			} else {
				l.locks[stripe].RUnlock()
			}
		}
	}
}

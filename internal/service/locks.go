package service

import (
	"sort"
	"sync"
)

type userLock struct {
	mu   sync.Mutex
	refs int
}

// userLocks serializes operations per user id. Entries are dropped when no
// goroutine holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// lock acquires the locks of every distinct id in sorted order and returns
// the release func.
func (l *userLocks) lock(ids ...string) func() {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	held := make([]*userLock, 0, len(uniq))
	for _, id := range uniq {
		l.mu.Lock()
		ul, ok := l.locks[id]
		if !ok {
			ul = &userLock{}
			l.locks[id] = ul
		}
		ul.refs++
		l.mu.Unlock()

		ul.mu.Lock()
		held = append(held, ul)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, uniq[i])
			}
			l.mu.Unlock()
		}
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

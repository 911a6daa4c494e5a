package settlement

import (
	"context"
	"sync"
)

// accountLocks hands out one lock per account. Entries are reference counted
// and removed once nobody holds or waits for them.
type accountLocks struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{entries: make(map[int64]*lockEntry)}
}

// acquire blocks until the account lock is held or ctx is done. The returned
// release func must be called exactly once on success.
func (l *accountLocks) acquire(ctx context.Context, accountID int64) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	e, ok := l.entries[accountID]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[accountID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.unref(accountID, e)
		}, nil
	case <-ctx.Done():
		l.unref(accountID, e)
		return nil, ctx.Err()
	}
}

func (l *accountLocks) unref(accountID int64, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, accountID)
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

package auth

import (
	"context"
	"sync"
)

// accountLocks serializes read-modify-write sequences per account id.
// Entries are reference counted and dropped once nobody holds or waits.
type accountLocks struct {
	mu sync.Mutex
	m  map[string]*accountLock
}

type accountLock struct {
	sem  chan struct{}
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{m: make(map[string]*accountLock)}
}

// acquire blocks until the lock for id is held or ctx is done.
func (l *accountLocks) acquire(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	al, ok := l.m[id]
	if !ok {
		al = &accountLock{sem: make(chan struct{}, 1)}
		l.m[id] = al
	}
	al.refs++
	l.mu.Unlock()

	select {
	case al.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(id, al)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-al.sem
			l.unref(id, al)
		})
	}, nil
}

func (l *accountLocks) unref(id string, al *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	al.refs--
	if al.refs == 0 {
		delete(l.m, id)
	}
}

// size is used by tests.
func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

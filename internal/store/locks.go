package store

import (
	"context"
	"sync"
)

// StylistLocks hands out one exclusive lock per stylist. Acquisition honours
// context cancellation so an abandoned request never holds a timeline.
type StylistLocks struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func (l *StylistLocks) slot(stylistID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = make(map[int64]chan struct{})
	}
	ch, ok := l.slots[stylistID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[stylistID] = ch
	}
	return ch
}

// Lock blocks until the stylist's lock is held or ctx is done. The returned
// func releases the lock.
func (l *StylistLocks) Lock(ctx context.Context, stylistID int64) (func(), error) {
	ch := l.slot(stylistID)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

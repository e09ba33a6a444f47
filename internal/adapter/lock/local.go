package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LocalLocker serializes writers per booking within one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[uuid.UUID]*slot)}
}

func (l *LocalLocker) Lock(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[bookingID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[bookingID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(bookingID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(bookingID, s)
		})
	}, nil
}

func (l *LocalLocker) release(bookingID uuid.UUID, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, bookingID)
	}
}

package memory

import (
	"context"
	"sync"
)

// SubmissionLocker is an in-process app.SubmissionLocker: one mutex per participant,
// released from the table once nobody holds or waits for it.
type SubmissionLocker struct {
	mu    sync.Mutex
	locks map[int64]*participantLock
}

type participantLock struct {
	mu   sync.Mutex
	refs int
}

func NewSubmissionLocker() *SubmissionLocker {
	return &SubmissionLocker{locks: make(map[int64]*participantLock)}
}

func (l *SubmissionLocker) Lock(ctx context.Context, participantID int64) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	l.mu.Lock()
	lock, ok := l.locks[participantID]
	if !ok {
		lock = &participantLock{}
		l.locks[participantID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()
			l.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(l.locks, participantID)
			}
			l.mu.Unlock()
		})
	}, nil
}

// held reports how many participant locks are currently tracked.
func (l *SubmissionLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock only while it still carries our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// SubmissionLocker is a Redis-backed app.SubmissionLocker so that several service
// instances sharing one database never interleave writes to the same submission.
// Locks are SET NX PX keys: quiz:submission-lock:{participantID}. While held, the
// TTL is extended every third of it.
type SubmissionLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewSubmissionLocker(client *redis.Client, ttl time.Duration) *SubmissionLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &SubmissionLocker{client: client, ttl: ttl, retry: 10 * time.Millisecond}
}

func (l *SubmissionLocker) Lock(ctx context.Context, participantID int64) (func(), error) {
	key := l.key(participantID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return func() {}, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go l.renew(key, token, done, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			// release on a fresh context: the request context may already be done
			_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
		})
	}, nil
}

func (l *SubmissionLocker) renew(key, token string, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			held, err := renewScript.Run(context.Background(), l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			if err != nil || held == 0 {
				return
			}
		}
	}
}

func (l *SubmissionLocker) key(participantID int64) string {
	return "quiz:submission-lock:" + strconv.FormatInt(participantID, 10)
}

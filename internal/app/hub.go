package app

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"quizboard/internal/domain"
)

// SnapshotFunc computes the current leaderboard view of a quiz.
type SnapshotFunc func(ctx context.Context, quizID int64) (domain.LeaderboardUpdate, error)

// Hub fans leaderboard updates out to live subscribers, keyed by quiz.
// It satisfies Notifier for single-instance deployments.
type Hub struct {
	snapshot SnapshotFunc
	logger   *zap.Logger

	mu          sync.Mutex
	subscribers map[int64]map[chan domain.LeaderboardUpdate]struct{}
}

func NewHub(snapshot SnapshotFunc, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		snapshot:    snapshot,
		logger:      logger,
		subscribers: make(map[int64]map[chan domain.LeaderboardUpdate]struct{}),
	}
}

// Subscribe registers a subscriber and delivers the current snapshot first.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(ctx context.Context, quizID int64) (<-chan domain.LeaderboardUpdate, func(), error) {
	ch := make(chan domain.LeaderboardUpdate, 8)

	// registered before the first snapshot so no Notify falls in between
	h.mu.Lock()
	subs, ok := h.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.LeaderboardUpdate]struct{})
		h.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, quizID)
		}
	}

	initial, err := h.snapshot(ctx, quizID)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	h.mu.Lock()
	// a pending Notify snapshot was computed after registration and is at least as fresh
	if len(ch) == 0 {
		ch <- initial
	}
	h.mu.Unlock()
	return ch, cancel, nil
}

// Subscribers reports how many live subscribers a quiz has.
func (h *Hub) Subscribers(quizID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[quizID])
}

// Notify recomputes the leaderboard of quizID and pushes it to its subscribers.
// Nothing is computed when nobody listens.
func (h *Hub) Notify(ctx context.Context, quizID int64) error {
	if h.Subscribers(quizID) == 0 {
		return nil
	}
	update, err := h.snapshot(ctx, quizID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[quizID] {
		select {
		case ch <- update:
		default:
			// slow subscriber: replace its oldest pending update with the fresh one
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
	h.logger.Debug("leaderboard broadcast", zap.Int64("quizId", quizID), zap.Int("subscribers", len(h.subscribers[quizID])))
	return nil
}

package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"quizboard/internal/app"
)

// UpdatesChannel carries the ids of quizzes whose leaderboard changed.
const UpdatesChannel = "quiz:leaderboard:updates"

// Notifier publishes leaderboard changes so every instance can refresh its own
// websocket subscribers.
type Notifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewNotifier(client *redis.Client, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, channel: UpdatesChannel, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, quizID int64) error {
	if err := n.client.Publish(ctx, n.channel, strconv.FormatInt(quizID, 10)).Err(); err != nil {
		return fmt.Errorf("publish leaderboard update: %w", err)
	}
	return nil
}

// Listen subscribes to the updates channel and forwards each quiz id to target
// until stop is called or ctx ends. It returns once the subscription is confirmed.
func (n *Notifier) Listen(ctx context.Context, target app.Notifier) (stop func() error, err error) {
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				quizID, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					n.logger.Warn("malformed leaderboard update", zap.String("payload", msg.Payload))
					continue
				}
				if err := target.Notify(ctx, quizID); err != nil {
					n.logger.Warn("forward leaderboard update", zap.Int64("quizId", quizID), zap.Error(err))
				}
			}
		}
	}()

	return func() error {
		cancel()
		err := pubsub.Close()
		<-done
		return err
	}, nil
}

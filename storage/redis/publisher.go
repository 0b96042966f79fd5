package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/laddergame/game/service"
)

const publishTimeout = 2 * time.Second

// Publisher sends every game event to a per-game pub/sub channel.
type Publisher struct {
	client goredis.UniversalClient
	prefix string
	log    logrus.FieldLogger
}

// NewPublisher creates a publisher. An empty prefix uses DefaultPrefix.
func NewPublisher(client goredis.UniversalClient, prefix string, log logrus.FieldLogger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{client: client, prefix: prefix, log: log}
}

// Channel returns the pub/sub channel for a game.
func (p *Publisher) Channel(gameID int64) string {
	return p.prefix + ":events:" + strconv.FormatInt(gameID, 10)
}

// Notify implements service.Notifier. Failures are logged and dropped.
func (p *Publisher) Notify(event service.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).WithField("game_id", event.GameID).Warn("failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.Channel(event.GameID), data).Err(); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"game_id": event.GameID,
			"type":    event.Type,
		}).Warn("failed to publish event")
	}
}

// Subscribe follows the events of one game until ctx is done. It returns once
// the server has confirmed the subscription.
func (p *Publisher) Subscribe(ctx context.Context, gameID int64) (<-chan service.Event, error) {
	sub := p.client.Subscribe(ctx, p.Channel(gameID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan service.Event)

	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event service.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					p.log.WithError(err).Debug("skipping malformed event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

var _ service.Notifier = (*Publisher)(nil)

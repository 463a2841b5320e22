// Package notify fans scan notifications out to live dashboards through Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"patrimonio-inventory-backend/internal/config"
	"patrimonio-inventory-backend/internal/services/inventory"
)

// Channel is the pub/sub channel carrying the scans of one session.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("inventory:sessions:%s:scans", sessionID)
}

type RedisNotifier struct {
	rdb    *redis.Client
	logger *logrus.Logger
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, logger: config.GetLogger()}
}

func (n *RedisNotifier) PublishScan(ctx context.Context, msg inventory.ScanNotification) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, Channel(msg.SessionID), payload).Err()
}

// Subscribe streams the scans of one session until ctx ends or the returned
// cancel func is called. The channel is closed afterwards.
func (n *RedisNotifier) Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan inventory.ScanNotification, func(), error) {
	ps := n.rdb.Subscribe(ctx, Channel(sessionID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan inventory.ScanNotification)
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var scan inventory.ScanNotification
				if err := json.Unmarshal([]byte(m.Payload), &scan); err != nil {
					n.logger.WithError(err).WithField("channel", m.Channel).Warn("dropping malformed scan notification")
					continue
				}
				select {
				case out <- scan:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, func() { _ = ps.Close() }, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
)

// DefaultNotificationChannel is used when no channel is configured.
const DefaultNotificationChannel = "quiz:notifications"

// NotificationPublisher publishes attempt notifications on a Redis pub/sub channel
// so that out-of-process mailers can pick them up.
type NotificationPublisher struct {
	client  *redis.Client
	channel string
}

func NewNotificationPublisher(client *redis.Client, channel string) *NotificationPublisher {
	if channel == "" {
		channel = DefaultNotificationChannel
	}
	return &NotificationPublisher{client: client, channel: channel}
}

func (p *NotificationPublisher) Deliver(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisSource 通过 Redis Pub/Sub 订阅实时事件
type RedisSource struct {
	client  *redis.Client
	channel string
	sink    Sink
}

// NewRedisSource 创建 Redis 事件源
func NewRedisSource(client *redis.Client, channel string, sink Sink) *RedisSource {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = constants.RedisChannelCartEvents
	}
	return &RedisSource{client: client, channel: channel, sink: sink}
}

// Run 订阅频道直到 ctx 取消，订阅本身没有超时
func (s *RedisSource) Run(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s failed: %w", s.channel, err)
	}
	logger.Infow("event_source_started", "source", constants.EventSourceRedis, "channel", s.channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			logger.Infow("event_source_stopped", "source", constants.EventSourceRedis, "channel", s.channel)
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis channel %s closed", s.channel)
			}
			s.handleMessage(ctx, msg)
		}
	}
}

func (s *RedisSource) handleMessage(ctx context.Context, msg *redis.Message) {
	if msg == nil {
		return
	}
	_, _ = HandleRaw(ctx, s.sink, constants.EventSourceRedis, []byte(msg.Payload))
}

// RedisPublisher 向 Redis 频道发布事件
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher 创建 Redis 发布者
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = constants.RedisChannelCartEvents
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish 发布事件
func (p *RedisPublisher) Publish(ctx context.Context, ev cart.Event) error {
	payload, err := cart.EncodeEnvelope(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Close 关闭连接
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

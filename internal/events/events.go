package events

import (
	"context"
	"errors"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/logger"
)

// Sink 事件的消费方（监控视图中心）
type Sink interface {
	Dispatch(ctx context.Context, ev cart.Event) int
}

// Publisher 事件发布方
type Publisher interface {
	Publish(ctx context.Context, ev cart.Event) error
	Close() error
}

// HandleRaw 解析统一消息格式并投递；无法解析的消息记录告警后丢弃
func HandleRaw(ctx context.Context, sink Sink, source string, raw []byte) (cart.Event, error) {
	ev, err := cart.DecodeEnvelope(raw)
	if err != nil {
		level := logger.Warnw
		if errors.Is(err, cart.ErrEventKindUnknown) {
			level = logger.Debugw
		}
		level("cart_event_dropped",
			"source", source,
			"error", err,
			"payload_bytes", len(raw),
		)
		return nil, err
	}
	delivered := 0
	if sink != nil {
		delivered = sink.Dispatch(ctx, ev)
	}
	logger.Debugw("cart_event_received",
		"source", source,
		"event", ev.Kind(),
		"cart_id", ev.RoutingKey(),
		"monitors", delivered,
	)
	return ev, nil
}

// RelaySink 将事件转发到发布方而非本地监控中心
// 用于独立 worker 进程：队列消费后经 Pub/Sub 广播给所有 API 实例
type RelaySink struct {
	Publisher Publisher
}

// Dispatch 实现 Sink 接口，发布失败记录日志并返回 0
func (r RelaySink) Dispatch(ctx context.Context, ev cart.Event) int {
	if r.Publisher == nil || ev == nil {
		return 0
	}
	if err := r.Publisher.Publish(ctx, ev); err != nil {
		logger.Warnw("cart_event_relay_failed",
			"event", ev.Kind(),
			"cart_id", ev.RoutingKey(),
			"error", err,
		)
		return 0
	}
	return 1
}

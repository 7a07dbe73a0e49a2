package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/events"
	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	sink events.Sink
}

// NewConsumer 创建消费者
func NewConsumer(sink events.Sink) *Consumer {
	return &Consumer{sink: sink}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartEvent, c.handleCartEvent)
}

func (c *Consumer) handleCartEvent(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	if c.sink == nil {
		logger.Warnw("worker_cart_event_skip_sink_nil", "event", queue.PeekEventKind(task))
		return nil
	}
	_, err := events.HandleRaw(ctx, c.sink, constants.EventSourceAsynq, task.Payload())
	if err != nil {
		// 格式错误的载荷重试也无法成功
		if errors.Is(err, cart.ErrEventInvalid) || errors.Is(err, cart.ErrEventKindUnknown) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	return nil
}

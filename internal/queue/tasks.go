package queue

import (
	"encoding/json"
	"fmt"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartEvent 购物车实时事件投递任务
	TaskCartEvent = constants.TaskCartEvent
)

// NewCartEventTask 创建购物车事件任务，载荷为统一事件信封
func NewCartEventTask(ev cart.Event) (*asynq.Task, error) {
	if ev == nil {
		return nil, fmt.Errorf("cart event is nil")
	}
	body, err := cart.EncodeEnvelope(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartEvent, body, asynq.MaxRetry(constants.CartEventRetry)), nil
}

// NewCartEventTaskFromRaw 以原始信封创建任务，入队前先校验格式
func NewCartEventTaskFromRaw(raw []byte) (*asynq.Task, error) {
	ev, err := cart.DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return NewCartEventTask(ev)
}

// PeekEventKind 读取任务载荷中的事件类型
func PeekEventKind(task *asynq.Task) string {
	if task == nil {
		return ""
	}
	var payload cart.Envelope
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ""
	}
	return payload.Event
}

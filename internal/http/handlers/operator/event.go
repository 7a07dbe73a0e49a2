package operator

import (
	"io"
	"strconv"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/events"
	"github.com/trolley-watch/internal/http/response"

	"github.com/gin-gonic/gin"
)

const maxEventBodyBytes = 64 << 10

// IngestEventResult 事件接入结果
type IngestEventResult struct {
	Event  string `json:"event"`
	CartID string `json:"cart_id"`
	Queued bool   `json:"queued"`
}

// IngestEvent 接收推送的购物车事件
// 默认直接投递到监控中心；queue=true 时写入异步队列
func (h *Handler) IngestEvent(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBodyBytes))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	queued, _ := strconv.ParseBool(c.DefaultQuery("queue", "false"))
	if queued {
		h.enqueueEvent(c, raw)
		return
	}
	ev, err := events.HandleRaw(c.Request.Context(), h.Hub, constants.EventSourceHTTP, raw)
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, IngestEventResult{Event: ev.Kind(), CartID: ev.RoutingKey()})
}

func (h *Handler) enqueueEvent(c *gin.Context, raw []byte) {
	if h.QueueClient == nil || !h.QueueClient.Enabled() {
		respondError(c, response.CodeUnavailable, "error.event_queue_unavailable", nil)
		return
	}
	ev, err := cart.DecodeEnvelope(raw)
	if err != nil {
		respondMappedError(c, err)
		return
	}
	if err := h.QueueClient.EnqueueCartEvent(ev); err != nil {
		respondError(c, response.CodeUnavailable, "error.event_queue_unavailable", err)
		return
	}
	response.Success(c, IngestEventResult{Event: ev.Kind(), CartID: ev.RoutingKey(), Queued: true})
}

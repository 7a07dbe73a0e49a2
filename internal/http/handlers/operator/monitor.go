package operator

import (
	"context"
	"strconv"

	"github.com/trolley-watch/internal/http/response"
	"github.com/trolley-watch/internal/monitor"

	handlershared "github.com/trolley-watch/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// OpenMonitorRequest 打开监控视图请求
type OpenMonitorRequest struct {
	TrolleyCode string `json:"trolley_code" binding:"required"`
}

// SetQuantityRequest 修改核验数量请求
type SetQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// OpenMonitor 打开推车监控视图
func (h *Handler) OpenMonitor(c *gin.Context) {
	var req OpenMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	m, err := h.Hub.Open(c.Request.Context(), req.TrolleyCode)
	if err != nil {
		respondMappedError(c, err)
		return
	}
	requestLog(c).Infow("monitor_opened_by_operator",
		"monitor_id", m.ID(),
		"trolley_code", m.TrolleyCode(),
		"operator", handlershared.GetOperatorName(c),
	)
	h.respondView(c, m.View)
}

// GetMonitor 读取监控视图
func (h *Handler) GetMonitor(c *gin.Context) {
	m, ok := h.lookupMonitor(c)
	if !ok {
		return
	}
	h.respondView(c, m.View)
}

// CloseMonitor 关闭监控视图
func (h *Handler) CloseMonitor(c *gin.Context) {
	if err := h.Hub.Close(c.Param("id")); err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, gin.H{"closed": true})
}

// ReloadMonitor 重新拉取购物车快照
func (h *Handler) ReloadMonitor(c *gin.Context) {
	m, ok := h.lookupMonitor(c)
	if !ok {
		return
	}
	h.respondView(c, m.Reload)
}

// BeginEdit 开始核验编辑
func (h *Handler) BeginEdit(c *gin.Context) {
	m, ok := h.lookupMonitor(c)
	if !ok {
		return
	}
	h.respondView(c, m.BeginEdit)
}

// SetEditQuantity 修改编辑缓冲中的数量
func (h *Handler) SetEditQuantity(c *gin.Context) {
	m, ok := h.lookupMonitor(c)
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := m.SetQuantity(c.Request.Context(), index, req.Quantity)
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, view)
}

// RemoveEditItem 从编辑缓冲中删除商品
func (h *Handler) RemoveEditItem(c *gin.Context) {
	m, ok := h.lookupMonitor(c)
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	view, err := m.Remove(c.Request.Context(), index)
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, view)
}

// CancelEdit 放弃编辑
func (h *Handler) CancelEdit(c *gin.Context) {
	m, ok := h.lookupMonitor(c)
	if !ok {
		return
	}
	h.respondView(c, m.CancelEdit)
}

// CommitEdit 提交编辑结果到 POS 服务端
func (h *Handler) CommitEdit(c *gin.Context) {
	m, ok := h.lookupMonitor(c)
	if !ok {
		return
	}
	view, err := m.Commit(c.Request.Context())
	if err != nil {
		respondMappedError(c, err)
		return
	}
	requestLog(c).Infow("audit_committed_by_operator",
		"monitor_id", m.ID(),
		"trolley_code", m.TrolleyCode(),
		"operator", handlershared.GetOperatorName(c),
	)
	response.Success(c, view)
}

// DismissNotification 手动关闭提示
func (h *Handler) DismissNotification(c *gin.Context) {
	m, ok := h.lookupMonitor(c)
	if !ok {
		return
	}
	dismissed, err := m.Dismiss(c.Request.Context(), c.Param("notice_id"))
	if err != nil {
		respondMappedError(c, err)
		return
	}
	if !dismissed {
		respondError(c, response.CodeNotFound, "error.notification_not_found", nil)
		return
	}
	h.respondView(c, m.View)
}

func (h *Handler) lookupMonitor(c *gin.Context) (*monitor.Monitor, bool) {
	m, err := h.Hub.Get(c.Param("id"))
	if err != nil {
		respondMappedError(c, err)
		return nil, false
	}
	return m, true
}

func (h *Handler) respondView(c *gin.Context, fn func(ctx context.Context) (monitor.View, error)) {
	view, err := fn(c.Request.Context())
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, view)
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		respondError(c, response.CodeBadRequest, "error.edit_invalid", err)
		return 0, false
	}
	return index, true
}

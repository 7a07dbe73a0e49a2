package operator

import (
	"strings"

	"github.com/trolley-watch/internal/http/response"
	"github.com/trolley-watch/internal/repository"
	"github.com/trolley-watch/internal/service"

	handlershared "github.com/trolley-watch/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// UpdateTrolleyRequest 更新推车请求
type UpdateTrolleyRequest struct {
	Status      string  `json:"status" binding:"required"`
	CurrentCart *string `json:"current_cart"`
}

// ListTrolleys 推车列表
func (h *Handler) ListTrolleys(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	trolleys, total, err := h.TrolleyService.List(repository.TrolleyListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.trolley_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, trolleys, handlershared.BuildPagination(page, pageSize, total))
}

// GetTrolley 推车详情
func (h *Handler) GetTrolley(c *gin.Context) {
	trolley, err := h.TrolleyService.GetByCode(c.Param("code"))
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, trolley)
}

// GetTrolleyHistory 推车历史购物记录
func (h *Handler) GetTrolleyHistory(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	sessions, total, err := h.TrolleyService.History(c.Param("code"), page, pageSize)
	if err != nil {
		code, key := mapError(err)
		if code == response.CodeInternal {
			key = "error.history_fetch_failed"
		}
		respondError(c, code, key, err)
		return
	}
	response.SuccessWithPage(c, sessions, handlershared.BuildPagination(page, pageSize, total))
}

// UpdateTrolley 创建或更新推车状态
func (h *Handler) UpdateTrolley(c *gin.Context) {
	var req UpdateTrolleyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	trolley, err := h.TrolleyService.Upsert(service.UpsertTrolleyInput{
		Code:        c.Param("code"),
		Status:      req.Status,
		CurrentCart: req.CurrentCart,
	})
	if err != nil {
		respondMappedError(c, err)
		return
	}
	requestLog(c).Infow("trolley_updated",
		"trolley_code", trolley.Code,
		"status", trolley.Status,
		"operator", handlershared.GetOperatorName(c),
	)
	response.Success(c, trolley)
}

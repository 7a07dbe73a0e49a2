package operator

import (
	"context"
	"errors"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/http/response"
	"github.com/trolley-watch/internal/monitor"
	"github.com/trolley-watch/internal/service"
	"github.com/trolley-watch/internal/upstream"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target error
	code   int
	key    string
}

var errorMappings = []errorMapping{
	{monitor.ErrMonitorNotFound, response.CodeNotFound, "error.monitor_not_found"},
	{monitor.ErrMonitorClosed, response.CodeNotFound, "error.monitor_closed"},
	{monitor.ErrCommitInFlight, response.CodeConflict, "error.edit_conflict"},
	{monitor.ErrEditInProgress, response.CodeConflict, "error.edit_conflict"},
	{monitor.ErrTrolleyRequired, response.CodeBadRequest, "error.bad_request"},
	{cart.ErrNoCartLoaded, response.CodeConflict, "error.edit_conflict"},
	{cart.ErrNoAuditItems, response.CodeConflict, "error.edit_conflict"},
	{cart.ErrSessionInactive, response.CodeConflict, "error.edit_conflict"},
	{cart.ErrQuantityInvalid, response.CodeBadRequest, "error.edit_invalid"},
	{cart.ErrLineIndexInvalid, response.CodeBadRequest, "error.edit_invalid"},
	{cart.ErrEventInvalid, response.CodeBadRequest, "error.event_invalid"},
	{cart.ErrEventKindUnknown, response.CodeBadRequest, "error.event_invalid"},
	{service.ErrTrolleyNotFound, response.CodeNotFound, "error.trolley_not_found"},
	{service.ErrTrolleyStatusInvalid, response.CodeBadRequest, "error.trolley_invalid"},
	{service.ErrTrolleyCodeRequired, response.CodeBadRequest, "error.trolley_invalid"},
	{service.ErrCartRequired, response.CodeBadRequest, "error.trolley_invalid"},
	{upstream.ErrAuthMissing, response.CodeUnavailable, "error.upstream_credential_missing"},
	{upstream.ErrCartNotFound, response.CodeNotFound, "error.cart_not_found"},
	{upstream.ErrAuditNotFound, response.CodeNotFound, "error.audit_not_found"},
	{upstream.ErrNetworkFailure, response.CodeBadGateway, "error.upstream_unavailable"},
	{upstream.ErrResponseInvalid, response.CodeBadGateway, "error.upstream_unavailable"},
	{context.DeadlineExceeded, response.CodeUnavailable, "error.upstream_unavailable"},
}

// mapError 将领域错误映射为响应码与消息 key
func mapError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.code, m.key
		}
	}
	return response.CodeInternal, "error.internal"
}

func respondMappedError(c *gin.Context, err error) {
	code, key := mapError(err)
	respondError(c, code, key, err)
}

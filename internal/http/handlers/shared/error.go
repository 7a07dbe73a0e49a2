package shared

import (
	"github.com/trolley-watch/internal/http/response"
	"github.com/trolley-watch/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := response.RequestID(c); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 按消息 key 返回错误响应，并在有原始错误时记录日志。
// 4xx 记为 warn，5xx 记为 error
func RespondError(c *gin.Context, code int, key string, err error) {
	appErr := response.NewAppError(code, key, Message(key), err)
	if err != nil {
		log := RequestLog(c).Warnw
		if appErr.IsServerError() {
			log = RequestLog(c).Errorw
		}
		log("handler_error",
			"code", appErr.Code,
			"key", appErr.Key,
			"error", err,
		)
	}
	response.Fail(c, appErr)
}

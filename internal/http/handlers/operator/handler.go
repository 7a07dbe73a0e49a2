package operator

import (
	"github.com/trolley-watch/internal/provider"

	handlershared "github.com/trolley-watch/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 操作员控制台接口处理器
type Handler struct {
	*provider.Container
}

// New 创建控制台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

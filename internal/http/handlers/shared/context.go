package shared

import (
	"github.com/trolley-watch/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入上下文的 key
const (
	ContextOperatorID   = "operator_id"
	ContextOperatorName = "username"
	ContextOperatorRole = "operator_role"
)

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// GetOperatorID 读取当前操作员ID
func GetOperatorID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, ContextOperatorID, "error.unauthorized", "error.internal")
}

// GetOperatorName 读取当前操作员用户名
func GetOperatorName(c *gin.Context) string {
	return c.GetString(ContextOperatorName)
}

// GetOperatorRole 读取当前操作员角色
func GetOperatorRole(c *gin.Context) string {
	return c.GetString(ContextOperatorRole)
}

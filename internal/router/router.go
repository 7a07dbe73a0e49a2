package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trolley-watch/internal/authz"
	"github.com/trolley-watch/internal/cache"
	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/constants"
	operatorhandlers "github.com/trolley-watch/internal/http/handlers/operator"
	"github.com/trolley-watch/internal/http/response"
	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/provider"

	handlershared "github.com/trolley-watch/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

const apiV1Prefix = "/api/v1"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := operatorhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	eventRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:events", redisPrefix),
		WindowSeconds: cfg.Security.EventRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.EventRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.EventRateLimit.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", func(ctx *gin.Context) {
		probeCtx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		defer cancel()
		response.Success(ctx, gin.H{
			"status":   "ok",
			"monitors": c.Hub.Len(),
			"redis":    cache.Status(probeCtx),
		})
	})

	apiV1 := r.Group(apiV1Prefix)
	apiV1.Use(OperatorJWTAuthMiddleware(cfg.JWT.SecretKey, c.OperatorAuthService))
	{
		// 仅需登录
		apiV1.GET("/me", func(ctx *gin.Context) {
			role := handlershared.GetOperatorRole(ctx)
			inherits, err := c.AuthzService.ParentRoles(role)
			if err != nil {
				inherits = []string{}
			}
			response.Success(ctx, gin.H{
				"username":    handlershared.GetOperatorName(ctx),
				"role":        role,
				"inherits":    inherits,
				"permissions": buildPermissionCatalog(r, c.AuthzService, role),
			})
		})

		authorized := apiV1.Group("")
		authorized.Use(OperatorRBACMiddleware(c.AuthzService))
		{
			authorized.GET("/trolleys", handler.ListTrolleys)
			authorized.GET("/trolleys/:code", handler.GetTrolley)
			authorized.GET("/trolleys/:code/history", handler.GetTrolleyHistory)
			authorized.PUT("/trolleys/:code", handler.UpdateTrolley)

			authorized.POST("/monitors", handler.OpenMonitor)
			authorized.GET("/monitors/:id", handler.GetMonitor)
			authorized.DELETE("/monitors/:id", handler.CloseMonitor)
			authorized.POST("/monitors/:id/reload", handler.ReloadMonitor)
			authorized.DELETE("/monitors/:id/notifications/:notice_id", handler.DismissNotification)

			authorized.POST("/monitors/:id/edit", handler.BeginEdit)
			authorized.DELETE("/monitors/:id/edit", handler.CancelEdit)
			authorized.PATCH("/monitors/:id/edit/items/:index", handler.SetEditQuantity)
			authorized.DELETE("/monitors/:id/edit/items/:index", handler.RemoveEditItem)
			authorized.POST("/monitors/:id/edit/commit", handler.CommitEdit)

			authorized.POST("/events", RateLimitMiddleware(cache.Client(), eventRule, KeyByOperator), handler.IngestEvent)
		}
	}

	return r
}

type permissionCatalogItem struct {
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildPermissionCatalog 列出角色可访问的接口
func buildPermissionCatalog(engine *gin.Engine, authzService *authz.Service, role string) []permissionCatalogItem {
	items := make([]permissionCatalogItem, 0)
	if engine == nil || authzService == nil || strings.TrimSpace(role) == "" {
		return items
	}

	seen := make(map[string]struct{})
	for _, route := range engine.Routes() {
		method := strings.ToUpper(strings.TrimSpace(route.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(route.Path, apiV1Prefix+"/") || route.Path == apiV1Prefix+"/me" {
			continue
		}
		object := authz.NormalizeObject(route.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		allowed, err := authzService.EnforceRole(role, object, method)
		if err != nil || !allowed {
			continue
		}
		items = append(items, permissionCatalogItem{
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Object == items[j].Object {
			return items[i].Method < items[j].Method
		}
		return items[i].Object < items[j].Object
	})
	return items
}

package provider

import (
	"github.com/trolley-watch/internal/authz"
	"github.com/trolley-watch/internal/cache"
	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/models"
	"github.com/trolley-watch/internal/monitor"
	"github.com/trolley-watch/internal/queue"
	"github.com/trolley-watch/internal/repository"
	"github.com/trolley-watch/internal/service"
	"github.com/trolley-watch/internal/upstream"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	TrolleyRepo         repository.TrolleyRepository
	ShoppingSessionRepo repository.ShoppingSessionRepository
	OperatorRepo        repository.OperatorRepository

	// Services
	AuthzService        *authz.Service
	TrolleyService      *service.TrolleyService
	OperatorAuthService *service.OperatorAuthService
	UpstreamClient      *upstream.Client
	Hub                 *monitor.Hub
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.TrolleyRepo = repository.NewTrolleyRepository(db)
	c.ShoppingSessionRepo = repository.NewShoppingSessionRepository(db)
	c.OperatorRepo = repository.NewOperatorRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.TrolleyService = service.NewTrolleyService(c.TrolleyRepo, c.ShoppingSessionRepo)
	c.OperatorAuthService = service.NewOperatorAuthService(&c.Config.JWT, c.OperatorRepo)
	c.UpstreamClient = NewUpstreamClient(c.Config.Upstream)
	c.Hub = monitor.NewHub(monitor.Deps{
		Trolleys: c.TrolleyService,
		Fetcher:  c.UpstreamClient,
		Syncer:   c.UpstreamClient,
	}, monitor.HubOptions{
		Monitor: monitor.Options{
			InboxSize: c.Config.Monitor.InboxSize,
			NoticeTTL: c.Config.Notification.TTL(),
		},
		IdleTimeout:   c.Config.Monitor.IdleTimeout(),
		SweepInterval: c.Config.Monitor.SweepInterval(),
	})
}

// NewUpstreamClient 创建 POS 服务端客户端；凭证优先取 Redis，其次取配置
func NewUpstreamClient(cfg config.UpstreamConfig) *upstream.Client {
	return upstream.NewClient(upstream.Options{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout(),
		BreakerFailures: positiveUint32(cfg.BreakerFailures),
		BreakerOpenFor:  cfg.BreakerOpenFor(),
		BreakerHalfOpen: positiveUint32(cfg.BreakerHalfOpenProbes),
	}, upstream.ChainCredentials(cache.UpstreamCredential{}, upstream.StaticCredential(cfg.Token)))
}

func positiveUint32(v int) uint32 {
	if v <= 0 {
		return 0
	}
	return uint32(v)
}

// Close 释放容器持有的外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Hub != nil {
		c.Hub.Shutdown()
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

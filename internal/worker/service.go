package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 队列事件消费服务
type Service struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	stopOnce sync.Once
}

// NewService 创建队列事件消费服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.S()
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(logTaskFailure)

	mux := asynq.NewServeMux()
	mux.Use(taskLogMiddleware)
	consumer.Register(mux)
	return &Service{server: asynq.NewServer(opt, serverCfg), mux: mux}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费并阻塞到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	logger.Infow("worker_starting", "task", queue.TaskCartEvent)
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务完成后退出
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.stopOnce.Do(s.server.Shutdown)
	return nil
}

func taskLogMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, task)
		retried, _ := asynq.GetRetryCount(ctx)
		logger.Debugw("worker_task_processed",
			"task", task.Type(),
			"event", queue.PeekEventKind(task),
			"retried", retried,
			"latency_ms", time.Since(start).Milliseconds(),
			"failed", err != nil,
		)
		return err
	})
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logger.Warnw("worker_task_failed",
		"task", task.Type(),
		"event", queue.PeekEventKind(task),
		"retried", retried,
		"max_retry", maxRetry,
		"skip_retry", errors.Is(err, asynq.SkipRetry),
		"error", err,
	)
}

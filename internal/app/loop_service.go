package app

import (
	"context"
	"errors"
	"sync"
)

// LoopService 将阻塞运行的组件（事件源、闲置回收）包装为服务
type LoopService struct {
	name string
	run  func(ctx context.Context) error
	stop func() error

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewLoopService 创建循环服务
func NewLoopService(name string, run func(ctx context.Context) error, stop func() error) *LoopService {
	return &LoopService{name: name, run: run, stop: stop}
}

// Name 服务名称
func (s *LoopService) Name() string {
	if s == nil || s.name == "" {
		return "loop"
	}
	return s.name
}

// Start 运行直到 ctx 取消或 Stop 被调用
func (s *LoopService) Start(ctx context.Context) error {
	if s == nil || s.run == nil {
		return errors.New("loop service not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()
	return s.run(ctx)
}

// Stop 停止服务
func (s *LoopService) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if s.stop != nil {
		return s.stop()
	}
	return nil
}

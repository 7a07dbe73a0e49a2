package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/logger"
)

// HubOptions 监控中心参数
type HubOptions struct {
	Monitor       Options
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// Hub 监控视图注册中心，负责事件分发与闲置回收
type Hub struct {
	deps Deps
	opts HubOptions

	mu       sync.RWMutex
	monitors map[string]*Monitor
}

// NewHub 创建监控中心
func NewHub(deps Deps, opts HubOptions) *Hub {
	if opts.Monitor.Clock == nil {
		opts.Monitor.Clock = time.Now
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	return &Hub{
		deps:     deps,
		opts:     opts,
		monitors: make(map[string]*Monitor),
	}
}

// Open 为推车打开监控视图；推车在用时触发首次拉取
func (h *Hub) Open(ctx context.Context, trolleyCode string) (*Monitor, error) {
	code := strings.TrimSpace(trolleyCode)
	if code == "" {
		return nil, ErrTrolleyRequired
	}
	trolley, err := h.deps.Trolleys.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if trolley == nil {
		return nil, fmt.Errorf("trolley %s not found", code)
	}
	m := newMonitor(*trolley, h.deps, h.opts.Monitor)

	h.mu.Lock()
	h.monitors[m.ID()] = m
	h.mu.Unlock()

	logger.Infow("monitor_opened",
		"monitor_id", m.ID(),
		"trolley_code", trolley.Code,
		"trolley_status", trolley.Status,
	)
	if trolley.Status == constants.TrolleyStatusInUse {
		m.triggerLoad()
	}
	return m, nil
}

// Get 获取监控视图
func (h *Hub) Get(id string) (*Monitor, error) {
	h.mu.RLock()
	m, ok := h.monitors[strings.TrimSpace(id)]
	h.mu.RUnlock()
	if !ok {
		return nil, ErrMonitorNotFound
	}
	return m, nil
}

// Close 关闭并移除监控视图
func (h *Hub) Close(id string) error {
	h.mu.Lock()
	m, ok := h.monitors[strings.TrimSpace(id)]
	delete(h.monitors, strings.TrimSpace(id))
	h.mu.Unlock()
	if !ok {
		return ErrMonitorNotFound
	}
	m.Close()
	return nil
}

// Len 当前打开的监控视图数量
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.monitors)
}

func (h *Hub) list() []*Monitor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Monitor, 0, len(h.monitors))
	for _, m := range h.monitors {
		out = append(out, m)
	}
	return out
}

// Dispatch 将事件投递给所有监控视图，由各自的快照按购物车ID过滤
func (h *Hub) Dispatch(ctx context.Context, ev cart.Event) int {
	delivered := 0
	for _, m := range h.list() {
		if err := m.Deliver(ctx, ev); err != nil {
			logger.Debugw("monitor_event_undelivered",
				"monitor_id", m.ID(),
				"event", ev.Kind(),
				"error", err,
			)
			continue
		}
		delivered++
	}
	return delivered
}

// Sweep 回收闲置超时的监控视图
func (h *Hub) Sweep(now time.Time) int {
	var idle []*Monitor
	h.mu.Lock()
	for id, m := range h.monitors {
		if now.Sub(m.IdleSince()) >= h.opts.IdleTimeout {
			idle = append(idle, m)
			delete(h.monitors, id)
		}
	}
	h.mu.Unlock()

	for _, m := range idle {
		m.Close()
		logger.Infow("monitor_idle_swept", "monitor_id", m.ID(), "trolley_code", m.TrolleyCode())
	}
	return len(idle)
}

// Run 定期回收闲置视图，ctx 取消时关闭全部视图
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.Sweep(h.opts.Monitor.Clock())
		case <-ctx.Done():
			h.Shutdown()
			return
		}
	}
}

// Shutdown 关闭全部监控视图
func (h *Hub) Shutdown() {
	h.mu.Lock()
	monitors := h.monitors
	h.monitors = make(map[string]*Monitor)
	h.mu.Unlock()
	for _, m := range monitors {
		m.Close()
	}
}

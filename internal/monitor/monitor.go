package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/models"

	"github.com/google/uuid"
)

// TrolleyLookup 查询推车当前状态
type TrolleyLookup interface {
	GetByCode(code string) (*models.Trolley, error)
}

// Deps 监控视图依赖
type Deps struct {
	Trolleys TrolleyLookup
	Fetcher  cart.Fetcher
	Syncer   cart.Syncer
}

// Options 监控视图参数
type Options struct {
	InboxSize int
	NoticeTTL time.Duration
	Clock     func() time.Time
}

// Monitor 单个推车的监控视图
//
// 所有输入（事件、编辑、I/O 完成回调）都经 inbox 在同一协程上串行执行，
// 拉取与提交在协程外进行，关闭后到达的结果直接丢弃。
type Monitor struct {
	id    string
	code  string
	deps  Deps
	clock func() time.Time

	inbox     chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	touched   atomic.Int64

	// 以下字段只在处理协程中访问
	trolley     models.Trolley
	store       *cart.Store
	session     *cart.EditSession
	notices     *cart.NotificationSlot
	loadSeq     uint64
	loadWaiters []chan error
	committing  bool
	lastError   string
	openedAt    time.Time
	loadedAt    time.Time
}

func newMonitor(trolley models.Trolley, deps Deps, opts Options) *Monitor {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	inboxSize := opts.InboxSize
	if inboxSize <= 0 {
		inboxSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		id:       uuid.NewString(),
		code:     trolley.Code,
		deps:     deps,
		clock:    clock,
		inbox:    make(chan func(), inboxSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		trolley:  trolley,
		store:    cart.NewStore(),
		notices:  cart.NewNotificationSlot(opts.NoticeTTL),
		openedAt: clock(),
	}
	m.touch()
	go m.run()
	return m
}

// ID 监控视图ID
func (m *Monitor) ID() string {
	return m.id
}

// TrolleyCode 推车编码
func (m *Monitor) TrolleyCode() string {
	return m.code
}

// Done 关闭后返回的通道
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) touch() {
	m.touched.Store(m.clock().UnixNano())
}

// IdleSince 最近一次操作员访问时间
func (m *Monitor) IdleSince() time.Time {
	return time.Unix(0, m.touched.Load())
}

func (m *Monitor) run() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			m.resolveWaiters(ErrMonitorClosed)
			return
		case fn := <-m.inbox:
			// select 随机选择就绪分支，关闭后不再执行已排队的任务
			if m.ctx.Err() != nil {
				m.resolveWaiters(ErrMonitorClosed)
				return
			}
			fn()
		}
	}
}

// post 投递到处理协程
func (m *Monitor) post(ctx context.Context, fn func()) error {
	select {
	case <-m.ctx.Done():
		return ErrMonitorClosed
	default:
	}
	select {
	case m.inbox <- fn:
		return nil
	case <-m.ctx.Done():
		return ErrMonitorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call 在处理协程中执行 fn 并等待其完成
func (m *Monitor) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := m.post(ctx, func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-m.done:
		return ErrMonitorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View 返回当前视图
func (m *Monitor) View(ctx context.Context) (View, error) {
	m.touch()
	var view View
	err := m.call(ctx, func() error {
		view = m.buildView()
		return nil
	})
	return view, err
}

// Deliver 投递一条实时事件
func (m *Monitor) Deliver(ctx context.Context, ev cart.Event) error {
	if ev == nil {
		return cart.ErrEventInvalid
	}
	return m.post(ctx, func() { m.apply(ev) })
}

func (m *Monitor) apply(ev cart.Event) {
	effects, err := m.store.Apply(ev)
	if err != nil {
		logger.Debugw("monitor_event_ignored",
			"monitor_id", m.id,
			"event", ev.Kind(),
			"cart_id", ev.RoutingKey(),
			"loaded_cart_id", m.store.CartID(),
			"reason", err,
		)
		return
	}
	now := m.clock()
	for _, effect := range effects {
		m.notices.EnqueueEffect(effect, now)
	}
	logger.Infow("monitor_event_applied",
		"monitor_id", m.id,
		"trolley_code", m.trolley.Code,
		"event", ev.Kind(),
		"cart_id", ev.RoutingKey(),
	)
}

// Reload 重新拉取快照并等待结果
func (m *Monitor) Reload(ctx context.Context) (View, error) {
	m.touch()
	waiter := make(chan error, 1)
	if err := m.post(ctx, func() { m.startLoad(waiter) }); err != nil {
		return View{}, err
	}
	select {
	case err := <-waiter:
		if err != nil {
			return View{}, err
		}
	case <-m.done:
		return View{}, ErrMonitorClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	return m.View(ctx)
}

// triggerLoad 异步拉取，不等待结果
func (m *Monitor) triggerLoad() {
	_ = m.post(context.Background(), func() { m.startLoad(nil) })
}

// startLoad 开始一次拉取；若已有拉取进行中，新请求会使旧结果作废
func (m *Monitor) startLoad(waiter chan error) {
	if waiter != nil {
		m.loadWaiters = append(m.loadWaiters, waiter)
	}
	m.loadSeq++
	seq := m.loadSeq
	m.store.BeginLoad()

	go func() {
		trolley, snapshot, err := m.fetch(m.ctx, m.code)
		posted := m.post(context.Background(), func() { m.finishLoad(seq, trolley, snapshot, err) })
		if posted != nil {
			logger.Debugw("monitor_load_result_discarded", "monitor_id", m.id, "reason", "monitor_closed")
		}
	}()
}

// fetch 在处理协程外执行：先确认推车在用，再拉取快照
func (m *Monitor) fetch(ctx context.Context, code string) (*models.Trolley, *models.Cart, error) {
	if m.deps.Trolleys == nil || m.deps.Fetcher == nil {
		return nil, nil, fmt.Errorf("monitor dependencies missing")
	}
	trolley, err := m.deps.Trolleys.GetByCode(code)
	if err != nil {
		return nil, nil, err
	}
	if trolley == nil {
		return nil, nil, fmt.Errorf("trolley %s not found", code)
	}
	cartID := strings.TrimSpace(trolley.CurrentCart)
	if trolley.Status != constants.TrolleyStatusInUse || cartID == "" {
		return trolley, nil, nil
	}
	snapshot, err := m.deps.Fetcher.FetchCart(ctx, cartID)
	return trolley, snapshot, err
}

func (m *Monitor) finishLoad(seq uint64, trolley *models.Trolley, snapshot *models.Cart, err error) {
	if seq != m.loadSeq {
		logger.Debugw("monitor_load_result_discarded", "monitor_id", m.id, "reason", "superseded", "seq", seq)
		return
	}
	if trolley != nil {
		m.trolley = *trolley
	}
	switch {
	case err != nil:
		m.store.FailLoad()
		m.lastError = err.Error()
		logger.Warnw("monitor_load_failed",
			"monitor_id", m.id,
			"trolley_code", m.trolley.Code,
			"error", err,
		)
	case snapshot == nil:
		// 推车未在使用，保留原有状态
		m.store.FailLoad()
		m.lastError = ""
		logger.Infow("monitor_load_skipped",
			"monitor_id", m.id,
			"trolley_code", m.trolley.Code,
			"trolley_status", m.trolley.Status,
		)
	default:
		if installErr := m.store.Install(snapshot); installErr != nil {
			err = installErr
			m.lastError = installErr.Error()
			logger.Warnw("monitor_snapshot_rejected", "monitor_id", m.id, "error", installErr)
			break
		}
		m.lastError = ""
		m.loadedAt = m.clock()
		logger.Infow("monitor_cart_loaded",
			"monitor_id", m.id,
			"trolley_code", m.trolley.Code,
			"cart_id", snapshot.ID,
			"items", len(snapshot.Items),
		)
	}
	m.resolveWaiters(err)
}

func (m *Monitor) resolveWaiters(err error) {
	for _, w := range m.loadWaiters {
		w <- err
	}
	m.loadWaiters = nil
}

// BeginEdit 开始核验商品编辑
func (m *Monitor) BeginEdit(ctx context.Context) (View, error) {
	return m.edit(ctx, func() error {
		if m.session.Active() {
			return ErrEditInProgress
		}
		session, err := cart.BeginEdit(m.store.Snapshot())
		if err != nil {
			return err
		}
		m.session = session
		logger.Infow("monitor_edit_started", "monitor_id", m.id, "audit_id", session.AuditID())
		return nil
	})
}

// SetQuantity 修改缓冲区中某行数量
func (m *Monitor) SetQuantity(ctx context.Context, index, quantity int) (View, error) {
	return m.edit(ctx, func() error {
		if !m.session.Active() {
			return cart.ErrSessionInactive
		}
		return m.session.SetQuantity(index, quantity)
	})
}

// Remove 删除缓冲区中某行
func (m *Monitor) Remove(ctx context.Context, index int) (View, error) {
	return m.edit(ctx, func() error {
		if !m.session.Active() {
			return cart.ErrSessionInactive
		}
		return m.session.Remove(index)
	})
}

// CancelEdit 放弃编辑
func (m *Monitor) CancelEdit(ctx context.Context) (View, error) {
	return m.edit(ctx, func() error {
		if !m.session.Active() {
			return cart.ErrSessionInactive
		}
		m.session.Cancel()
		m.session = nil
		logger.Infow("monitor_edit_canceled", "monitor_id", m.id)
		return nil
	})
}

func (m *Monitor) edit(ctx context.Context, fn func() error) (View, error) {
	m.touch()
	var view View
	err := m.call(ctx, func() error {
		if m.committing {
			return ErrCommitInFlight
		}
		if err := fn(); err != nil {
			return err
		}
		view = m.buildView()
		return nil
	})
	return view, err
}

// Commit 同步编辑结果；成功后结束会话并触发一次重新拉取
func (m *Monitor) Commit(ctx context.Context) (View, error) {
	m.touch()
	result := make(chan error, 1)
	err := m.call(ctx, func() error {
		if m.committing {
			return ErrCommitInFlight
		}
		auditID, lines, err := m.session.CommitPayload()
		if err != nil {
			return err
		}
		if m.deps.Syncer == nil {
			return fmt.Errorf("audit syncer missing")
		}
		m.committing = true
		session := m.session
		go func() {
			syncErr := m.deps.Syncer.SyncAudit(m.ctx, auditID, lines)
			posted := m.post(context.Background(), func() {
				m.finishCommit(session, syncErr)
				result <- syncErr
			})
			if posted != nil {
				logger.Debugw("monitor_commit_result_discarded", "monitor_id", m.id, "audit_id", auditID)
			}
		}()
		return nil
	})
	if err != nil {
		return View{}, err
	}
	select {
	case err := <-result:
		if err != nil {
			return View{}, err
		}
	case <-m.done:
		return View{}, ErrMonitorClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	return m.View(ctx)
}

func (m *Monitor) finishCommit(session *cart.EditSession, err error) {
	m.committing = false
	if err != nil {
		m.lastError = err.Error()
		m.notices.Enqueue(commitFailureMessage(err), constants.SeverityError, m.clock())
		logger.Warnw("monitor_commit_failed",
			"monitor_id", m.id,
			"audit_id", session.AuditID(),
			"error", err,
		)
		return
	}
	logger.Infow("monitor_commit_succeeded", "monitor_id", m.id, "audit_id", session.AuditID())
	session.MarkCommitted()
	if m.session == session {
		m.session = nil
	}
	m.lastError = ""
	m.startLoad(nil)
}

func commitFailureMessage(err error) string {
	return fmt.Sprintf("Failed to update audit items: %v", err)
}

// Dismiss 手动关闭提示
func (m *Monitor) Dismiss(ctx context.Context, noticeID string) (bool, error) {
	m.touch()
	dismissed := false
	err := m.call(ctx, func() error {
		dismissed = m.notices.Dismiss(noticeID)
		return nil
	})
	return dismissed, err
}

// Close 关闭监控视图，进行中的 I/O 被取消且其结果不再生效
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		logger.Infow("monitor_closed", "monitor_id", m.id, "trolley_code", m.code)
	})
	<-m.done
}

package cart

import (
	"time"

	"github.com/google/uuid"
)

// DefaultNoticeTTL 提示默认展示时长
const DefaultNoticeTTL = 3 * time.Second

// Notice 单条提示
type Notice struct {
	ID              string    `json:"id"`
	Message         string    `json:"message"`
	Severity        string    `json:"severity"`
	HighPriority    bool      `json:"high_priority"`
	RefreshRequired bool      `json:"refresh_required"`
	ShownAt         time.Time `json:"shown_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// NotificationSlot 单槽提示队列：新提示立即替换旧提示，过期在读取时判断
type NotificationSlot struct {
	ttl     time.Duration
	current *Notice
}

// NewNotificationSlot 创建提示槽，ttl 非正时使用默认值
func NewNotificationSlot(ttl time.Duration) *NotificationSlot {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &NotificationSlot{ttl: ttl}
}

// Enqueue 展示一条提示，替换当前提示
func (s *NotificationSlot) Enqueue(message, severity string, now time.Time) Notice {
	return s.put(Notice{Message: message, Severity: severity}, now)
}

// EnqueueEffect 展示事件效果
func (s *NotificationSlot) EnqueueEffect(effect Effect, now time.Time) Notice {
	return s.put(Notice{
		Message:         effect.Message,
		Severity:        effect.Severity,
		HighPriority:    effect.HighPriority,
		RefreshRequired: effect.RefreshRequired,
	}, now)
}

func (s *NotificationSlot) put(n Notice, now time.Time) Notice {
	n.ID = uuid.NewString()
	n.ShownAt = now
	n.ExpiresAt = now.Add(s.ttl)
	s.current = &n
	return n
}

// Current 返回当前未过期的提示
func (s *NotificationSlot) Current(now time.Time) (Notice, bool) {
	if s.current == nil {
		return Notice{}, false
	}
	if !now.Before(s.current.ExpiresAt) {
		s.current = nil
		return Notice{}, false
	}
	return *s.current, true
}

// Dismiss 手动关闭当前提示，ID 不匹配时返回 false
func (s *NotificationSlot) Dismiss(id string) bool {
	if s.current == nil || s.current.ID != id {
		return false
	}
	s.current = nil
	return true
}
